// Package reconcile orchestrates a reconciliation run: verify the desired
// schema, fetch the observed schema from the remote collaborator, plan the
// change commands, apply the caller's restriction policy, and either return
// the plan, report drift, or execute the plan command by command.
package reconcile

import (
	"context"

	"github.com/arkilian/drift/internal/errors"
	"github.com/arkilian/drift/internal/planner"
	"github.com/arkilian/drift/internal/verify"
	"github.com/arkilian/drift/pkg/types"
)

// Fetcher retrieves the observed schema from the remote backend. A fetch
// must return all three sub-lists (collections, functions, triggers) or fail
// as a whole; there is no partial observed schema.
type Fetcher interface {
	FetchSchema(ctx context.Context) (types.Schema, error)
}

// Executor applies a single change command against the remote backend. The
// facade never retries; a safe retry policy, if any, lives behind this
// interface.
type Executor interface {
	ApplyCommand(ctx context.Context, cmd types.Command) error
}

// Options control planning and the policy layer applied to the computed
// command list.
type Options struct {
	// HookURL is a prefix applied to every desired function and trigger
	// URL before comparison and emission.
	HookURL string

	// IgnoreIndexes removes every index command from the plan and strips
	// the index payload from surviving AddCollection commands.
	IgnoreIndexes bool

	// DisallowColumnRedefine aborts the run if the plan contains any
	// column update or delete command.
	DisallowColumnRedefine bool

	// DisallowIndexRedefine aborts the run if the plan contains any
	// index update or delete command.
	DisallowIndexRedefine bool

	// IgnoredPermissionKeys overrides the default set of permission
	// action names excluded from comparison. nil keeps the default.
	IgnoredPermissionKeys []string

	// PrivateIndexPrefix overrides the default system-managed index name
	// prefix. Empty keeps the default.
	PrivateIndexPrefix string

	// DisablePrivateIndexSuppression turns off private-index protection
	// entirely: every observed index becomes managed, including ones
	// matching the private prefix.
	DisablePrivateIndexSuppression bool
}

// Reconciler ties a desired schema source to one remote target. It holds no
// state across invocations; serializing concurrent runs against the same
// target is the caller's responsibility.
type Reconciler struct {
	fetcher  Fetcher
	executor Executor
	opts     Options
}

// New creates a Reconciler. The executor may be nil if only ComputePlan and
// Check are used.
func New(fetcher Fetcher, executor Executor, opts Options) *Reconciler {
	return &Reconciler{
		fetcher:  fetcher,
		executor: executor,
		opts:     opts,
	}
}

// ComputePlan verifies the desired schema, fetches the observed schema, and
// returns the policy-filtered command list. Verification failures abort
// before any network interaction.
func (r *Reconciler) ComputePlan(ctx context.Context, desired types.Schema) ([]types.Command, error) {
	if violations := verify.Verify(desired); len(violations) > 0 {
		return nil, &errors.InvalidSchemaError{Violations: violations}
	}

	observed, err := r.fetcher.FetchSchema(ctx)
	if err != nil {
		return nil, &errors.RemoteFetchError{Cause: err}
	}

	commands := planner.Plan(stripSystemFields(desired), observed, r.plannerOptions())

	if r.opts.IgnoreIndexes {
		commands = stripIndexCommands(commands)
	}

	if r.opts.DisallowColumnRedefine {
		for _, cmd := range commands {
			switch cmd.(type) {
			case types.UpdateColumn, types.DeleteColumn:
				return nil, &errors.DisallowedCommandError{Command: cmd}
			}
		}
	}
	if r.opts.DisallowIndexRedefine {
		for _, cmd := range commands {
			switch cmd.(type) {
			case types.UpdateIndex, types.DeleteIndex:
				return nil, &errors.DisallowedCommandError{Command: cmd}
			}
		}
	}

	return commands, nil
}

// Check computes the plan and reports drift. A non-empty plan is returned as
// an OutOfSyncError carrying the full command list; the remote is never
// mutated.
func (r *Reconciler) Check(ctx context.Context, desired types.Schema) error {
	commands, err := r.ComputePlan(ctx, desired)
	if err != nil {
		return err
	}
	if len(commands) > 0 {
		return &errors.OutOfSyncError{Commands: commands}
	}
	return nil
}

// Apply computes the plan and hands each command, in order, to the executor.
// Execution stops at the first failure: later commands can structurally
// depend on earlier ones, and the already-applied prefix stays applied.
func (r *Reconciler) Apply(ctx context.Context, desired types.Schema) error {
	commands, err := r.ComputePlan(ctx, desired)
	if err != nil {
		return err
	}
	for _, cmd := range commands {
		if err := r.executor.ApplyCommand(ctx, cmd); err != nil {
			return &errors.RemoteApplyError{Command: cmd, Cause: err}
		}
	}
	return nil
}

func (r *Reconciler) plannerOptions() planner.Options {
	opts := planner.DefaultOptions()
	opts.HookURL = r.opts.HookURL
	if r.opts.IgnoredPermissionKeys != nil {
		opts.IgnoredPermissionKeys = r.opts.IgnoredPermissionKeys
	}
	switch {
	case r.opts.DisablePrivateIndexSuppression:
		opts.PrivateIndexPrefix = ""
	case r.opts.PrivateIndexPrefix != "":
		opts.PrivateIndexPrefix = r.opts.PrivateIndexPrefix
	}
	return opts
}

// stripSystemFields drops backend-managed fields from every desired
// collection. The fetcher applies the same normalization to the observed
// side, so a schema that declares e.g. objectId still converges instead of
// re-planning the field on every run.
func stripSystemFields(desired types.Schema) types.Schema {
	out := desired
	out.Collections = make([]types.CollectionDefinition, len(desired.Collections))
	for i, coll := range desired.Collections {
		out.Collections[i] = coll.WithoutSystemFields()
	}
	return out
}

// stripIndexCommands removes every index command and clears the index payload
// from surviving AddCollection commands, so disabling index management never
// leaks indexes through a newly created collection.
func stripIndexCommands(commands []types.Command) []types.Command {
	out := make([]types.Command, 0, len(commands))
	for _, cmd := range commands {
		switch c := cmd.(type) {
		case types.AddIndex, types.UpdateIndex, types.DeleteIndex:
			continue
		case types.AddCollection:
			c.Collection = c.Collection.WithoutIndexes()
			out = append(out, c)
		default:
			out = append(out, cmd)
		}
	}
	return out
}
