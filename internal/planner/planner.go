// Package planner computes the ordered command list that transforms an
// observed schema into a desired one. Planning is a total pure function:
// no I/O, no shared state, deterministic output for well-formed inputs.
// Callers must verify the desired schema first.
package planner

import (
	"sort"
	"strings"

	"github.com/arkilian/drift/pkg/types"
)

// Options carries the comparison knobs for a planning run. Ignore-lists are
// explicit configuration rather than module constants so behavior stays
// deterministic and testable across backend versions.
type Options struct {
	// HookURL, when non-empty, is prefixed to every desired function and
	// trigger URL before comparison and before emission.
	HookURL string

	// IgnoredPermissionKeys are permission action names excluded from
	// class-level permission comparison (server-injected defaults).
	IgnoredPermissionKeys []string

	// PrivateIndexPrefix marks system-managed index names. Observed
	// indexes with this prefix are never planned for deletion. An empty
	// prefix disables the suppression.
	PrivateIndexPrefix string
}

// DefaultOptions returns the comparison defaults for current backend
// versions.
func DefaultOptions() Options {
	return Options{
		IgnoredPermissionKeys: []string{"protectedFields", "count"},
		PrivateIndexPrefix:    "_",
	}
}

// Plan computes the ordered command list transforming observed into desired.
// Output order is collection commands, then function commands, then trigger
// commands; see planCollections for the intra-collection ordering contract.
func Plan(desired, observed types.Schema, opts Options) []types.Command {
	out := planCollections(desired.Collections, observed.Collections, opts)
	out = append(out, planFunctions(desired.Functions, observed.Functions, opts.HookURL)...)
	out = append(out, planTriggers(desired.Triggers, observed.Triggers, opts.HookURL)...)
	return out
}

// planCollections diffs the collection sets. Commands are emitted in a fixed
// order: new collections, deleted collections, permission updates, deleted
// indexes, deleted columns, new and updated columns, new and updated indexes.
// Index deletion precedes column deletion so no index outlives a column it
// references, and column creation precedes index creation so new indexes only
// reference columns that exist.
func planCollections(desired, observed []types.CollectionDefinition, opts Options) []types.Command {
	desiredBy := make(map[string]types.CollectionDefinition, len(desired))
	for _, c := range desired {
		desiredBy[c.ClassName] = c
	}
	observedBy := make(map[string]types.CollectionDefinition, len(observed))
	for _, c := range observed {
		observedBy[c.ClassName] = c
	}

	var (
		newCollections []types.Command
		delCollections []types.Command
		permUpdates    []types.Command
		delIndexes     []types.Command
		delColumns     []types.Command
		putColumns     []types.Command
		putIndexes     []types.Command
	)

	for _, d := range desired {
		if _, ok := observedBy[d.ClassName]; ok {
			continue
		}
		// A new collection is created without indexes; each of its
		// indexes becomes a separate AddIndex so the executor creates
		// them only after the collection and its columns exist.
		newCollections = append(newCollections, types.AddCollection{Collection: d.WithoutIndexes()})
		for _, name := range sortedIndexNames(d.Indexes) {
			putIndexes = append(putIndexes, types.AddIndex{
				ClassName: d.ClassName,
				Name:      name,
				Index:     d.Indexes[name].Clone(),
			})
		}
	}

	for _, o := range observed {
		if _, ok := desiredBy[o.ClassName]; !ok {
			delCollections = append(delCollections, types.DeleteCollection{ClassName: o.ClassName})
		}
	}

	for _, d := range desired {
		o, ok := observedBy[d.ClassName]
		if !ok {
			continue
		}

		if !permissionsEqual(d.ClassLevelPermissions, o.ClassLevelPermissions, opts.IgnoredPermissionKeys) {
			permUpdates = append(permUpdates, types.UpdateCollectionPermissions{
				ClassName:      d.ClassName,
				NewPermissions: d.ClassLevelPermissions.Clone(),
				OldPermissions: o.ClassLevelPermissions.Clone(),
			})
		}

		for _, name := range sortedFieldNames(d.Fields) {
			def := d.Fields[name]
			obs, present := o.Fields[name]
			switch {
			case !present:
				putColumns = append(putColumns, types.AddColumn{ClassName: d.ClassName, Name: name, Column: def.Clone()})
			case !fieldsEqual(def, obs):
				putColumns = append(putColumns, types.UpdateColumn{ClassName: d.ClassName, Name: name, Column: def.Clone()})
			}
		}
		for _, name := range sortedFieldNames(o.Fields) {
			if _, present := d.Fields[name]; !present {
				delColumns = append(delColumns, types.DeleteColumn{ClassName: d.ClassName, Name: name})
			}
		}

		for _, name := range sortedIndexNames(d.Indexes) {
			def := d.Indexes[name]
			obs, present := o.Indexes[name]
			switch {
			case !present:
				putIndexes = append(putIndexes, types.AddIndex{ClassName: d.ClassName, Name: name, Index: def.Clone()})
			case !indexesEqual(def, obs):
				putIndexes = append(putIndexes, types.UpdateIndex{ClassName: d.ClassName, Name: name, Index: def.Clone()})
			}
		}
		for _, name := range sortedIndexNames(o.Indexes) {
			if _, present := d.Indexes[name]; present {
				continue
			}
			if opts.PrivateIndexPrefix != "" && strings.HasPrefix(name, opts.PrivateIndexPrefix) {
				continue
			}
			delIndexes = append(delIndexes, types.DeleteIndex{ClassName: d.ClassName, Name: name})
		}
	}

	out := newCollections
	out = append(out, delCollections...)
	out = append(out, permUpdates...)
	out = append(out, delIndexes...)
	out = append(out, delColumns...)
	out = append(out, putColumns...)
	out = append(out, putIndexes...)
	return out
}

// planFunctions diffs the function sets by functionName. Desired URLs are
// rewritten with the hook prefix before comparison, so emitted payloads
// always carry the rewritten URL. Deletions come first: stale state is torn
// down before new state is registered.
func planFunctions(desired, observed []types.FunctionDefinition, hookURL string) []types.Command {
	desiredBy := make(map[string]types.FunctionDefinition, len(desired))
	order := make([]string, 0, len(desired))
	for _, fn := range desired {
		fn.URL = hookURL + fn.URL
		if _, ok := desiredBy[fn.FunctionName]; !ok {
			order = append(order, fn.FunctionName)
		}
		desiredBy[fn.FunctionName] = fn
	}
	observedBy := make(map[string]types.FunctionDefinition, len(observed))
	for _, fn := range observed {
		observedBy[fn.FunctionName] = fn
	}

	var out []types.Command
	for _, fn := range observed {
		if _, ok := desiredBy[fn.FunctionName]; !ok {
			out = append(out, types.DeleteFunction{FunctionName: fn.FunctionName})
		}
	}
	for _, name := range order {
		fn := desiredBy[name]
		obs, ok := observedBy[name]
		switch {
		case !ok:
			out = append(out, types.AddFunction{Function: fn})
		case obs.URL != fn.URL:
			out = append(out, types.UpdateFunction{Function: fn})
		}
	}
	return out
}

// planTriggers mirrors planFunctions over the (triggerName, className) key.
func planTriggers(desired, observed []types.TriggerDefinition, hookURL string) []types.Command {
	desiredBy := make(map[types.TriggerKey]types.TriggerDefinition, len(desired))
	order := make([]types.TriggerKey, 0, len(desired))
	for _, tr := range desired {
		tr.URL = hookURL + tr.URL
		if _, ok := desiredBy[tr.Key()]; !ok {
			order = append(order, tr.Key())
		}
		desiredBy[tr.Key()] = tr
	}
	observedBy := make(map[types.TriggerKey]types.TriggerDefinition, len(observed))
	for _, tr := range observed {
		observedBy[tr.Key()] = tr
	}

	var out []types.Command
	for _, tr := range observed {
		if _, ok := desiredBy[tr.Key()]; !ok {
			out = append(out, types.DeleteTrigger{ClassName: tr.ClassName, TriggerName: tr.TriggerName})
		}
	}
	for _, key := range order {
		tr := desiredBy[key]
		obs, ok := observedBy[key]
		switch {
		case !ok:
			out = append(out, types.AddTrigger{Trigger: tr})
		case obs.URL != tr.URL:
			out = append(out, types.UpdateTrigger{Trigger: tr})
		}
	}
	return out
}

func sortedFieldNames(m map[string]types.FieldDefinition) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedIndexNames(m map[string]types.IndexDefinition) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
