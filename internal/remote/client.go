// Package remote implements the HTTP collaborator for the reconciler: it
// fetches the observed schema from the backend's REST API and applies change
// commands against it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	drifterrors "github.com/arkilian/drift/internal/errors"
	"github.com/arkilian/drift/pkg/types"
)

// Credentials are forwarded opaquely to the backend on every request.
type Credentials struct {
	ApplicationID string
	MasterKey     string
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the root of the backend API, e.g. "https://api.example.com/1".
	BaseURL string

	// Credentials authenticate every request.
	Credentials Credentials

	// Timeout bounds each HTTP request. Zero means 30 seconds.
	Timeout time.Duration

	// Logger receives per-request debug logging. A zero Logger is valid
	// and silent.
	Logger zerolog.Logger
}

// Client talks to the backend schema API. It implements both the fetcher and
// the executor collaborator interfaces of the reconcile package.
type Client struct {
	base  string
	creds Credentials
	http  *http.Client
	log   zerolog.Logger
}

// NewClient creates a schema API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:  cfg.BaseURL,
		creds: cfg.Credentials,
		http:  &http.Client{Timeout: timeout},
		log:   cfg.Logger,
	}
}

// FetchSchema retrieves collections, functions, and triggers as three
// independent sub-fetches. A failure on any one of them fails the whole
// fetch: there is no partial observed schema.
func (c *Client) FetchSchema(ctx context.Context) (types.Schema, error) {
	var schema types.Schema

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		collections, err := c.fetchCollections(ctx)
		if err != nil {
			return err
		}
		schema.Collections = collections
		return nil
	})
	g.Go(func() error {
		functions, err := c.fetchFunctions(ctx)
		if err != nil {
			return err
		}
		schema.Functions = functions
		return nil
	})
	g.Go(func() error {
		triggers, err := c.fetchTriggers(ctx)
		if err != nil {
			return err
		}
		schema.Triggers = triggers
		return nil
	})

	if err := g.Wait(); err != nil {
		return types.Schema{}, err
	}
	return schema, nil
}

func (c *Client) fetchCollections(ctx context.Context) ([]types.CollectionDefinition, error) {
	var resp struct {
		Results []types.CollectionDefinition `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/schemas", nil, &resp); err != nil {
		return nil, fmt.Errorf("remote: failed to fetch collections: %w", err)
	}
	for i := range resp.Results {
		stripSystemFields(&resp.Results[i])
	}
	return resp.Results, nil
}

func (c *Client) fetchFunctions(ctx context.Context) ([]types.FunctionDefinition, error) {
	var resp []types.FunctionDefinition
	if err := c.do(ctx, http.MethodGet, "/hooks/functions", nil, &resp); err != nil {
		return nil, fmt.Errorf("remote: failed to fetch functions: %w", err)
	}
	return resp, nil
}

func (c *Client) fetchTriggers(ctx context.Context) ([]types.TriggerDefinition, error) {
	var resp []types.TriggerDefinition
	if err := c.do(ctx, http.MethodGet, "/hooks/triggers", nil, &resp); err != nil {
		return nil, fmt.Errorf("remote: failed to fetch triggers: %w", err)
	}
	return resp, nil
}

// ApplyCommand executes one change command against the backend. Deletes
// tolerate an already-absent target so a retried plan stays safe.
func (c *Client) ApplyCommand(ctx context.Context, cmd types.Command) error {
	c.log.Debug().Str("command", cmd.Render()).Msg("applying command")

	switch cm := cmd.(type) {
	case types.AddCollection:
		body := map[string]interface{}{
			"className":             cm.Collection.ClassName,
			"fields":                cm.Collection.Fields,
			"classLevelPermissions": cm.Collection.ClassLevelPermissions,
		}
		if len(cm.Collection.Indexes) > 0 {
			body["indexes"] = cm.Collection.Indexes
		}
		return c.do(ctx, http.MethodPost, "/schemas/"+url.PathEscape(cm.Collection.ClassName), body, nil)

	case types.DeleteCollection:
		return c.tolerateMissing(c.do(ctx, http.MethodDelete, "/schemas/"+url.PathEscape(cm.ClassName), nil, nil))

	case types.UpdateCollectionPermissions:
		body := map[string]interface{}{
			"className":             cm.ClassName,
			"classLevelPermissions": cm.NewPermissions,
		}
		return c.do(ctx, http.MethodPut, "/schemas/"+url.PathEscape(cm.ClassName), body, nil)

	case types.AddColumn:
		return c.putFields(ctx, cm.ClassName, map[string]interface{}{cm.Name: cm.Column})

	case types.UpdateColumn:
		// The backend cannot redefine a field in place: drop it first,
		// then recreate it with the new definition.
		if err := c.putFields(ctx, cm.ClassName, map[string]interface{}{cm.Name: deleteOp()}); err != nil {
			return err
		}
		return c.putFields(ctx, cm.ClassName, map[string]interface{}{cm.Name: cm.Column})

	case types.DeleteColumn:
		return c.putFields(ctx, cm.ClassName, map[string]interface{}{cm.Name: deleteOp()})

	case types.AddIndex:
		return c.putIndexes(ctx, cm.ClassName, map[string]interface{}{cm.Name: cm.Index})

	case types.UpdateIndex:
		if err := c.putIndexes(ctx, cm.ClassName, map[string]interface{}{cm.Name: deleteOp()}); err != nil {
			return err
		}
		return c.putIndexes(ctx, cm.ClassName, map[string]interface{}{cm.Name: cm.Index})

	case types.DeleteIndex:
		return c.putIndexes(ctx, cm.ClassName, map[string]interface{}{cm.Name: deleteOp()})

	case types.AddFunction:
		body := map[string]interface{}{
			"functionName": cm.Function.FunctionName,
			"url":          cm.Function.URL,
		}
		return c.do(ctx, http.MethodPost, "/hooks/functions", body, nil)

	case types.UpdateFunction:
		body := map[string]interface{}{"url": cm.Function.URL}
		return c.do(ctx, http.MethodPut, "/hooks/functions/"+url.PathEscape(cm.Function.FunctionName), body, nil)

	case types.DeleteFunction:
		return c.tolerateMissing(c.do(ctx, http.MethodDelete, "/hooks/functions/"+url.PathEscape(cm.FunctionName), nil, nil))

	case types.AddTrigger:
		body := map[string]interface{}{
			"className":   cm.Trigger.ClassName,
			"triggerName": cm.Trigger.TriggerName,
			"url":         cm.Trigger.URL,
		}
		return c.do(ctx, http.MethodPost, "/hooks/triggers", body, nil)

	case types.UpdateTrigger:
		body := map[string]interface{}{"url": cm.Trigger.URL}
		return c.do(ctx, http.MethodPut, triggerPath(cm.Trigger.ClassName, cm.Trigger.TriggerName), body, nil)

	case types.DeleteTrigger:
		return c.tolerateMissing(c.do(ctx, http.MethodDelete, triggerPath(cm.ClassName, cm.TriggerName), nil, nil))

	default:
		return drifterrors.New(drifterrors.ErrCategoryInternal, drifterrors.CodeUnexpected,
			fmt.Sprintf("unsupported command type %T", cmd))
	}
}

func (c *Client) putFields(ctx context.Context, className string, fields map[string]interface{}) error {
	body := map[string]interface{}{
		"className": className,
		"fields":    fields,
	}
	return c.do(ctx, http.MethodPut, "/schemas/"+url.PathEscape(className), body, nil)
}

func (c *Client) putIndexes(ctx context.Context, className string, indexes map[string]interface{}) error {
	body := map[string]interface{}{
		"className": className,
		"indexes":   indexes,
	}
	return c.do(ctx, http.MethodPut, "/schemas/"+url.PathEscape(className), body, nil)
}

func deleteOp() map[string]interface{} {
	return map[string]interface{}{"__op": "Delete"}
}

func triggerPath(className, triggerName string) string {
	return "/hooks/triggers/" + url.PathEscape(className) + "/" + url.PathEscape(triggerName)
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote: HTTP %d", e.StatusCode)
}

// tolerateMissing swallows not-found failures on delete operations so that
// re-applying a partially applied plan is safe.
func (c *Client) tolerateMissing(err error) error {
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

// do issues one JSON request and decodes the response into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("remote: failed to build request: %w", err)
	}
	req.Header.Set("X-App-Id", c.creds.ApplicationID)
	req.Header.Set("X-Master-Key", c.creds.MasterKey)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("remote: failed to decode response: %w", err)
		}
	}
	return nil
}

// stripSystemFields removes backend-managed fields from a fetched collection
// so they never surface as drift.
func stripSystemFields(coll *types.CollectionDefinition) {
	for name := range coll.Fields {
		if types.SystemFields[name] {
			delete(coll.Fields, name)
		}
	}
}
