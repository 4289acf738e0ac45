package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/drift/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Credentials: Credentials{
			ApplicationID: "test-app",
			MasterKey:     "test-key",
		},
	})
	return client, server
}

func TestFetchSchema(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /schemas", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-app", r.Header.Get("X-App-Id"))
		assert.Equal(t, "test-key", r.Header.Get("X-Master-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"className": "Game",
					"fields": map[string]interface{}{
						"objectId":  map[string]interface{}{"type": "String"},
						"createdAt": map[string]interface{}{"type": "Date"},
						"updatedAt": map[string]interface{}{"type": "Date"},
						"ACL":       map[string]interface{}{"type": "ACL"},
						"title":     map[string]interface{}{"type": "String"},
					},
					"classLevelPermissions": map[string]interface{}{
						"find": map[string]interface{}{"*": true},
					},
				},
			},
		})
	})
	mux.HandleFunc("GET /hooks/functions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"functionName": "tally", "url": "/tally"},
		})
	})
	mux.HandleFunc("GET /hooks/triggers", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"className": "Game", "triggerName": "beforeSave", "url": "/game/beforeSave"},
		})
	})

	client, _ := newTestClient(t, mux)
	schema, err := client.FetchSchema(context.Background())
	require.NoError(t, err)

	require.Len(t, schema.Collections, 1)
	coll := schema.Collections[0]
	assert.Equal(t, "Game", coll.ClassName)
	assert.Contains(t, coll.Fields, "title")
	for _, system := range []string{"objectId", "createdAt", "updatedAt", "ACL"} {
		assert.NotContains(t, coll.Fields, system, "system fields are stripped from the observed schema")
	}
	assert.True(t, coll.ClassLevelPermissions["find"]["*"])

	require.Len(t, schema.Functions, 1)
	assert.Equal(t, "tally", schema.Functions[0].FunctionName)

	require.Len(t, schema.Triggers, 1)
	assert.Equal(t, types.TriggerKey{TriggerName: "beforeSave", ClassName: "Game"}, schema.Triggers[0].Key())
}

func TestFetchSchema_SubFetchFailureFailsWholeFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /schemas", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []interface{}{}})
	})
	mux.HandleFunc("GET /hooks/functions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "hooks unavailable"})
	})
	mux.HandleFunc("GET /hooks/triggers", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]interface{}{})
	})

	client, _ := newTestClient(t, mux)
	_, err := client.FetchSchema(context.Background())
	require.Error(t, err, "no partial observed schema")
	assert.Contains(t, err.Error(), "hooks unavailable")
}

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

func recordingServer(t *testing.T) (*Client, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		requests = append(requests, rec)
		w.Write([]byte("{}"))
	}))
	return client, &requests
}

func TestApplyCommand_AddCollection(t *testing.T) {
	client, requests := recordingServer(t)

	err := client.ApplyCommand(context.Background(), types.AddCollection{
		Collection: types.CollectionDefinition{
			ClassName:             "Game",
			Fields:                map[string]types.FieldDefinition{"title": {"type": "String"}},
			Indexes:               map[string]types.IndexDefinition{},
			ClassLevelPermissions: types.Permissions{"find": {"*": true}},
		},
	})
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/schemas/Game", req.Path)
	assert.Equal(t, "Game", req.Body["className"])
	assert.NotContains(t, req.Body, "indexes", "an empty index map is not sent")
}

func TestApplyCommand_ColumnOperations(t *testing.T) {
	client, requests := recordingServer(t)
	ctx := context.Background()

	require.NoError(t, client.ApplyCommand(ctx, types.AddColumn{
		ClassName: "Game", Name: "score", Column: types.FieldDefinition{"type": "Number"},
	}))
	require.NoError(t, client.ApplyCommand(ctx, types.DeleteColumn{ClassName: "Game", Name: "legacy"}))
	require.NoError(t, client.ApplyCommand(ctx, types.UpdateColumn{
		ClassName: "Game", Name: "score", Column: types.FieldDefinition{"type": "String"},
	}))

	require.Len(t, *requests, 4)

	add := (*requests)[0]
	assert.Equal(t, http.MethodPut, add.Method)
	assert.Equal(t, "/schemas/Game", add.Path)
	fields := add.Body["fields"].(map[string]interface{})
	assert.Equal(t, "Number", fields["score"].(map[string]interface{})["type"])

	del := (*requests)[1]
	fields = del.Body["fields"].(map[string]interface{})
	assert.Equal(t, "Delete", fields["legacy"].(map[string]interface{})["__op"])

	// UpdateColumn decomposes into a field delete followed by a re-add.
	updDel := (*requests)[2]
	fields = updDel.Body["fields"].(map[string]interface{})
	assert.Equal(t, "Delete", fields["score"].(map[string]interface{})["__op"])
	updAdd := (*requests)[3]
	fields = updAdd.Body["fields"].(map[string]interface{})
	assert.Equal(t, "String", fields["score"].(map[string]interface{})["type"])
}

func TestApplyCommand_IndexOperations(t *testing.T) {
	client, requests := recordingServer(t)
	ctx := context.Background()

	require.NoError(t, client.ApplyCommand(ctx, types.AddIndex{
		ClassName: "Game", Name: "score_idx", Index: types.IndexDefinition{"score": float64(-1)},
	}))
	require.NoError(t, client.ApplyCommand(ctx, types.DeleteIndex{ClassName: "Game", Name: "old_idx"}))

	require.Len(t, *requests, 2)

	add := (*requests)[0]
	assert.Equal(t, http.MethodPut, add.Method)
	indexes := add.Body["indexes"].(map[string]interface{})
	assert.Equal(t, float64(-1), indexes["score_idx"].(map[string]interface{})["score"])

	del := (*requests)[1]
	indexes = del.Body["indexes"].(map[string]interface{})
	assert.Equal(t, "Delete", indexes["old_idx"].(map[string]interface{})["__op"])
}

func TestApplyCommand_HookOperations(t *testing.T) {
	client, requests := recordingServer(t)
	ctx := context.Background()

	require.NoError(t, client.ApplyCommand(ctx, types.AddFunction{
		Function: types.FunctionDefinition{FunctionName: "tally", URL: "/tally"},
	}))
	require.NoError(t, client.ApplyCommand(ctx, types.UpdateFunction{
		Function: types.FunctionDefinition{FunctionName: "tally", URL: "/tally/v2"},
	}))
	require.NoError(t, client.ApplyCommand(ctx, types.AddTrigger{
		Trigger: types.TriggerDefinition{ClassName: "Game", TriggerName: "beforeSave", URL: "/game/beforeSave"},
	}))
	require.NoError(t, client.ApplyCommand(ctx, types.DeleteTrigger{
		ClassName: "Game", TriggerName: "beforeSave",
	}))

	require.Len(t, *requests, 4)
	assert.Equal(t, "/hooks/functions", (*requests)[0].Path)
	assert.Equal(t, http.MethodPost, (*requests)[0].Method)
	assert.Equal(t, "/hooks/functions/tally", (*requests)[1].Path)
	assert.Equal(t, http.MethodPut, (*requests)[1].Method)
	assert.Equal(t, "/hooks/triggers", (*requests)[2].Path)
	assert.Equal(t, "/hooks/triggers/Game/beforeSave", (*requests)[3].Path)
	assert.Equal(t, http.MethodDelete, (*requests)[3].Method)
}

func TestApplyCommand_DeleteToleratesMissing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "class not found"})
	}))

	err := client.ApplyCommand(context.Background(), types.DeleteCollection{ClassName: "Gone"})
	assert.NoError(t, err, "deleting an already-absent entity is a safe retry")
}

func TestApplyCommand_ErrorSurfacesMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid field type"})
	}))

	err := client.ApplyCommand(context.Background(), types.AddColumn{
		ClassName: "Game", Name: "bad", Column: types.FieldDefinition{"type": "Nope"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid field type")
	assert.Contains(t, err.Error(), "400")
}
