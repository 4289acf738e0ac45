package schemafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arkilian/drift/pkg/types"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp schema: %v", err)
	}
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeTemp(t, "schema.json", `{
		"collections": [
			{
				"className": "Game",
				"fields": {
					"title": {"type": "String"},
					"owner": {"type": "Pointer", "targetClass": "_User"}
				},
				"indexes": {
					"title_idx": {"title": 1}
				},
				"classLevelPermissions": {
					"find": {"*": true}
				}
			}
		],
		"functions": [
			{"functionName": "tally", "url": "/tally"}
		],
		"triggers": [
			{"className": "Game", "triggerName": "beforeSave", "url": "/game/beforeSave"}
		]
	}`)

	schema, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load schema: %v", err)
	}

	if len(schema.Collections) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(schema.Collections))
	}
	coll := schema.Collections[0]
	if coll.ClassName != "Game" {
		t.Errorf("expected Game, got %s", coll.ClassName)
	}
	if got, _ := coll.Fields["owner"]["targetClass"].(string); got != "_User" {
		t.Errorf("expected owner targetClass _User, got %v", got)
	}
	if got := coll.Indexes["title_idx"]["title"]; got != float64(1) {
		t.Errorf("expected index direction 1, got %v (%T)", got, got)
	}
	if !coll.ClassLevelPermissions["find"]["*"] {
		t.Error("expected public find permission")
	}
	if len(schema.Functions) != 1 || schema.Functions[0].FunctionName != "tally" {
		t.Errorf("unexpected functions: %v", schema.Functions)
	}
	if len(schema.Triggers) != 1 || schema.Triggers[0].TriggerName != "beforeSave" {
		t.Errorf("unexpected triggers: %v", schema.Triggers)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeTemp(t, "schema.yaml", `
collections:
  - className: Game
    fields:
      title:
        type: String
      score:
        type: Number
    indexes:
      score_idx:
        score: -1
functions:
  - functionName: tally
    url: /tally
`)

	schema, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load schema: %v", err)
	}

	coll := schema.Collections[0]
	if got, _ := coll.Fields["title"]["type"].(string); got != "String" {
		t.Errorf("expected title type String, got %v", got)
	}
	if len(schema.Functions) != 1 {
		t.Errorf("expected 1 function, got %d", len(schema.Functions))
	}
}

// YAML and JSON renditions of the same schema must load to values the
// planner considers identical, regardless of decoder numeric types.
func TestLoad_YAMLAndJSONAgree(t *testing.T) {
	jsonPath := writeTemp(t, "schema.json", `{
		"collections": [
			{"className": "Game", "fields": {"score": {"type": "Number"}}, "indexes": {"score_idx": {"score": -1}}}
		]
	}`)
	yamlPath := writeTemp(t, "schema.yaml", `
collections:
  - className: Game
    fields:
      score:
        type: Number
    indexes:
      score_idx:
        score: -1
`)

	fromJSON, err := Load(jsonPath)
	if err != nil {
		t.Fatalf("json load: %v", err)
	}
	fromYAML, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("yaml load: %v", err)
	}

	jsonIdx := fromJSON.Collections[0].Indexes["score_idx"]["score"]
	yamlIdx := fromYAML.Collections[0].Indexes["score_idx"]["score"]
	jf, jok := jsonIdx.(float64)
	if !jok {
		t.Fatalf("json index direction is %T, want float64", jsonIdx)
	}
	switch yv := yamlIdx.(type) {
	case float64:
		if yv != jf {
			t.Errorf("directions disagree: %v vs %v", yv, jf)
		}
	case int:
		if float64(yv) != jf {
			t.Errorf("directions disagree: %v vs %v", yv, jf)
		}
	default:
		t.Fatalf("yaml index direction is %T", yamlIdx)
	}
}

func TestLoad_UnknownTopLevelKeyRejected(t *testing.T) {
	path := writeTemp(t, "schema.json", `{"collectons": []}`)
	if _, err := Load(path); err == nil {
		t.Fatal("misspelled keys must fail the load")
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeTemp(t, "schema.txt", "collections: []")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_EmptySchema(t *testing.T) {
	path := writeTemp(t, "schema.json", `{"collections": []}`)
	schema, err := Load(path)
	if err != nil {
		t.Fatalf("empty schema is valid: %v", err)
	}
	if len(schema.Collections) != 0 {
		t.Errorf("expected no collections, got %v", schema.Collections)
	}
	var _ types.Schema = schema
}
