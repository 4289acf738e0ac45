// Package schemafile loads a desired schema from a JSON or YAML file.
package schemafile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arkilian/drift/pkg/types"
)

// Load reads a desired schema from path. The format is chosen by file
// extension; unknown top-level keys are rejected so typos surface as load
// errors instead of silently planned deletions.
func Load(path string) (types.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Schema{}, fmt.Errorf("schemafile: failed to read %s: %w", path, err)
	}

	var schema types.Schema
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&schema); err != nil {
			return types.Schema{}, fmt.Errorf("schemafile: failed to parse YAML schema %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&schema); err != nil {
			return types.Schema{}, fmt.Errorf("schemafile: failed to parse JSON schema %s: %w", path, err)
		}
	default:
		return types.Schema{}, fmt.Errorf("schemafile: unsupported schema file format: %s", ext)
	}

	normalize(&schema)
	return schema, nil
}

// normalize converts the nested map values produced by the YAML decoder into
// the JSON-shaped form (map[string]interface{}) the planner compares.
func normalize(schema *types.Schema) {
	for i := range schema.Collections {
		coll := &schema.Collections[i]
		for name, def := range coll.Fields {
			coll.Fields[name] = types.FieldDefinition(normalizeMap(def))
		}
		for name, def := range coll.Indexes {
			coll.Indexes[name] = types.IndexDefinition(normalizeMap(def))
		}
	}
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return normalizeMap(val)
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, elem := range val {
			out[fmt.Sprintf("%v", k)] = normalizeValue(elem)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = normalizeValue(elem)
		}
		return out
	default:
		return val
	}
}
