// Package types defines the schema model and the change-command model shared
// by the planner, the reconciliation facade, and the remote client.
package types

// Schema describes a full backend schema: collections, remote functions,
// and triggers. Two Schema values are diffed against each other — the
// desired one supplied by the caller and the observed one fetched live.
// Diffing never mutates either value.
type Schema struct {
	Collections []CollectionDefinition `json:"collections" yaml:"collections"`
	Functions   []FunctionDefinition   `json:"functions,omitempty" yaml:"functions,omitempty"`
	Triggers    []TriggerDefinition    `json:"triggers,omitempty" yaml:"triggers,omitempty"`
}

// CollectionDefinition describes one collection (class). ClassName is the
// identity key across schema versions.
type CollectionDefinition struct {
	ClassName string `json:"className" yaml:"className"`

	// Fields maps field name to its definition.
	Fields map[string]FieldDefinition `json:"fields" yaml:"fields"`

	// Indexes maps index name to its definition. May be nil, which is
	// treated as an empty map everywhere.
	Indexes map[string]IndexDefinition `json:"indexes,omitempty" yaml:"indexes,omitempty"`

	// ClassLevelPermissions maps action name to role (or "*" for public)
	// to allowed.
	ClassLevelPermissions Permissions `json:"classLevelPermissions,omitempty" yaml:"classLevelPermissions,omitempty"`
}

// FieldDefinition is an opaque structured value describing a field's type and
// constraints, e.g. {"type": "Pointer", "targetClass": "_User"}. Fields are
// compared for presence and whole-value structural equality; key order never
// matters.
type FieldDefinition map[string]interface{}

// IndexDefinition is an opaque structured value mapping field name to sort
// direction, e.g. {"score": -1}. Compared the same way as FieldDefinition.
type IndexDefinition map[string]interface{}

// Permissions is a class-level permission table: action -> role/public -> bool.
type Permissions map[string]map[string]bool

// FunctionDefinition describes a remote function. FunctionName is the
// identity key.
type FunctionDefinition struct {
	FunctionName string `json:"functionName" yaml:"functionName"`
	URL          string `json:"url" yaml:"url"`
}

// TriggerDefinition describes a trigger on a collection. The identity key is
// the (TriggerName, ClassName) pair.
type TriggerDefinition struct {
	ClassName   string `json:"className" yaml:"className"`
	TriggerName string `json:"triggerName" yaml:"triggerName"`
	URL         string `json:"url" yaml:"url"`
}

// Key returns the trigger's identity key.
func (t TriggerDefinition) Key() TriggerKey {
	return TriggerKey{TriggerName: t.TriggerName, ClassName: t.ClassName}
}

// TriggerKey is the composite identity key of a trigger.
type TriggerKey struct {
	TriggerName string
	ClassName   string
}

// Clone returns a deep copy of the field definition.
func (f FieldDefinition) Clone() FieldDefinition {
	if f == nil {
		return nil
	}
	return FieldDefinition(cloneValue(map[string]interface{}(f)).(map[string]interface{}))
}

// Clone returns a deep copy of the index definition.
func (i IndexDefinition) Clone() IndexDefinition {
	if i == nil {
		return nil
	}
	return IndexDefinition(cloneValue(map[string]interface{}(i)).(map[string]interface{}))
}

// Clone returns a deep copy of the permission table.
func (p Permissions) Clone() Permissions {
	if p == nil {
		return nil
	}
	cp := make(Permissions, len(p))
	for action, roles := range p {
		rc := make(map[string]bool, len(roles))
		for role, allowed := range roles {
			rc[role] = allowed
		}
		cp[action] = rc
	}
	return cp
}

// Clone returns a deep copy of the collection definition.
func (c CollectionDefinition) Clone() CollectionDefinition {
	cp := CollectionDefinition{
		ClassName:             c.ClassName,
		ClassLevelPermissions: c.ClassLevelPermissions.Clone(),
	}
	if c.Fields != nil {
		cp.Fields = make(map[string]FieldDefinition, len(c.Fields))
		for name, def := range c.Fields {
			cp.Fields[name] = def.Clone()
		}
	}
	if c.Indexes != nil {
		cp.Indexes = make(map[string]IndexDefinition, len(c.Indexes))
		for name, def := range c.Indexes {
			cp.Indexes[name] = def.Clone()
		}
	}
	return cp
}

// WithoutIndexes returns a copy of the collection definition with an empty
// index map. Used when index management is disabled: a newly added collection
// must not silently carry indexes.
func (c CollectionDefinition) WithoutIndexes() CollectionDefinition {
	cp := c.Clone()
	cp.Indexes = map[string]IndexDefinition{}
	return cp
}

// SystemFields are backend-managed fields present on every collection. The
// backend maintains them itself, so they are excluded from diffing on both
// the desired and the observed side.
var SystemFields = map[string]bool{
	"objectId":  true,
	"createdAt": true,
	"updatedAt": true,
	"ACL":       true,
}

// WithoutSystemFields returns a copy of the collection definition with
// backend-managed fields removed.
func (c CollectionDefinition) WithoutSystemFields() CollectionDefinition {
	cp := c.Clone()
	for name := range cp.Fields {
		if SystemFields[name] {
			delete(cp.Fields, name)
		}
	}
	return cp
}

// cloneValue deep-copies the JSON-shaped value graphs used by field and index
// definitions (maps, slices, primitives).
func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(val))
		for k, elem := range val {
			cp[k] = cloneValue(elem)
		}
		return cp
	case []interface{}:
		cp := make([]interface{}, len(val))
		for i, elem := range val {
			cp[i] = cloneValue(elem)
		}
		return cp
	default:
		return val
	}
}

// Violation describes one structural problem found in a desired schema.
type Violation struct {
	// Code identifies the rule that was broken.
	Code string

	// ClassName is the collection involved, if any.
	ClassName string

	// Field is the field or index name involved, if any.
	Field string

	// Message is a human-readable description.
	Message string
}

// String renders the violation as a single diagnostic line.
func (v Violation) String() string {
	out := v.Code
	if v.ClassName != "" {
		out += " class=" + v.ClassName
	}
	if v.Field != "" {
		out += " field=" + v.Field
	}
	return out + ": " + v.Message
}
