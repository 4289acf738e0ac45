package types

import (
	"fmt"
	"sort"
	"strings"
)

// Command is one schema change operation. The set of implementations is
// closed: every command the planner can emit is one of the structs below,
// carrying only its identity key and the minimal payload needed to apply or
// render it.
type Command interface {
	// Render returns a deterministic single-line human-readable
	// description, used for plan output and drift diagnostics.
	Render() string

	isCommand()
}

// AddCollection creates a new collection with its fields and permissions.
// Indexes of a new collection are always planned as separate AddIndex
// commands and must not ride along here.
type AddCollection struct {
	Collection CollectionDefinition
}

// DeleteCollection drops an existing collection.
type DeleteCollection struct {
	ClassName string
}

// UpdateCollectionPermissions replaces a collection's class-level
// permissions. The old table is carried so the executor can compute a
// correct replace.
type UpdateCollectionPermissions struct {
	ClassName      string
	NewPermissions Permissions
	OldPermissions Permissions
}

// AddColumn adds a field to an existing collection.
type AddColumn struct {
	ClassName string
	Name      string
	Column    FieldDefinition
}

// UpdateColumn redefines an existing field.
type UpdateColumn struct {
	ClassName string
	Name      string
	Column    FieldDefinition
}

// DeleteColumn removes a field from a collection.
type DeleteColumn struct {
	ClassName string
	Name      string
}

// AddIndex creates an index on a collection.
type AddIndex struct {
	ClassName string
	Name      string
	Index     IndexDefinition
}

// UpdateIndex redefines an existing index.
type UpdateIndex struct {
	ClassName string
	Name      string
	Index     IndexDefinition
}

// DeleteIndex drops an index from a collection.
type DeleteIndex struct {
	ClassName string
	Name      string
}

// AddFunction registers a remote function.
type AddFunction struct {
	Function FunctionDefinition
}

// UpdateFunction changes a remote function's URL.
type UpdateFunction struct {
	Function FunctionDefinition
}

// DeleteFunction removes a remote function.
type DeleteFunction struct {
	FunctionName string
}

// AddTrigger registers a trigger on a collection.
type AddTrigger struct {
	Trigger TriggerDefinition
}

// UpdateTrigger changes a trigger's URL.
type UpdateTrigger struct {
	Trigger TriggerDefinition
}

// DeleteTrigger removes a trigger from a collection.
type DeleteTrigger struct {
	ClassName   string
	TriggerName string
}

func (AddCollection) isCommand()               {}
func (DeleteCollection) isCommand()            {}
func (UpdateCollectionPermissions) isCommand() {}
func (AddColumn) isCommand()                   {}
func (UpdateColumn) isCommand()                {}
func (DeleteColumn) isCommand()                {}
func (AddIndex) isCommand()                    {}
func (UpdateIndex) isCommand()                 {}
func (DeleteIndex) isCommand()                 {}
func (AddFunction) isCommand()                 {}
func (UpdateFunction) isCommand()              {}
func (DeleteFunction) isCommand()              {}
func (AddTrigger) isCommand()                  {}
func (UpdateTrigger) isCommand()               {}
func (DeleteTrigger) isCommand()               {}

// Render implements Command.
func (c AddCollection) Render() string {
	fields := make([]string, 0, len(c.Collection.Fields))
	for name := range c.Collection.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fmt.Sprintf("add collection %s (fields: %s)", c.Collection.ClassName, strings.Join(fields, ", "))
}

// Render implements Command.
func (c DeleteCollection) Render() string {
	return "delete collection " + c.ClassName
}

// Render implements Command.
func (c UpdateCollectionPermissions) Render() string {
	return "update permissions of collection " + c.ClassName
}

// Render implements Command.
func (c AddColumn) Render() string {
	return fmt.Sprintf("add column %s.%s %s", c.ClassName, c.Name, renderValue(map[string]interface{}(c.Column)))
}

// Render implements Command.
func (c UpdateColumn) Render() string {
	return fmt.Sprintf("update column %s.%s %s", c.ClassName, c.Name, renderValue(map[string]interface{}(c.Column)))
}

// Render implements Command.
func (c DeleteColumn) Render() string {
	return fmt.Sprintf("delete column %s.%s", c.ClassName, c.Name)
}

// Render implements Command.
func (c AddIndex) Render() string {
	return fmt.Sprintf("add index %s.%s %s", c.ClassName, c.Name, renderValue(map[string]interface{}(c.Index)))
}

// Render implements Command.
func (c UpdateIndex) Render() string {
	return fmt.Sprintf("update index %s.%s %s", c.ClassName, c.Name, renderValue(map[string]interface{}(c.Index)))
}

// Render implements Command.
func (c DeleteIndex) Render() string {
	return fmt.Sprintf("delete index %s.%s", c.ClassName, c.Name)
}

// Render implements Command.
func (c AddFunction) Render() string {
	return fmt.Sprintf("add function %s -> %s", c.Function.FunctionName, c.Function.URL)
}

// Render implements Command.
func (c UpdateFunction) Render() string {
	return fmt.Sprintf("update function %s -> %s", c.Function.FunctionName, c.Function.URL)
}

// Render implements Command.
func (c DeleteFunction) Render() string {
	return "delete function " + c.FunctionName
}

// Render implements Command.
func (c AddTrigger) Render() string {
	return fmt.Sprintf("add trigger %s on %s -> %s", c.Trigger.TriggerName, c.Trigger.ClassName, c.Trigger.URL)
}

// Render implements Command.
func (c UpdateTrigger) Render() string {
	return fmt.Sprintf("update trigger %s on %s -> %s", c.Trigger.TriggerName, c.Trigger.ClassName, c.Trigger.URL)
}

// Render implements Command.
func (c DeleteTrigger) Render() string {
	return fmt.Sprintf("delete trigger %s on %s", c.TriggerName, c.ClassName)
}

// renderValue renders a JSON-shaped value with sorted map keys so that
// command rendering is deterministic regardless of map iteration order.
func renderValue(v interface{}) string {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + renderValue(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []interface{}:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = renderValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}
