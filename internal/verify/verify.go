// Package verify validates a desired schema against structural rules before
// planning is attempted. Verification is pure: it returns the full violation
// list and never touches the network.
package verify

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/arkilian/drift/pkg/types"
)

// Violation codes.
const (
	CodeDuplicateClass       = "DUPLICATE_CLASS"
	CodeDuplicateFunction    = "DUPLICATE_FUNCTION"
	CodeDuplicateTrigger     = "DUPLICATE_TRIGGER"
	CodeInvalidClassName     = "INVALID_CLASS_NAME"
	CodeInvalidFieldName     = "INVALID_FIELD_NAME"
	CodeInvalidIndexName     = "INVALID_INDEX_NAME"
	CodeMissingFieldType     = "MISSING_FIELD_TYPE"
	CodeMissingTargetClass   = "MISSING_TARGET_CLASS"
	CodeReservedFieldType    = "RESERVED_FIELD_TYPE"
	CodeEmptyIndex           = "EMPTY_INDEX"
	CodeMissingFunctionName  = "MISSING_FUNCTION_NAME"
	CodeMissingFunctionURL   = "MISSING_FUNCTION_URL"
	CodeInvalidTriggerName   = "INVALID_TRIGGER_NAME"
	CodeMissingTriggerClass  = "MISSING_TRIGGER_CLASS"
	CodeMissingTriggerURL    = "MISSING_TRIGGER_URL"
)

var (
	classNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	fieldNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	indexNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// systemClasses are backend-managed classes whose names start with an
// underscore but are still legal to declare.
var systemClasses = map[string]bool{
	"_User":         true,
	"_Role":         true,
	"_Session":      true,
	"_Installation": true,
}

// reservedFields are system fields present on every collection. They may be
// declared in a desired schema, but only with their expected type.
var reservedFields = map[string]string{
	"objectId":  "String",
	"createdAt": "Date",
	"updatedAt": "Date",
	"ACL":       "ACL",
}

// triggerNames are the recognized trigger kinds.
var triggerNames = map[string]bool{
	"beforeSave":   true,
	"afterSave":    true,
	"beforeDelete": true,
	"afterDelete":  true,
	"beforeFind":   true,
}

// Verify checks the desired schema against all structural rules and returns
// every violation found. An empty result means the schema is safe to plan.
func Verify(desired types.Schema) []types.Violation {
	var out []types.Violation

	seenClasses := make(map[string]bool)
	for _, coll := range desired.Collections {
		if seenClasses[coll.ClassName] {
			out = append(out, types.Violation{
				Code:      CodeDuplicateClass,
				ClassName: coll.ClassName,
				Message:   "collection declared more than once",
			})
			continue
		}
		seenClasses[coll.ClassName] = true
		out = append(out, verifyCollection(coll)...)
	}

	seenFunctions := make(map[string]bool)
	for _, fn := range desired.Functions {
		if fn.FunctionName == "" {
			out = append(out, types.Violation{
				Code:    CodeMissingFunctionName,
				Message: "function declared without a name",
			})
			continue
		}
		if seenFunctions[fn.FunctionName] {
			out = append(out, types.Violation{
				Code:    CodeDuplicateFunction,
				Field:   fn.FunctionName,
				Message: "function declared more than once",
			})
			continue
		}
		seenFunctions[fn.FunctionName] = true
		if fn.URL == "" {
			out = append(out, types.Violation{
				Code:    CodeMissingFunctionURL,
				Field:   fn.FunctionName,
				Message: "function has no url",
			})
		}
	}

	seenTriggers := make(map[types.TriggerKey]bool)
	for _, tr := range desired.Triggers {
		if tr.ClassName == "" {
			out = append(out, types.Violation{
				Code:    CodeMissingTriggerClass,
				Field:   tr.TriggerName,
				Message: "trigger declared without a class",
			})
			continue
		}
		if !triggerNames[tr.TriggerName] {
			out = append(out, types.Violation{
				Code:      CodeInvalidTriggerName,
				ClassName: tr.ClassName,
				Field:     tr.TriggerName,
				Message:   "unrecognized trigger name",
			})
			continue
		}
		if seenTriggers[tr.Key()] {
			out = append(out, types.Violation{
				Code:      CodeDuplicateTrigger,
				ClassName: tr.ClassName,
				Field:     tr.TriggerName,
				Message:   "trigger declared more than once",
			})
			continue
		}
		seenTriggers[tr.Key()] = true
		if tr.URL == "" {
			out = append(out, types.Violation{
				Code:      CodeMissingTriggerURL,
				ClassName: tr.ClassName,
				Field:     tr.TriggerName,
				Message:   "trigger has no url",
			})
		}
	}

	return out
}

func verifyCollection(coll types.CollectionDefinition) []types.Violation {
	var out []types.Violation

	if !classNameRe.MatchString(coll.ClassName) && !systemClasses[coll.ClassName] {
		out = append(out, types.Violation{
			Code:      CodeInvalidClassName,
			ClassName: coll.ClassName,
			Message:   "class name must start with a letter and contain only letters, digits, and underscores",
		})
	}

	// Sorted iteration keeps the violation list deterministic across runs.
	for _, name := range sortedNames(coll.Fields) {
		def := coll.Fields[name]
		if expected, reserved := reservedFields[name]; reserved {
			if got, _ := def["type"].(string); got != expected {
				out = append(out, types.Violation{
					Code:      CodeReservedFieldType,
					ClassName: coll.ClassName,
					Field:     name,
					Message:   fmt.Sprintf("reserved field must have type %s", expected),
				})
			}
			continue
		}
		if !fieldNameRe.MatchString(name) {
			out = append(out, types.Violation{
				Code:      CodeInvalidFieldName,
				ClassName: coll.ClassName,
				Field:     name,
				Message:   "field name must start with a letter and contain only letters, digits, and underscores",
			})
			continue
		}
		fieldType, _ := def["type"].(string)
		if fieldType == "" {
			out = append(out, types.Violation{
				Code:      CodeMissingFieldType,
				ClassName: coll.ClassName,
				Field:     name,
				Message:   "field definition has no type",
			})
			continue
		}
		if fieldType == "Pointer" || fieldType == "Relation" {
			if target, _ := def["targetClass"].(string); target == "" {
				out = append(out, types.Violation{
					Code:      CodeMissingTargetClass,
					ClassName: coll.ClassName,
					Field:     name,
					Message:   fieldType + " field has no targetClass",
				})
			}
		}
	}

	for _, name := range sortedIndexNames(coll.Indexes) {
		def := coll.Indexes[name]
		if !indexNameRe.MatchString(name) {
			out = append(out, types.Violation{
				Code:      CodeInvalidIndexName,
				ClassName: coll.ClassName,
				Field:     name,
				Message:   "index name contains invalid characters",
			})
			continue
		}
		if len(def) == 0 {
			out = append(out, types.Violation{
				Code:      CodeEmptyIndex,
				ClassName: coll.ClassName,
				Field:     name,
				Message:   "index covers no fields",
			})
		}
	}

	return out
}

func sortedNames(m map[string]types.FieldDefinition) []string {
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
