package events

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// FieldType enumerates the primitive types a schema field may declare.
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldNumber    FieldType = "number"
	FieldBool      FieldType = "bool"
	FieldMapping   FieldType = "mapping"
	FieldList      FieldType = "list"
	FieldTimestamp FieldType = "timestamp"
)

// parseFieldType normalizes a field type declared in a schema file.
func parseFieldType(s string) (FieldType, error) {
	switch FieldType(strings.ToLower(strings.TrimSpace(s))) {
	case FieldString:
		return FieldString, nil
	case FieldNumber:
		return FieldNumber, nil
	case FieldBool:
		return FieldBool, nil
	case FieldMapping:
		return FieldMapping, nil
	case FieldList:
		return FieldList, nil
	case FieldTimestamp:
		return FieldTimestamp, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// Schema describes the structural shape one event type's data payload must
// have: required fields must be present with the declared type, optional
// fields are type-checked only when present.
type Schema struct {
	Required map[string]FieldType
	Optional map[string]FieldType
}

// ValidationResult reports the outcome of a schema check.
type ValidationResult struct {
	// SchemaFound is false when no schema is registered for the event
	// type. Such events always pass; publishers are not coupled to every
	// consumer-defined event shape.
	SchemaFound bool
	Violations  []string
}

// OK reports whether the event data passed validation.
func (r ValidationResult) OK() bool { return len(r.Violations) == 0 }

// SchemaRegistry maps event-type strings to structural validators. Entries
// are registered at process start and read-only afterwards.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewSchemaRegistry returns an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]Schema)}
}

// Register associates a schema with an event type, replacing any previous
// entry. Empty event types are ignored.
func (r *SchemaRegistry) Register(eventType string, s Schema) {
	if eventType = strings.TrimSpace(eventType); eventType == "" {
		return
	}
	r.mu.Lock()
	r.schemas[eventType] = s
	r.mu.Unlock()
}

// Types returns the registered event types, sorted.
func (r *SchemaRegistry) Types() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Validate checks data against the schema registered for eventType.
// Unregistered event types always pass. Violations are aggregated and
// sorted by field name so the result is deterministic. The data mapping is
// never mutated and no I/O is performed.
func (r *SchemaRegistry) Validate(eventType string, data map[string]any) ValidationResult {
	r.mu.RLock()
	schema, ok := r.schemas[eventType]
	r.mu.RUnlock()
	if !ok {
		return ValidationResult{}
	}

	var violations []string
	for name, typ := range schema.Required {
		v, present := data[name]
		if !present {
			violations = append(violations, fmt.Sprintf("missing required field %q", name))
			continue
		}
		if !matchesType(v, typ) {
			violations = append(violations, fmt.Sprintf("field %q is not a %s", name, typ))
		}
	}
	for name, typ := range schema.Optional {
		v, present := data[name]
		if !present || v == nil {
			continue
		}
		if !matchesType(v, typ) {
			violations = append(violations, fmt.Sprintf("field %q is not a %s", name, typ))
		}
	}
	sort.Strings(violations)
	return ValidationResult{SchemaFound: true, Violations: violations}
}

func matchesType(v any, t FieldType) bool {
	switch t {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldBool:
		_, ok := v.(bool)
		return ok
	case FieldNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64, json.Number:
			return true
		}
		return false
	case FieldMapping:
		_, ok := v.(map[string]any)
		return ok
	case FieldList:
		switch v.(type) {
		case []any, []string:
			return true
		}
		return false
	case FieldTimestamp:
		switch tv := v.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339, tv)
			return err == nil
		}
		return false
	}
	return false
}
