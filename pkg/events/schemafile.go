package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// schemaFile represents the structure of a schema definitions file.
type schemaFile struct {
	Schemas []SchemaDefinition `json:"schemas" yaml:"schemas"`
}

// SchemaDefinition is one schema entry declared in config files.
type SchemaDefinition struct {
	EventType string            `json:"event_type" yaml:"event_type"`
	Fields    []FieldDefinition `json:"fields" yaml:"fields"`
}

// FieldDefinition declares a single payload field.
type FieldDefinition struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
}

// LoadSchemaRegistry loads schema definitions from a YAML/JSON file.
func LoadSchemaRegistry(path string) (*SchemaRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("schema file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	file, err := parseSchemaFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(file.Schemas) == 0 {
		return nil, errors.New("schema file contains no schemas entries")
	}

	reg := NewSchemaRegistry()
	seen := make(map[string]struct{}, len(file.Schemas))
	for i, def := range file.Schemas {
		eventType, schema, err := def.schema()
		if err != nil {
			return nil, fmt.Errorf("schemas[%d]: %w", i, err)
		}
		if _, exists := seen[eventType]; exists {
			return nil, fmt.Errorf("duplicate schema for event type %q", eventType)
		}
		seen[eventType] = struct{}{}
		reg.Register(eventType, schema)
	}
	return reg, nil
}

// parseSchemaFile attempts to decode the schema file content.
func parseSchemaFile(data []byte, ext string) (schemaFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file schemaFile
		if err := d.fn(data, &file); err == nil {
			return file, nil
		}
	}

	return schemaFile{}, errors.New("schema file format not recognized (expected YAML or JSON)")
}

// schema converts the definition into a registry entry.
func (d SchemaDefinition) schema() (string, Schema, error) {
	eventType := strings.TrimSpace(d.EventType)
	if eventType == "" {
		return "", Schema{}, errors.New("event_type is required")
	}
	if len(d.Fields) == 0 {
		return "", Schema{}, fmt.Errorf("schema for %q declares no fields", eventType)
	}

	s := Schema{
		Required: make(map[string]FieldType),
		Optional: make(map[string]FieldType),
	}
	for _, f := range d.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return "", Schema{}, fmt.Errorf("schema for %q has a field without a name", eventType)
		}
		typ, err := parseFieldType(f.Type)
		if err != nil {
			return "", Schema{}, fmt.Errorf("field %q: %w", name, err)
		}
		if f.Required {
			s.Required[name] = typ
		} else {
			s.Optional[name] = typ
		}
	}
	return eventType, s, nil
}
