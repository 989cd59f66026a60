package instruct

import (
	"encoding/json"
	"strings"
	"sync"
)

// PortableSchema is the interchange representation of a Schema exchanged
// with the generation backend. It mirrors the common JSON-Schema shape:
// objects carry properties plus a required list, arrays recurse via items.
// encoding/json sorts map keys, so serialization is deterministic.
type PortableSchema struct {
	Title       string                     `json:"title,omitempty"`
	Type        string                     `json:"type"`
	Description string                     `json:"description,omitempty"`
	Properties  map[string]*PortableSchema `json:"properties,omitempty"`
	Required    []string                   `json:"required,omitempty"`
	Items       *PortableSchema            `json:"items,omitempty"`
	Enum        []string                   `json:"enum,omitempty"`
	Default     any                        `json:"default,omitempty"`
}

// JSON serializes the portable schema as indented JSON.
func (p *PortableSchema) JSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Compile renders a schema into its portable representation plus a
// human-readable field enumeration used in prompts. Compile is a pure
// function: structurally equal schemas always yield byte-identical output.
func Compile(s *Schema) (*PortableSchema, string) {
	return compileObject(s), promptText(s)
}

func compileObject(s *Schema) *PortableSchema {
	p := &PortableSchema{
		Title:       s.Name(),
		Type:        "object",
		Description: s.Doc(),
		Properties:  make(map[string]*PortableSchema, s.Len()),
	}
	for _, f := range s.fields {
		prop := compileTag(f.Type)
		prop.Description = f.Description
		prop.Enum = f.Enum
		if !f.Required && f.Default != nil {
			prop.Default = f.Default
		}
		p.Properties[f.Name] = prop
		if f.Required {
			// declaration order, per field list
			p.Required = append(p.Required, f.Name)
		}
	}
	return p
}

func compileTag(t TypeTag) *PortableSchema {
	switch t.Kind {
	case KindArray:
		return &PortableSchema{Type: "array", Items: compileTag(*t.Elem)}
	case KindObject:
		nested := compileObject(t.Schema)
		nested.Title = "" // nested objects are anonymous properties
		return nested
	default:
		return &PortableSchema{Type: string(t.Kind)}
	}
}

// promptText enumerates fields in declaration order: name, type,
// description and required/optional status, with nested objects indented.
func promptText(s *Schema) string {
	var b strings.Builder
	b.WriteString(s.Name())
	if s.Doc() != "" {
		b.WriteString(": ")
		b.WriteString(s.Doc())
	}
	b.WriteString("\nFields:\n")
	writeFieldLines(&b, s, 0)
	return b.String()
}

func writeFieldLines(b *strings.Builder, s *Schema, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range s.fields {
		b.WriteString(indent)
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(f.Type.label())
		if f.Required {
			b.WriteString(", required)")
		} else {
			b.WriteString(", optional, default ")
			b.WriteString(canonicalValue(f.Default))
			b.WriteString(")")
		}
		if f.Description != "" {
			b.WriteString(": ")
			b.WriteString(f.Description)
		}
		if len(f.Enum) > 0 {
			b.WriteString(" [one of: ")
			b.WriteString(strings.Join(f.Enum, ", "))
			b.WriteString("]")
		}
		b.WriteByte('\n')
		if nested := nestedSchemaOf(f.Type); nested != nil {
			writeFieldLines(b, nested, depth+1)
		}
	}
}

// nestedSchemaOf unwraps object schemas, looking through array nesting.
func nestedSchemaOf(t TypeTag) *Schema {
	switch t.Kind {
	case KindObject:
		return t.Schema
	case KindArray:
		return nestedSchemaOf(*t.Elem)
	}
	return nil
}

// compiled bundles the compilation products for caching, together with the
// source schema the validator checks against.
type compiled struct {
	schema   *Schema
	portable *PortableSchema
	prompt   string
}

// compileCache memoizes Compile per schema fingerprint. Compilation is pure
// and idempotent, so a concurrent first use may compute twice; LoadOrStore
// keeps a single winner and the duplicate work is merely wasted.
type compileCache struct {
	entries sync.Map // fingerprint -> *compiled
}

func (c *compileCache) get(s *Schema) *compiled {
	key := s.Fingerprint()
	if v, ok := c.entries.Load(key); ok {
		return v.(*compiled)
	}
	portable, prompt := Compile(s)
	v, _ := c.entries.LoadOrStore(key, &compiled{schema: s, portable: portable, prompt: prompt})
	return v.(*compiled)
}
