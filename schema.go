package instruct

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Schema is a named, ordered set of field declarations. It is immutable
// after construction and safe to share across concurrent extractions;
// field order drives deterministic rendering, while validation matches
// fields by name.
type Schema struct {
	name   string
	doc    string
	fields []FieldSpec
	byName map[string]int
}

// NewSchema builds a schema from an ordered field list. It fails with a
// SchemaError when two fields share a name, when a type tag cannot be
// resolved, or when a nested schema reaches back into its own ancestry.
func NewSchema(name, doc string, fields []FieldSpec) (*Schema, error) {
	s := &Schema{
		name:   name,
		doc:    doc,
		fields: append([]FieldSpec(nil), fields...),
		byName: make(map[string]int, len(fields)),
	}
	for i, f := range s.fields {
		if _, dup := s.byName[f.Name]; dup {
			return nil, &SchemaError{Code: DuplicateField, Field: f.Name}
		}
		if !f.Type.valid() {
			return nil, &SchemaError{Code: UnsupportedType, Field: f.Name}
		}
		s.byName[f.Name] = i
	}
	if err := s.checkAcyclic(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSchema is NewSchema for statically declared schemas that are known
// to be well formed.
func MustSchema(name, doc string, fields []FieldSpec) *Schema {
	s, err := NewSchema(name, doc, fields)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }
func (s *Schema) Doc() string  { return s.doc }
func (s *Schema) Len() int     { return len(s.fields) }

// Fields returns the field list in declaration order. The slice is a copy;
// mutating it does not affect the schema.
func (s *Schema) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// Field looks up a field by name in O(1).
func (s *Schema) Field(name string) (FieldSpec, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// Equal reports structural equality: same name and same ordered field list.
// Nested schemas are compared recursively.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.name != o.name || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if !fieldEqual(s.fields[i], o.fields[i]) {
			return false
		}
	}
	return true
}

func fieldEqual(a, b FieldSpec) bool {
	if a.Name != b.Name || a.Description != b.Description || a.Required != b.Required {
		return false
	}
	if !tagEqual(a.Type, b.Type) {
		return false
	}
	if len(a.Enum) != len(b.Enum) {
		return false
	}
	for i := range a.Enum {
		if a.Enum[i] != b.Enum[i] {
			return false
		}
	}
	return canonicalValue(a.Default) == canonicalValue(b.Default)
}

func tagEqual(a, b TypeTag) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindArray:
		return tagEqual(*a.Elem, *b.Elem)
	case KindObject:
		return a.Schema.Equal(b.Schema)
	default:
		return true
	}
}

// Fingerprint returns a deterministic serialization of the schema used to
// key the compilation cache. Structurally equal schemas with the same doc
// string produce identical fingerprints.
func (s *Schema) Fingerprint() string {
	var b strings.Builder
	s.writeFingerprint(&b)
	return b.String()
}

func (s *Schema) writeFingerprint(b *strings.Builder) {
	b.WriteString("schema(")
	b.WriteString(s.name)
	b.WriteByte('|')
	b.WriteString(s.doc)
	b.WriteString("){")
	for _, f := range s.fields {
		b.WriteString(f.Name)
		b.WriteByte(':')
		writeTagFingerprint(b, f.Type)
		b.WriteByte(':')
		b.WriteString(strconv.FormatBool(f.Required))
		b.WriteByte(':')
		b.WriteString(canonicalValue(f.Default))
		if len(f.Enum) > 0 {
			b.WriteString(":enum(")
			b.WriteString(strings.Join(f.Enum, ","))
			b.WriteByte(')')
		}
		b.WriteByte(':')
		b.WriteString(f.Description)
		b.WriteByte(';')
	}
	b.WriteByte('}')
}

func writeTagFingerprint(b *strings.Builder, t TypeTag) {
	switch t.Kind {
	case KindArray:
		b.WriteString("array[")
		writeTagFingerprint(b, *t.Elem)
		b.WriteByte(']')
	case KindObject:
		t.Schema.writeFingerprint(b)
	default:
		b.WriteString(string(t.Kind))
	}
}

// canonicalValue renders a default deterministically; encoding/json sorts
// map keys, so equal values always serialize to the same bytes.
func canonicalValue(v any) string {
	if v == nil {
		return "null"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(raw)
}

// checkAcyclic rejects schemas whose nested object graph loops back onto an
// ancestor. Walks by pointer identity: construction order normally prevents
// cycles, but a hand-assembled field list can smuggle one in.
func (s *Schema) checkAcyclic() error {
	onPath := map[*Schema]bool{s: true}
	var walkTag func(t TypeTag) error
	var walkSchema func(n *Schema) error

	walkTag = func(t TypeTag) error {
		switch t.Kind {
		case KindArray:
			return walkTag(*t.Elem)
		case KindObject:
			return walkSchema(t.Schema)
		}
		return nil
	}
	walkSchema = func(n *Schema) error {
		if onPath[n] {
			return &SchemaError{Code: CyclicSchema, Field: n.name}
		}
		onPath[n] = true
		defer delete(onPath, n)
		for _, f := range n.fields {
			if err := walkTag(f.Type); err != nil {
				return err
			}
		}
		return nil
	}
	for _, f := range s.fields {
		if err := walkTag(f.Type); err != nil {
			return err
		}
	}
	return nil
}
