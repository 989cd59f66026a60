package instruct

// Kind enumerates the closed set of field types a schema may declare.
// The values double as JSON-Schema type names.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// TypeTag is a recursive type descriptor. Arrays carry an element tag,
// objects carry a nested schema; scalar kinds carry neither.
type TypeTag struct {
	Kind   Kind
	Elem   *TypeTag // set when Kind == KindArray
	Schema *Schema  // set when Kind == KindObject
}

func StringType() TypeTag  { return TypeTag{Kind: KindString} }
func IntegerType() TypeTag { return TypeTag{Kind: KindInteger} }
func NumberType() TypeTag  { return TypeTag{Kind: KindNumber} }
func BooleanType() TypeTag { return TypeTag{Kind: KindBoolean} }

// ArrayOf describes a homogeneous array of elem.
func ArrayOf(elem TypeTag) TypeTag {
	e := elem
	return TypeTag{Kind: KindArray, Elem: &e}
}

// ObjectOf describes a nested object conforming to s.
func ObjectOf(s *Schema) TypeTag {
	return TypeTag{Kind: KindObject, Schema: s}
}

// valid reports whether the tag resolves to a usable type: a known kind,
// with the element/schema slot filled where the kind demands it.
func (t TypeTag) valid() bool {
	switch t.Kind {
	case KindString, KindInteger, KindNumber, KindBoolean:
		return true
	case KindArray:
		return t.Elem != nil && t.Elem.valid()
	case KindObject:
		return t.Schema != nil
	default:
		return false
	}
}

// label renders the tag for prompt text and error messages, e.g.
// "array of string" or "object (Address)".
func (t TypeTag) label() string {
	switch t.Kind {
	case KindArray:
		return "array of " + t.Elem.label()
	case KindObject:
		return "object (" + t.Schema.Name() + ")"
	default:
		return string(t.Kind)
	}
}

// FieldSpec declares a single schema field. Optional fields resolve to
// Default when absent from the backend output; a nil Default is JSON null.
type FieldSpec struct {
	Name        string
	Type        TypeTag
	Description string
	Required    bool
	Default     any
	Enum        []string // allowed values, string fields only
}

// Field is a shorthand constructor for a required field.
func Field(name string, t TypeTag, description string) FieldSpec {
	return FieldSpec{Name: name, Type: t, Description: description, Required: true}
}

// OptionalField is a shorthand constructor for an optional field with a
// default value.
func OptionalField(name string, t TypeTag, description string, def any) FieldSpec {
	return FieldSpec{Name: name, Type: t, Description: description, Default: def}
}

// WithEnum restricts a string field to the given values.
func (f FieldSpec) WithEnum(values ...string) FieldSpec {
	f.Enum = values
	return f
}
