package instruct

// Builder assembles a Schema at runtime, typically from external metadata
// such as configuration or a catalog of field descriptors. The zero value
// is not usable; start with NewBuilder.
//
// Builders may merge into a base schema. A new field whose name collides
// with a base field fails the build with DuplicateField unless Override is
// set, in which case the new definition replaces the base one in place, so
// declaration order is preserved at the base position. The base schema is
// never mutated.
type Builder struct {
	name     string
	doc      string
	base     *Schema
	fields   []FieldSpec
	override bool
}

// NewBuilder starts a builder for a schema with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Doc sets the schema documentation string.
func (b *Builder) Doc(doc string) *Builder {
	b.doc = doc
	return b
}

// Base merges the new fields into an existing schema. When the builder name
// is empty the base name and doc carry over.
func (b *Builder) Base(s *Schema) *Builder {
	b.base = s
	return b
}

// Override lets new field definitions replace colliding base fields instead
// of failing the build.
func (b *Builder) Override() *Builder {
	b.override = true
	return b
}

// Field appends a field definition. Order of Field calls is the declaration
// order of the resulting schema (after any base fields).
func (b *Builder) Field(f FieldSpec) *Builder {
	b.fields = append(b.fields, f)
	return b
}

// Add is a convenience for appending a field from its parts.
func (b *Builder) Add(name string, t TypeTag, description string, required bool, def any) *Builder {
	return b.Field(FieldSpec{Name: name, Type: t, Description: description, Required: required, Default: def})
}

// Build produces a new immutable Schema. The base schema, if any, is left
// untouched.
func (b *Builder) Build() (*Schema, error) {
	name, doc := b.name, b.doc
	var merged []FieldSpec
	if b.base != nil {
		merged = b.base.Fields()
		if name == "" {
			name = b.base.Name()
		}
		if doc == "" {
			doc = b.base.Doc()
		}
	}

	for _, f := range b.fields {
		if b.base != nil {
			if i, ok := b.base.byName[f.Name]; ok {
				if !b.override {
					return nil, &SchemaError{Code: DuplicateField, Field: f.Name}
				}
				merged[i] = f
				continue
			}
		}
		merged = append(merged, f)
	}

	return NewSchema(name, doc, merged)
}
