package instruct

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// SchemaOf derives a Schema from a Go struct type. Field names come from
// json tags (falling back to the Go name), descriptions from a
// `description` tag, and enum constraints from an `enum` tag. Pointer
// fields and fields tagged `instruct:"optional"` become optional with a
// null default.
//
//	type User struct {
//	    Name  string  `json:"name" description:"full name"`
//	    Age   int     `json:"age"`
//	    Email *string `json:"email" description:"contact email"`
//	    Kind  string  `json:"kind" enum:"web,image,video"`
//	}
func SchemaOf[T any]() (*Schema, error) {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("instruct: T must be a struct, got %v", rt)
	}
	return schemaFromType(rt, map[reflect.Type]bool{})
}

func schemaFromType(t reflect.Type, onPath map[reflect.Type]bool) (*Schema, error) {
	if onPath[t] {
		return nil, &SchemaError{Code: CyclicSchema, Field: t.Name()}
	}
	onPath[t] = true
	defer delete(onPath, t)

	var fields []FieldSpec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous || !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		ft := f.Type
		optional := false
		if ft.Kind() == reflect.Ptr {
			optional = true
			ft = ft.Elem()
		}
		if f.Tag.Get("instruct") == "optional" {
			optional = true
		}

		tag, err := tagFromType(ft, name, onPath)
		if err != nil {
			return nil, err
		}

		spec := FieldSpec{
			Name:        name,
			Type:        tag,
			Description: f.Tag.Get("description"),
			Required:    !optional,
		}
		if enum := f.Tag.Get("enum"); enum != "" {
			spec.Enum = strings.Split(enum, ",")
		}
		fields = append(fields, spec)
	}

	return NewSchema(t.Name(), "", fields)
}

func tagFromType(t reflect.Type, fieldName string, onPath map[reflect.Type]bool) (TypeTag, error) {
	switch t.Kind() {
	case reflect.String:
		return StringType(), nil
	case reflect.Bool:
		return BooleanType(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return IntegerType(), nil
	case reflect.Float32, reflect.Float64:
		return NumberType(), nil
	case reflect.Ptr:
		return tagFromType(t.Elem(), fieldName, onPath)
	case reflect.Slice, reflect.Array:
		elem, err := tagFromType(t.Elem(), fieldName, onPath)
		if err != nil {
			return TypeTag{}, err
		}
		return ArrayOf(elem), nil
	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return StringType(), nil
		}
		nested, err := schemaFromType(t, onPath)
		if err != nil {
			return TypeTag{}, err
		}
		return ObjectOf(nested), nil
	default:
		return TypeTag{}, &SchemaError{Code: UnsupportedType, Field: fieldName}
	}
}
