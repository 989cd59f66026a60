package instruct

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies a single validation finding.
type ErrorKind string

const (
	MissingField ErrorKind = "missing_field"
	TypeMismatch ErrorKind = "type_mismatch"
	UnknownField ErrorKind = "unknown_field"
	ParseFailure ErrorKind = "parse_failure"
)

// FieldError reports one validation finding against a schema field. Path is
// empty for whole-document failures; array elements carry a bracketed index
// component, e.g. ["tags", "[2]"].
type FieldError struct {
	Path     []string
	Kind     ErrorKind
	Message  string
	Observed any // raw value as parsed, nil when absent
}

// PathString renders the dotted field path, e.g. "address.city" or "tags[2]".
func (e FieldError) PathString() string {
	var b strings.Builder
	for i, c := range e.Path {
		if i > 0 && !strings.HasPrefix(c, "[") {
			b.WriteByte('.')
		}
		b.WriteString(c)
	}
	return b.String()
}

func (e FieldError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return e.PathString() + ": " + e.Message
}

// Instance is the tagged-value record produced by a successful validation:
// a mapping from field name to a typed value. Integers are int64, numbers
// float64, arrays []any, nested objects Instance.
type Instance map[string]any

func (in Instance) String(name string) (string, bool) {
	v, ok := in[name].(string)
	return v, ok
}

func (in Instance) Int(name string) (int64, bool) {
	v, ok := in[name].(int64)
	return v, ok
}

func (in Instance) Float(name string) (float64, bool) {
	v, ok := in[name].(float64)
	return v, ok
}

func (in Instance) Bool(name string) (bool, bool) {
	v, ok := in[name].(bool)
	return v, ok
}

func (in Instance) Slice(name string) ([]any, bool) {
	v, ok := in[name].([]any)
	return v, ok
}

func (in Instance) Object(name string) (Instance, bool) {
	v, ok := in[name].(Instance)
	return v, ok
}

// SanitizeJSONResponse removes garbage characters often produced by LLMs,
// such as markdown code fences around the JSON object.
func SanitizeJSONResponse(b []byte) []byte {
	s := strings.TrimSpace(string(b))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return []byte(strings.TrimSpace(s))
}

// Validator parses and type-checks raw backend output against a schema.
// With Strict set, keys not declared by the schema are reported as
// UnknownField instead of being ignored.
type Validator struct {
	Strict bool
}

// Validate parses raw output and checks it against s. On success it returns
// a fully populated Instance with optional fields resolved to their
// defaults; otherwise it returns the full list of findings ordered by path.
// Numeric coercion is never performed: a string value for an integer field
// is an error, not a conversion.
func (v *Validator) Validate(raw []byte, s *Schema) (Instance, []FieldError) {
	doc, perr := parseDocument(raw)
	if perr != nil {
		return nil, []FieldError{*perr}
	}

	inst, errs := v.validateObject(doc, s, nil)
	if len(errs) > 0 {
		sort.SliceStable(errs, func(i, j int) bool {
			return errs[i].PathString() < errs[j].PathString()
		})
		return nil, errs
	}
	return inst, nil
}

func parseDocument(raw []byte) (map[string]any, *FieldError) {
	dec := json.NewDecoder(bytes.NewReader(SanitizeJSONResponse(raw)))
	dec.UseNumber()
	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, &FieldError{Kind: ParseFailure, Message: fmt.Sprintf("response is not valid JSON: %v", err)}
	}
	doc, ok := top.(map[string]any)
	if !ok {
		return nil, &FieldError{Kind: ParseFailure, Message: fmt.Sprintf("response is not a JSON object (got %s)", jsonTypeName(top)), Observed: top}
	}
	return doc, nil
}

func (v *Validator) validateObject(doc map[string]any, s *Schema, path []string) (Instance, []FieldError) {
	inst := make(Instance, s.Len())
	var errs []FieldError

	for _, f := range s.fields {
		fpath := append(append([]string(nil), path...), f.Name)
		raw, present := doc[f.Name]
		if !present {
			if f.Required {
				errs = append(errs, FieldError{Path: fpath, Kind: MissingField, Message: "missing required field"})
				continue
			}
			inst[f.Name] = f.Default
			continue
		}
		val, ferrs := v.checkValue(raw, f, f.Type, fpath)
		if len(ferrs) > 0 {
			errs = append(errs, ferrs...)
			continue
		}
		inst[f.Name] = val
	}

	if v.Strict {
		for key := range doc {
			if _, ok := s.byName[key]; !ok {
				kpath := append(append([]string(nil), path...), key)
				errs = append(errs, FieldError{Path: kpath, Kind: UnknownField, Message: "unknown field", Observed: doc[key]})
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return inst, nil
}

// checkValue type-checks one value against a tag, returning the converted
// value. Array elements are checked individually so several findings may be
// reported for a single field.
func (v *Validator) checkValue(raw any, f FieldSpec, t TypeTag, path []string) (any, []FieldError) {
	mismatch := func() []FieldError {
		return []FieldError{{
			Path:     path,
			Kind:     TypeMismatch,
			Message:  fmt.Sprintf("expected %s, got %s", t.label(), jsonTypeName(raw)),
			Observed: raw,
		}}
	}

	switch t.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch()
		}
		if len(f.Enum) > 0 && !containsString(f.Enum, s) {
			return nil, []FieldError{{
				Path:     path,
				Kind:     TypeMismatch,
				Message:  fmt.Sprintf("value %q is not one of: %s", s, strings.Join(f.Enum, ", ")),
				Observed: raw,
			}}
		}
		return s, nil

	case KindInteger:
		n, ok := raw.(json.Number)
		if !ok {
			return nil, mismatch()
		}
		i, err := n.Int64()
		if err != nil {
			return nil, []FieldError{{
				Path:     path,
				Kind:     TypeMismatch,
				Message:  fmt.Sprintf("expected integer, got non-integral number %s", n.String()),
				Observed: raw,
			}}
		}
		return i, nil

	case KindNumber:
		n, ok := raw.(json.Number)
		if !ok {
			return nil, mismatch()
		}
		fl, err := n.Float64()
		if err != nil {
			return nil, mismatch()
		}
		return fl, nil

	case KindBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, mismatch()
		}
		return b, nil

	case KindArray:
		seq, ok := raw.([]any)
		if !ok {
			return nil, mismatch()
		}
		out := make([]any, 0, len(seq))
		var errs []FieldError
		for i, el := range seq {
			epath := append(append([]string(nil), path...), fmt.Sprintf("[%d]", i))
			val, ferrs := v.checkValue(el, f, *t.Elem, epath)
			if len(ferrs) > 0 {
				errs = append(errs, ferrs...)
				continue
			}
			out = append(out, val)
		}
		if len(errs) > 0 {
			return nil, errs
		}
		return out, nil

	case KindObject:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch()
		}
		inst, errs := v.validateObject(m, t.Schema, path)
		if len(errs) > 0 {
			return nil, errs
		}
		return inst, nil
	}

	return nil, mismatch()
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
