package instruct

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inferredUser struct {
	Name    string   `json:"name" description:"full name"`
	Age     int      `json:"age"`
	Email   *string  `json:"email" description:"contact email"`
	Tags    []string `json:"tags"`
	Score   float64  `json:"score"`
	Active  bool     `json:"active"`
	Joined  time.Time `json:"joined"`
	Ignored string   `json:"-"`
	private string
}

type inferredQuery struct {
	Text string `json:"text"`
	Kind string `json:"kind" enum:"web,image,video"`
	Note string `json:"note" instruct:"optional"`
}

type inferredNested struct {
	Who inferredQuery `json:"who"`
}

type inferredRecursive struct {
	Next []inferredRecursive `json:"next"`
}

type inferredUnsupported struct {
	Fn func() `json:"fn"`
}

func TestSchemaOf_Scalars(t *testing.T) {
	s, err := SchemaOf[inferredUser]()
	require.NoError(t, err)
	assert.Equal(t, "inferredUser", s.Name())
	require.Equal(t, 7, s.Len())

	f, ok := s.Field("name")
	require.True(t, ok)
	assert.Equal(t, KindString, f.Type.Kind)
	assert.Equal(t, "full name", f.Description)
	assert.True(t, f.Required)

	f, _ = s.Field("age")
	assert.Equal(t, KindInteger, f.Type.Kind)

	f, _ = s.Field("score")
	assert.Equal(t, KindNumber, f.Type.Kind)

	f, _ = s.Field("active")
	assert.Equal(t, KindBoolean, f.Type.Kind)

	f, _ = s.Field("tags")
	assert.Equal(t, KindArray, f.Type.Kind)
	assert.Equal(t, KindString, f.Type.Elem.Kind)

	// time.Time maps to string, pointers become optional.
	f, _ = s.Field("joined")
	assert.Equal(t, KindString, f.Type.Kind)

	f, _ = s.Field("email")
	assert.False(t, f.Required)
	assert.Nil(t, f.Default)

	_, ok = s.Field("Ignored")
	assert.False(t, ok)
	_, ok = s.Field("private")
	assert.False(t, ok)
}

func TestSchemaOf_EnumAndOptionalTag(t *testing.T) {
	s, err := SchemaOf[inferredQuery]()
	require.NoError(t, err)

	f, ok := s.Field("kind")
	require.True(t, ok)
	assert.Equal(t, []string{"web", "image", "video"}, f.Enum)

	f, _ = s.Field("note")
	assert.False(t, f.Required)
}

func TestSchemaOf_Nested(t *testing.T) {
	s, err := SchemaOf[inferredNested]()
	require.NoError(t, err)

	f, ok := s.Field("who")
	require.True(t, ok)
	require.Equal(t, KindObject, f.Type.Kind)
	nested, ok := f.Type.Schema.Field("kind")
	require.True(t, ok)
	assert.Equal(t, []string{"web", "image", "video"}, nested.Enum)
}

func TestSchemaOf_RejectsRecursion(t *testing.T) {
	_, err := SchemaOf[inferredRecursive]()
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, CyclicSchema, serr.Code)
}

func TestSchemaOf_RejectsUnsupportedKinds(t *testing.T) {
	_, err := SchemaOf[inferredUnsupported]()
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, UnsupportedType, serr.Code)
	assert.Equal(t, "fn", serr.Field)
}

func TestSchemaOf_NonStruct(t *testing.T) {
	_, err := SchemaOf[int]()
	assert.Error(t, err)
}
