package instruct

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStickPromptProvider_Defaults(t *testing.T) {
	p, err := NewStickPromptProvider()
	require.NoError(t, err)

	out, err := p.GetPromptWithContext(PromptInstructions, 1, map[string]any{
		"fields": "- name (string, required)",
		"schema": `{"type":"object"}`,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "- name (string, required)")
	assert.Contains(t, out, `{"type":"object"}`)

	out, err = p.GetPromptWithContext(PromptFeedback, 1, map[string]any{
		"problems": `- field "age": missing required field`,
	})
	require.NoError(t, err)
	assert.Contains(t, out, `- field "age": missing required field`)
	assert.Contains(t, out, "corrected JSON object")
}

func TestStickPromptProvider_UnknownTag(t *testing.T) {
	p, err := NewStickPromptProvider()
	require.NoError(t, err)

	_, err = p.GetPrompt("nope", 1)
	assert.Error(t, err)
}

func TestStickPromptProvider_WithTemplates(t *testing.T) {
	p, err := NewStickPromptProvider(WithTemplates(map[string]string{
		PromptInstructions: "Only the fields: {{ fields }}",
	}))
	require.NoError(t, err)

	out, err := p.GetPromptWithContext(PromptInstructions, 1, map[string]any{"fields": "X"})
	require.NoError(t, err)
	assert.Equal(t, "Only the fields: X", out)
}

func TestStickPromptProvider_WithVar(t *testing.T) {
	p, err := NewStickPromptProvider(
		WithTemplates(map[string]string{"greet": "{{ lang }}: {{ tag }} v{{ version }}"}),
		WithVar("lang", "en"),
	)
	require.NoError(t, err)

	out, err := p.GetPrompt("greet", 2)
	require.NoError(t, err)
	assert.Equal(t, "en: greet v2", out)
}

func TestStickPromptProvider_WithFS(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/custom.twig": &fstest.MapFile{Data: []byte("custom for {{ tag }}")},
		"prompts/readme.md":   &fstest.MapFile{Data: []byte("ignored")},
	}
	p, err := NewStickPromptProvider(WithFS(fsys, "prompts"))
	require.NoError(t, err)

	out, err := p.GetPrompt("custom", 1)
	require.NoError(t, err)
	assert.Equal(t, "custom for custom", out)

	_, err = p.GetPrompt("readme", 1)
	assert.Error(t, err, "non-twig files are not loaded")
}

func TestSimplePromptProvider(t *testing.T) {
	p := SimplePromptProvider{"instructions": "Extract {{ fields }} now"}

	out, err := p.GetPrompt("instructions", 1)
	require.NoError(t, err)
	assert.Equal(t, "Extract {{ fields }} now", out)

	_, err = p.GetPrompt("missing", 1)
	assert.Error(t, err)
}

func TestController_BasicProviderSubstitution(t *testing.T) {
	c := &controller{prompts: SimplePromptProvider{
		PromptFeedback: "Fix these: {{ problems }}",
	}}
	out, err := c.renderFeedback([]FieldError{
		{Path: []string{"age"}, Kind: MissingField, Message: "missing required field"},
	})
	require.NoError(t, err)
	assert.Equal(t, `Fix these: - field "age": missing required field`, out)
}
