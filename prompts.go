package instruct

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"
)

// Prompt tags recognized by the retry controller.
const (
	PromptInstructions = "instructions" // base extraction instructions
	PromptFeedback     = "feedback"     // correction block after a failed attempt
)

const defaultInstructionsTemplate = `Extract the fields described below from the provided content.

{{ fields }}

Respond with a single JSON object that conforms to this JSON schema:

{{ schema }}

Return only the JSON object, no surrounding text.`

const defaultFeedbackTemplate = `The previous response did not satisfy the required structure. Problems found:

{{ problems }}

Return a corrected JSON object that fixes every problem above, keeping the fields that were already correct.`

// PromptProvider returns the prompt template text for the given tag.
type PromptProvider interface {
	GetPrompt(tag string, version int) (string, error)
}

// ContextualPromptProvider extends PromptProvider to support template
// variables supplied by the controller (schema text, feedback lines, ...).
type ContextualPromptProvider interface {
	PromptProvider
	GetPromptWithContext(tag string, version int, vars map[string]any) (string, error)
}

// StickPromptProvider renders prompt templates with the Stick (Twig) engine.
// It ships with built-in templates for the extraction instructions and the
// retry feedback block; both can be overridden per tag.
type StickPromptProvider struct {
	env       *stick.Env
	templates map[string]string
	vars      map[string]interface{}
}

// PromptOption configures a StickPromptProvider.
type PromptOption func(*StickPromptProvider) error

// WithFS loads every *.twig file found under dir in the supplied FS; the
// file base name (minus extension) becomes the tag.
func WithFS[F fs.FS](fsys F, dir string) PromptOption {
	return func(p *StickPromptProvider) error {
		return fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".twig") {
				return nil
			}
			content, readErr := fs.ReadFile(fsys, path)
			if readErr != nil {
				return fmt.Errorf("read %s: %w", path, readErr)
			}
			tag := strings.TrimSuffix(filepath.Base(path), ".twig")
			p.templates[tag] = string(content)
			return nil
		})
	}
}

// WithTemplates lets you inject an in-memory map of tag -> template.
func WithTemplates(m map[string]string) PromptOption {
	return func(p *StickPromptProvider) error {
		for k, v := range m {
			p.templates[k] = v
		}
		return nil
	}
}

// WithVar adds a variable available in all templates.
func WithVar(key string, value interface{}) PromptOption {
	return func(p *StickPromptProvider) error {
		p.vars[key] = value
		return nil
	}
}

// NewStickPromptProvider builds a provider from any combination of options.
func NewStickPromptProvider(opts ...PromptOption) (*StickPromptProvider, error) {
	p := &StickPromptProvider{
		env: stick.New(nil),
		templates: map[string]string{
			PromptInstructions: defaultInstructionsTemplate,
			PromptFeedback:     defaultFeedbackTemplate,
		},
		vars: make(map[string]interface{}),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddTemplate updates or inserts one template.
func (p *StickPromptProvider) AddTemplate(tag, tpl string) { p.templates[tag] = tpl }

// GetPrompt renders the template for the given tag with no extra context.
func (p *StickPromptProvider) GetPrompt(tag string, version int) (string, error) {
	return p.GetPromptWithContext(tag, version, nil)
}

// GetPromptWithContext renders the template with additional variables.
func (p *StickPromptProvider) GetPromptWithContext(tag string, version int, vars map[string]any) (string, error) {
	tpl, ok := p.templates[tag]
	if !ok {
		return "", fmt.Errorf("template %q not found", tag)
	}

	templateCtx := make(map[string]stick.Value)
	templateCtx["version"] = version
	templateCtx["tag"] = tag
	for k, v := range p.vars {
		templateCtx[k] = v
	}
	for k, v := range vars {
		templateCtx[k] = v
	}

	var out strings.Builder
	if err := p.env.Execute(tpl, &out, templateCtx); err != nil {
		return "", fmt.Errorf("execute %q: %w", tag, err)
	}
	return out.String(), nil
}

// SimplePromptProvider is a plain map of tag -> literal template text.
type SimplePromptProvider map[string]string

func (s SimplePromptProvider) GetPrompt(tag string, version int) (string, error) {
	if tpl, ok := s[tag]; ok {
		return tpl, nil
	}
	return "", fmt.Errorf("prompt %q not found", tag)
}
