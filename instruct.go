package instruct

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Defaults for the two retry budgets. Both are plain options, not policy.
const (
	DefaultMaxAttempts    = 3
	DefaultBackendRetries = 2
	DefaultBackoff        = 200 * time.Millisecond
)

// Options represents functional options for one extraction call.
type Options struct {
	Model          string
	MaxAttempts    int           // validation-retry budget, >= 1
	BackendRetries int           // transient backend-failure budget, >= 0
	Backoff        time.Duration // initial backoff between backend retries
	Strict         bool          // report unknown fields as errors
	Timeout        time.Duration
	Parameters     map[string]string // generation parameters
	Runner         Runner            // batch only; nil → DefaultRunner
}

func WithModel(name string) func(*Options) {
	return func(o *Options) { o.Model = name }
}

func WithMaxAttempts(n int) func(*Options) {
	return func(o *Options) { o.MaxAttempts = n }
}

func WithBackendRetry(budget int, backoff time.Duration) func(*Options) {
	return func(o *Options) {
		o.BackendRetries = budget
		o.Backoff = backoff
	}
}

// WithStrictUnknownFields makes undeclared keys in the backend output a
// validation error instead of being ignored.
func WithStrictUnknownFields() func(*Options) {
	return func(o *Options) { o.Strict = true }
}

func WithTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.Timeout = d }
}

func WithParameters(params map[string]string) func(*Options) {
	return func(o *Options) { o.Parameters = params }
}

func WithRunner(r Runner) func(*Options) {
	return func(o *Options) { o.Runner = r }
}

// Instructor is the public entry point: it wraps a generation backend by
// explicit composition and drives schema-guided extraction with bounded
// correction retries. One Instructor is safe for concurrent use; the only
// shared state is the compilation cache, which is compute-once per schema.
type Instructor struct {
	backend Backend
	prompts PromptProvider
	cache   compileCache
	log     *slog.Logger
}

// New returns an Instructor with the built-in prompt templates, logging
// with slog.Default().
func New(backend Backend) *Instructor {
	p, _ := NewStickPromptProvider() // no options, cannot fail
	return NewWithLogger(backend, p, slog.Default())
}

// NewWithLogger lets the caller supply a prompt provider and logger.
func NewWithLogger(backend Backend, p PromptProvider, log *slog.Logger) *Instructor {
	if log == nil {
		log = slog.Default()
	}
	return &Instructor{backend: backend, prompts: p, log: log}
}

// Extract runs the bounded feedback loop for one schema against the given
// assets. On success the Result carries the validated instance; when every
// attempt fails validation the Result carries the full attempt history and
// the error is an *ExhaustedError. Aside from backend invocations the call
// has no side effects.
func (x *Instructor) Extract(ctx context.Context, schema *Schema, assets []Asset, optFns ...func(*Options)) (*Result, error) {
	if schema == nil {
		return nil, fmt.Errorf("extract: %w", ErrMissingSchema)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("extract: %w", ErrEmptyAssets)
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BackendRetries < 0 {
		opts.BackendRetries = 0
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	comp := x.cache.get(schema)
	x.log.Debug("Starting extraction",
		"schema", schema.Name(),
		"assets_count", len(assets),
		"max_attempts", opts.MaxAttempts,
		"backend_retries", opts.BackendRetries,
		"strict", opts.Strict)

	userMsgs, err := collectMessages(ctx, assets, x.log)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	c := &controller{
		backend:   x.backend,
		prompts:   x.prompts,
		validator: &Validator{Strict: opts.Strict},
		log:       x.log,
	}
	return c.run(ctx, comp, userMsgs, opts)
}

// ExtractText is a convenience for extracting from a single text document.
func (x *Instructor) ExtractText(ctx context.Context, schema *Schema, document string, optFns ...func(*Options)) (*Result, error) {
	return x.Extract(ctx, schema, AssetsFrom(document), optFns...)
}

// ExtractBatch extracts the same schema from many documents concurrently.
// Independent calls share no mutable state beyond the compilation cache, so
// fan-out is safe. Results are index-aligned with documents; the first
// failing document aborts the remaining work and its error is returned.
func (x *Instructor) ExtractBatch(ctx context.Context, schema *Schema, documents []string, optFns ...func(*Options)) ([]*Result, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	r := opts.Runner
	if r == nil {
		r = DefaultRunner(ctx)
	}
	egCtx := ctx
	if d, ok := r.(*errGroupRunner); ok {
		egCtx = d.ctx
	}

	results := make([]*Result, len(documents))
	for i, doc := range documents {
		i, doc := i, doc // loop capture
		r.Go(func() error {
			res, err := x.ExtractText(egCtx, schema, doc, optFns...)
			results[i] = res
			return err
		})
	}
	err := r.Wait()
	return results, err
}

// Explain returns the exact instruction prompt that would be sent for a
// schema, without invoking the backend. Useful for inspection and tests.
func (x *Instructor) Explain(schema *Schema) (string, error) {
	if schema == nil {
		return "", fmt.Errorf("explain: %w", ErrMissingSchema)
	}
	comp := x.cache.get(schema)
	c := &controller{backend: x.backend, prompts: x.prompts, validator: &Validator{}, log: x.log}
	schemaJSON, err := comp.portable.JSON()
	if err != nil {
		return "", err
	}
	return c.renderPrompt(PromptInstructions, map[string]any{
		"title":  comp.portable.Title,
		"fields": comp.prompt,
		"schema": string(schemaJSON),
	})
}

func defaultOptions() Options {
	return Options{
		MaxAttempts:    DefaultMaxAttempts,
		BackendRetries: DefaultBackendRetries,
		Backoff:        DefaultBackoff,
	}
}
