package instruct

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// state tracks the retry controller through one extraction call.
type state int

const (
	statePending state = iota
	stateAwaitingBackend
	stateValidating
	stateSucceeded
	stateFailed
)

func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateAwaitingBackend:
		return "awaiting_backend"
	case stateValidating:
		return "validating"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Attempt is the append-only record of one request/response/validate cycle.
// Index starts at 1 and increases strictly.
type Attempt struct {
	Index     int
	RawOutput string
	Errors    []FieldError
}

// Result is the outcome of an extraction call. On success Value holds the
// validated instance; the full attempt history is retained either way.
type Result struct {
	Value    Instance
	Attempts []Attempt
}

// Succeeded reports whether the extraction produced a validated value.
func (r *Result) Succeeded() bool { return r.Value != nil }

// controller drives the bounded feedback loop between validation failures
// and subsequent generation attempts. All state lives in one run call, so a
// controller value is safe to share.
type controller struct {
	backend   Backend
	prompts   PromptProvider
	validator *Validator
	log       *slog.Logger
}

// run executes the attempt loop for one schema against one conversation.
// Feedback from only the most recent failed attempt is carried into the
// next prompt, keeping prompts bounded; the history keeps everything.
func (c *controller) run(ctx context.Context, comp *compiled, userMsgs []*Message, opts Options) (*Result, error) {
	st := statePending
	c.log.Debug("Retry controller starting", "state", st.String(), "max_attempts", opts.MaxAttempts)

	schemaJSON, err := comp.portable.JSON()
	if err != nil {
		return nil, fmt.Errorf("render schema: %w", err)
	}
	instructions, err := c.renderPrompt(PromptInstructions, map[string]any{
		"title":  comp.portable.Title,
		"fields": comp.prompt,
		"schema": string(schemaJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("instructions prompt: %w", err)
	}

	cfg := BackendConfig{Model: opts.Model, Parameters: opts.Parameters}
	attempts := make([]Attempt, 0, opts.MaxAttempts)
	var feedback string

	for index := 1; index <= opts.MaxAttempts; index++ {
		// Deadlines are honored at attempt boundaries; an in-flight call is
		// the backend's ctx handling to interrupt.
		if err := ctx.Err(); err != nil {
			st = stateFailed
			c.log.Debug("Extraction cancelled between attempts", "state", st.String(), "attempt", index)
			return &Result{Attempts: attempts}, fmt.Errorf("extract cancelled: %w", err)
		}

		st = stateAwaitingBackend
		c.log.Debug("Invoking backend", "state", st.String(), "attempt", index, "has_feedback", feedback != "")

		messages := make([]*Message, 0, len(userMsgs)+2)
		messages = append(messages, NewSystemMessage(NewTextPart(instructions)))
		if feedback != "" {
			messages = append(messages, NewSystemMessage(NewTextPart(feedback)))
		}
		messages = append(messages, userMsgs...)

		raw, err := c.invokeWithBudget(ctx, messages, comp.portable, cfg, opts)
		if err != nil {
			st = stateFailed
			c.log.Debug("Backend budget exhausted", "state", st.String(), "attempt", index, "error", err)
			return &Result{Attempts: attempts}, err
		}

		st = stateValidating
		inst, ferrs := c.validator.Validate(raw, comp.schema)
		attempts = append(attempts, Attempt{Index: index, RawOutput: string(raw), Errors: ferrs})

		if len(ferrs) == 0 {
			st = stateSucceeded
			c.log.Info("Extraction succeeded", "state", st.String(), "attempts", index)
			return &Result{Value: inst, Attempts: attempts}, nil
		}

		c.log.Debug("Validation failed", "state", st.String(), "attempt", index, "error_count", len(ferrs))
		if index == opts.MaxAttempts {
			break
		}
		feedback, err = c.renderFeedback(ferrs)
		if err != nil {
			return &Result{Attempts: attempts}, fmt.Errorf("feedback prompt: %w", err)
		}
	}

	st = stateFailed
	c.log.Debug("Attempts exhausted", "state", st.String(), "attempts", len(attempts))
	return &Result{Attempts: attempts}, &ExhaustedError{Attempts: attempts}
}

// invokeWithBudget retries transient backend failures with exponential
// backoff, bounded by the backend retry budget.
func (c *controller) invokeWithBudget(ctx context.Context, messages []*Message, schema *PortableSchema, cfg BackendConfig, opts Options) ([]byte, error) {
	var lastErr error
	delay := opts.Backoff
	for i := 0; i <= opts.BackendRetries; i++ {
		raw, err := c.backend.Invoke(ctx, messages, schema, cfg)
		if err == nil {
			if i > 0 {
				c.log.Debug("Backend recovered", "invocation", i+1)
			}
			return raw, nil
		}
		lastErr = err
		if i == opts.BackendRetries {
			break
		}
		c.log.Debug("Backend invocation failed, retrying", "invocation", i+1, "error", err, "delay", delay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("extract cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, &BackendError{Attempts: opts.BackendRetries + 1, Err: lastErr}
}

// renderFeedback serializes validation findings into the correction block
// appended to the next prompt, referencing field paths explicitly.
func (c *controller) renderFeedback(ferrs []FieldError) (string, error) {
	lines := make([]string, 0, len(ferrs))
	for _, fe := range ferrs {
		if len(fe.Path) == 0 {
			lines = append(lines, "- "+fe.Message)
			continue
		}
		lines = append(lines, fmt.Sprintf("- field %q: %s", fe.PathString(), fe.Message))
	}
	return c.renderPrompt(PromptFeedback, map[string]any{
		"problems": strings.Join(lines, "\n"),
	})
}

// renderPrompt prefers a contextual provider; for basic providers the
// placeholder variables are substituted literally.
func (c *controller) renderPrompt(tag string, vars map[string]any) (string, error) {
	if cp, ok := c.prompts.(ContextualPromptProvider); ok {
		return cp.GetPromptWithContext(tag, 1, vars)
	}
	tpl, err := c.prompts.GetPrompt(tag, 1)
	if err != nil {
		return "", err
	}
	for k, v := range vars {
		tpl = strings.ReplaceAll(tpl, "{{ "+k+" }}", fmt.Sprint(v))
	}
	return tpl, nil
}
