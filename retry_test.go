package instruct

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBackend wraps a ScriptedBackend and keeps the system prompt text
// of every invocation so tests can inspect prompt composition.
type recordingBackend struct {
	ScriptedBackend
	mu      sync.Mutex
	prompts [][]string // per invocation: text of system message parts
}

func (b *recordingBackend) Invoke(ctx context.Context, messages []*Message, schema *PortableSchema, cfg BackendConfig) ([]byte, error) {
	var sys []string
	for _, m := range messages {
		if m.Role != "system" {
			continue
		}
		for _, p := range m.Parts {
			if p.Type == "text" {
				sys = append(sys, p.Text)
			}
		}
	}
	b.mu.Lock()
	b.prompts = append(b.prompts, sys)
	b.mu.Unlock()
	return b.ScriptedBackend.Invoke(ctx, messages, schema, cfg)
}

func TestRetry_ConvergesWithinBudget(t *testing.T) {
	schema := userSchema(t)
	x := NewForTesting(
		`{"name":"Ann"}`,
		`{"name":"Ann","age":"thirty"}`,
		`{"name":"Ann","age":30}`,
	)

	res, err := x.ExtractText(context.Background(), schema, "Ann is thirty",
		WithMaxAttempts(3))
	require.NoError(t, err)
	require.True(t, res.Succeeded())

	require.Len(t, res.Attempts, 3)
	for i, a := range res.Attempts {
		assert.Equal(t, i+1, a.Index, "attempt index strictly increasing from 1")
	}
	assert.NotEmpty(t, res.Attempts[0].Errors)
	assert.NotEmpty(t, res.Attempts[1].Errors)
	assert.Empty(t, res.Attempts[2].Errors)

	age, ok := res.Value.Int("age")
	require.True(t, ok)
	assert.Equal(t, int64(30), age)
}

func TestRetry_Exhaustion(t *testing.T) {
	schema := userSchema(t)
	x := NewForTesting(`{"name":"Ann"}`) // always invalid

	res, err := x.ExtractText(context.Background(), schema, "Ann",
		WithMaxAttempts(2))
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Attempts, 2)

	require.NotNil(t, res)
	assert.False(t, res.Succeeded())
	require.Len(t, res.Attempts, 2)
	for _, a := range res.Attempts {
		assert.NotEmpty(t, a.Errors, "every recorded attempt carries its findings")
		assert.Equal(t, `{"name":"Ann"}`, a.RawOutput)
	}
}

func TestRetry_FeedbackCarriesOnlyLatestAttempt(t *testing.T) {
	schema := userSchema(t)
	backend := &recordingBackend{ScriptedBackend: ScriptedBackend{Responses: []string{
		`{"age":30}`,               // attempt 1: name missing
		`{"name":"Ann"}`,           // attempt 2: age missing
		`{"name":"Ann","age":30}`,  // attempt 3: valid
	}}}
	p, err := NewStickPromptProvider()
	require.NoError(t, err)
	x := NewWithLogger(backend, p, nil)

	res, err := x.ExtractText(context.Background(), schema, "Ann is 30",
		WithMaxAttempts(3))
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Len(t, backend.prompts, 3)

	// First invocation has no feedback block.
	first := strings.Join(backend.prompts[0], "\n")
	assert.NotContains(t, first, "previous response")

	// Second invocation references the name finding.
	second := strings.Join(backend.prompts[1], "\n")
	assert.Contains(t, second, `"name"`)
	assert.Contains(t, second, "missing required field")

	// Third invocation carries only the latest findings: age, not name.
	third := strings.Join(backend.prompts[2], "\n")
	assert.Contains(t, third, `field "age"`)
	assert.NotContains(t, third, `field "name"`)
}

func TestRetry_PromptContainsSchema(t *testing.T) {
	schema := userSchema(t)
	backend := &recordingBackend{ScriptedBackend: ScriptedBackend{Responses: []string{
		`{"name":"Ann","age":30}`,
	}}}
	p, err := NewStickPromptProvider()
	require.NoError(t, err)
	x := NewWithLogger(backend, p, nil)

	_, err = x.ExtractText(context.Background(), schema, "Ann is 30")
	require.NoError(t, err)
	require.Len(t, backend.prompts, 1)

	prompt := strings.Join(backend.prompts[0], "\n")
	assert.Contains(t, prompt, "- name (string, required): full name")
	assert.Contains(t, prompt, `"type": "object"`)
	assert.Contains(t, prompt, `"title": "User"`)
}

func TestRetry_BackendBudgetExhausted(t *testing.T) {
	schema := userSchema(t)
	boom := errors.New("boom")
	backend := &ScriptedBackend{Errs: []error{boom, boom, boom, boom}}
	p, err := NewStickPromptProvider()
	require.NoError(t, err)
	x := NewWithLogger(backend, p, nil)

	res, err := x.ExtractText(context.Background(), schema, "Ann",
		WithBackendRetry(2, 0))
	require.Error(t, err)

	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 3, berr.Attempts, "initial call plus two retries")
	assert.ErrorIs(t, berr, boom)

	require.NotNil(t, res)
	assert.Empty(t, res.Attempts, "no attempt record without backend output")
	assert.Equal(t, 3, backend.Calls())
}

func TestRetry_TransientBackendRecovery(t *testing.T) {
	schema := userSchema(t)
	boom := errors.New("boom")
	backend := &ScriptedBackend{
		Responses: []string{"", `{"name":"Ann","age":30}`},
		Errs:      []error{boom, nil},
	}
	p, err := NewStickPromptProvider()
	require.NoError(t, err)
	x := NewWithLogger(backend, p, nil)

	res, err := x.ExtractText(context.Background(), schema, "Ann",
		WithBackendRetry(1, 0))
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 2, backend.Calls())
	require.Len(t, res.Attempts, 1, "backend retries do not consume attempts")
}

func TestRetry_CancelledBetweenAttempts(t *testing.T) {
	schema := userSchema(t)
	x := NewForTesting(`{"name":"Ann"}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := x.ExtractText(ctx, schema, "Ann")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "cancelled")
	require.NotNil(t, res)
	assert.Empty(t, res.Attempts)
}

func TestRetry_SingleAttemptFloor(t *testing.T) {
	schema := userSchema(t)
	x := NewForTesting(`{"name":"Ann"}`)

	res, err := x.ExtractText(context.Background(), schema, "Ann",
		WithMaxAttempts(0))
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, res.Attempts, 1)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", statePending.String())
	assert.Equal(t, "awaiting_backend", stateAwaitingBackend.String())
	assert.Equal(t, "validating", stateValidating.String())
	assert.Equal(t, "succeeded", stateSucceeded.String())
	assert.Equal(t, "failed", stateFailed.String())
}
