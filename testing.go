package instruct

import (
	"context"
	"log/slog"
	"sync"
)

// ScriptedBackend replays a fixed sequence of responses and errors, one per
// invocation. It lets tests drive the retry loop without a real client.
type ScriptedBackend struct {
	Responses []string // consumed in order; last one repeats when exhausted
	Errs      []error  // optional, aligned with invocations; nil → success

	mu    sync.Mutex
	calls int
}

func (b *ScriptedBackend) Invoke(ctx context.Context, messages []*Message, schema *PortableSchema, cfg BackendConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	i := b.calls
	b.calls++
	b.mu.Unlock()

	if i < len(b.Errs) && b.Errs[i] != nil {
		return nil, b.Errs[i]
	}
	if len(b.Responses) == 0 {
		return []byte("{}"), nil
	}
	if i >= len(b.Responses) {
		i = len(b.Responses) - 1
	}
	return []byte(b.Responses[i]), nil
}

// Calls reports how many invocations the backend has served.
func (b *ScriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// NewForTesting creates an Instructor over a scripted backend that replays
// the given responses in order.
func NewForTesting(responses ...string) *Instructor {
	p, _ := NewStickPromptProvider()
	return NewWithLogger(&ScriptedBackend{Responses: responses}, p, slog.Default())
}
