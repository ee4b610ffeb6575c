package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/ports"
)

// Responder produces the engine answer for one call.
type Responder func(call domain.Call) (string, error)

// RecordingEngine is a scripted ports.Engine that remembers every call it receives.
// Ping is answered with "pong" unless overridden.
type RecordingEngine struct {
	mu         sync.Mutex
	calls      []domain.Call
	responders map[domain.Op]Responder
}

// NewRecordingEngine returns an engine that only knows how to answer ping.
func NewRecordingEngine() *RecordingEngine {
	e := &RecordingEngine{responders: make(map[domain.Op]Responder)}
	e.Reply(domain.OpPing, "pong")
	return e
}

// On installs a responder for op.
func (e *RecordingEngine) On(op domain.Op, r Responder) *RecordingEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responders[op] = r
	return e
}

// Reply answers op with a fixed text.
func (e *RecordingEngine) Reply(op domain.Op, text string) *RecordingEngine {
	return e.On(op, func(domain.Call) (string, error) { return text, nil })
}

// Fail answers op with err.
func (e *RecordingEngine) Fail(op domain.Op, err error) *RecordingEngine {
	return e.On(op, func(domain.Call) (string, error) { return "", err })
}

// Invoke implements ports.Engine.
func (e *RecordingEngine) Invoke(ctx context.Context, call domain.Call) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, domain.NewCall(call.Op, call.Args...))
	r, ok := e.responders[call.Op]
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("unexpected op %q", call.Op)
	}
	return r(call)
}

// Calls returns every call received so far, ping included.
func (e *RecordingEngine) Calls() []domain.Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallsFor returns the calls received for op.
func (e *RecordingEngine) CallsFor(op domain.Op) []domain.Call {
	var out []domain.Call
	for _, c := range e.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Unreachable is an engine that cannot be contacted at all.
var Unreachable = ports.EngineFunc(func(context.Context, domain.Call) (string, error) {
	return "", ports.ErrUnreachable
})
