// Package observability provides best-effort execution tracing for agent
// runs. Every call is fire-and-forget from the orchestrator's perspective:
// tracing failures are logged, never propagated, and the loop runs the same
// with or without a configured backend.
package observability

import (
	"context"

	"github.com/google/uuid"
)

// Session is the correlation handle for one agent run.
type Session struct {
	ID string

	// ctx carries the root span for backends that need it; opaque to callers.
	ctx context.Context
	end func()
}

// Tracker records agent executions and their steps.
type Tracker interface {
	// BeginSession opens a tracing session for one agent run. It always
	// returns a usable handle, even when the backend is unreachable.
	BeginSession(ctx context.Context, agentName string) Session

	// EndSession closes a session. Safe to call on any Session value.
	EndSession(session Session)

	// RecordStep records one step (an LLM call, a tool execution) within a
	// session. Input and output may be truncated by the backend.
	RecordStep(session Session, stepName, stepKind, input, output string)
}

// NoopTracker is used when no tracing backend is configured. Sessions still
// get an ID so log lines can be correlated.
type NoopTracker struct{}

// BeginSession returns a handle with a fresh ID and no backing span.
func (NoopTracker) BeginSession(ctx context.Context, agentName string) Session {
	return Session{ID: uuid.NewString(), ctx: ctx}
}

// EndSession does nothing.
func (NoopTracker) EndSession(Session) {}

// RecordStep does nothing.
func (NoopTracker) RecordStep(Session, string, string, string, string) {}
