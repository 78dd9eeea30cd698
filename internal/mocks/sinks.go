package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/alfa-voz/internal/domain"
)

// MockCommandSink records every resolution it receives
type MockCommandSink struct {
	EmitFunc func(ctx context.Context, res domain.Resolution) error

	mu          sync.Mutex
	resolutions []domain.Resolution
	notify      chan domain.Resolution
}

func NewMockCommandSink() *MockCommandSink {
	return &MockCommandSink{notify: make(chan domain.Resolution, 64)}
}

func (m *MockCommandSink) Emit(ctx context.Context, res domain.Resolution) error {
	m.mu.Lock()
	m.resolutions = append(m.resolutions, res)
	m.mu.Unlock()

	if m.notify != nil {
		select {
		case m.notify <- res:
		default:
		}
	}

	if m.EmitFunc != nil {
		return m.EmitFunc(ctx, res)
	}
	return nil
}

// Resolutions returns a copy of the recorded resolutions
func (m *MockCommandSink) Resolutions() []domain.Resolution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Resolution(nil), m.resolutions...)
}

// Emitted is signalled once per Emit call
func (m *MockCommandSink) Emitted() <-chan domain.Resolution {
	return m.notify
}

// MockStatusSink records every status event it receives
type MockStatusSink struct {
	mu     sync.Mutex
	events []domain.StatusEvent
	notify chan domain.StatusEvent
}

func NewMockStatusSink() *MockStatusSink {
	return &MockStatusSink{notify: make(chan domain.StatusEvent, 64)}
}

func (m *MockStatusSink) Publish(ctx context.Context, ev domain.StatusEvent) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()

	if m.notify != nil {
		select {
		case m.notify <- ev:
		default:
		}
	}
}

// Events returns a copy of the recorded events
func (m *MockStatusSink) Events() []domain.StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StatusEvent(nil), m.events...)
}

// Statuses returns only the status codes, in order
func (m *MockStatusSink) Statuses() []domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Status, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Status)
	}
	return out
}

// Published is signalled once per Publish call
func (m *MockStatusSink) Published() <-chan domain.StatusEvent {
	return m.notify
}

// MockTranscriptSink records submitted transcripts
type MockTranscriptSink struct {
	SubmitFunc func(ctx context.Context, t domain.Transcript) error

	mu          sync.Mutex
	transcripts []domain.Transcript
}

func (m *MockTranscriptSink) Submit(ctx context.Context, t domain.Transcript) error {
	m.mu.Lock()
	m.transcripts = append(m.transcripts, t)
	m.mu.Unlock()

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, t)
	}
	return nil
}

// Transcripts returns a copy of the submitted transcripts
func (m *MockTranscriptSink) Transcripts() []domain.Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Transcript(nil), m.transcripts...)
}
