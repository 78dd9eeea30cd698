package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/seu-repo/alfa-voz/internal/domain"
)

// MockCredentialSource is a mock implementation of CredentialSource interface
type MockCredentialSource struct {
	FetchCredentialFunc func(ctx context.Context) (string, error)

	calls atomic.Int32
}

func (m *MockCredentialSource) FetchCredential(ctx context.Context) (string, error) {
	m.calls.Add(1)
	if m.FetchCredentialFunc != nil {
		return m.FetchCredentialFunc(ctx)
	}
	return "sk-test", nil
}

// Calls returns how many times FetchCredential was invoked
func (m *MockCredentialSource) Calls() int {
	return int(m.calls.Load())
}

// MockCredentialProvider is a mock implementation of CredentialProvider interface
type MockCredentialProvider struct {
	CredentialFunc func(ctx context.Context) string
}

func (m *MockCredentialProvider) Credential(ctx context.Context) string {
	if m.CredentialFunc != nil {
		return m.CredentialFunc(ctx)
	}
	return "sk-test"
}

// ClassifyCall records the arguments of one Classify invocation
type ClassifyCall struct {
	Text       string
	Credential string
}

// MockCommandClassifier is a mock implementation of CommandClassifier interface
type MockCommandClassifier struct {
	ClassifyFunc func(ctx context.Context, text, credential string) domain.Verdict

	mu    sync.Mutex
	calls []ClassifyCall
}

func (m *MockCommandClassifier) Classify(ctx context.Context, text, credential string) domain.Verdict {
	m.mu.Lock()
	m.calls = append(m.calls, ClassifyCall{Text: text, Credential: credential})
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, text, credential)
	}
	if credential == "" {
		return domain.Verdict{Label: domain.LabelUnrecognized, Failure: domain.FailureNoCredential}
	}
	return domain.Verdict{Label: domain.LabelUnrecognized, Failure: domain.FailureInvalidOutput}
}

// Calls returns a copy of every recorded invocation
func (m *MockCommandClassifier) Calls() []ClassifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ClassifyCall(nil), m.calls...)
}
