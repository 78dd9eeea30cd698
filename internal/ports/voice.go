package ports

import (
	"context"
	"errors"
	"time"

	"github.com/seu-repo/alfa-voz/internal/domain"
)

// CredentialSource fetches the classifier API key from wherever it is kept.
type CredentialSource interface {
	FetchCredential(ctx context.Context) (string, error)
}

// CredentialProvider hands out the memoized credential. An empty string means
// no credential is available right now.
type CredentialProvider interface {
	Credential(ctx context.Context) string
}

// CommandClassifier resolves free text to a label using an external model.
// It must never fail: every problem is folded into the returned Verdict.
type CommandClassifier interface {
	Classify(ctx context.Context, text, credential string) domain.Verdict
}

// CommandSink receives exactly one resolution per classified utterance.
type CommandSink interface {
	Emit(ctx context.Context, res domain.Resolution) error
}

// StatusSink receives operator-facing status signals.
type StatusSink interface {
	Publish(ctx context.Context, ev domain.StatusEvent)
}

// TranscriptSink accepts recognizer events for resolution.
type TranscriptSink interface {
	Submit(ctx context.Context, t domain.Transcript) error
}

// TranscriptSource delivers recognizer events to a sink until ctx is done.
type TranscriptSource interface {
	Name() string
	Listen(ctx context.Context, sink TranscriptSink) error
}

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
