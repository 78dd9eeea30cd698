package credential

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/observability/telemetry"
	"github.com/seu-repo/alfa-voz/internal/ports"
)

const (
	flightKey      = "credential"
	defaultTimeout = 10 * time.Second
)

// Service memoizes the classifier credential. Concurrent callers that find it
// missing share one fetch; a failed fetch is not remembered, so the next
// caller tries again.
type Service struct {
	source  ports.CredentialSource
	status  ports.StatusSink
	timeout time.Duration
	log     *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	key   string
}

func NewService(source ports.CredentialSource, status ports.StatusSink, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		source:  source,
		status:  status,
		timeout: timeout,
		log:     log,
	}
}

// Credential returns the memoized key, fetching it if needed. An empty string
// means the fetch failed or ctx ended first.
func (s *Service) Credential(ctx context.Context) string {
	if key := s.cached(); key != "" {
		return key
	}

	key, err := s.load(ctx)
	if err != nil {
		s.log.Warn("Credential unavailable", zap.Error(err))
		return ""
	}
	return key
}

// Warm starts the fetch at startup and reports progress to the operator.
func (s *Service) Warm(ctx context.Context) error {
	s.publish(ctx, domain.StatusLoadingCredential, "", "Cargando credenciales…")

	if _, err := s.load(ctx); err != nil {
		s.log.Error("Failed to load credential", zap.Error(err))
		s.publish(ctx, domain.StatusNoCredential, domain.ModeError,
			fmt.Sprintf("No pude cargar API Key: %v", err))
		return err
	}

	s.log.Info("Credential loaded")
	s.publish(ctx, domain.StatusListening, "", "Listo. Escuchando órdenes…")
	return nil
}

// Loaded reports whether a key is memoized.
func (s *Service) Loaded() bool {
	return s.cached() != ""
}

// Reset forgets the memoized key.
func (s *Service) Reset() {
	s.mu.Lock()
	s.key = ""
	s.mu.Unlock()
}

func (s *Service) cached() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

func (s *Service) load(ctx context.Context) (string, error) {
	ch := s.group.DoChan(flightKey, func() (interface{}, error) {
		if key := s.cached(); key != "" {
			return key, nil
		}

		// The fetch is shared, so one caller giving up must not cancel it for the rest.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		fetchCtx, span := telemetry.StartSpan(fetchCtx, "credential.fetch")
		defer span.End()

		key, err := s.source.FetchCredential(fetchCtx)
		if err == nil && key == "" {
			err = fmt.Errorf("credential: empty key")
		}
		if err != nil {
			span.RecordError(err)
			telemetry.CredentialFetchesTotal.WithLabelValues("failure").Inc()
			return "", err
		}

		telemetry.CredentialFetchesTotal.WithLabelValues("success").Inc()

		s.mu.Lock()
		s.key = key
		s.mu.Unlock()

		return key, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("credential: wait for fetch: %w", ctx.Err())
	}
}

func (s *Service) publish(ctx context.Context, status domain.Status, mode domain.Mode, message string) {
	if s.status == nil {
		return
	}
	s.status.Publish(ctx, domain.StatusEvent{
		Status:  status,
		Mode:    mode,
		Message: message,
		At:      time.Now(),
	})
}
