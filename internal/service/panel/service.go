package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/ports"
)

const (
	cacheKey            = "panel"
	defaultWriteTimeout = 2 * time.Second
)

// Service keeps the operator panel up to date from the pipeline's outputs and
// mirrors it to the cache so other instances and restarts can read it.
// Emit and Publish only touch memory; Run writes the latest snapshot in the
// background, so a slow cache never holds up the pipeline.
type Service struct {
	cache        ports.Cache
	writeTimeout time.Duration
	log          *zap.Logger

	mu    sync.RWMutex
	panel domain.Panel
	dirty bool

	writeMu sync.Mutex
	wake    chan struct{}
}

func NewService(cache ports.Cache, language string, log *zap.Logger) *Service {
	return &Service{
		cache:        cache,
		writeTimeout: defaultWriteTimeout,
		log:          log,
		panel: domain.Panel{
			Mode:     domain.ModeActive,
			Command:  domain.NoCommand,
			State:    domain.StateActive,
			Language: language,
		},
		wake: make(chan struct{}, 1),
	}
}

// Snapshot returns a copy of the current panel.
func (s *Service) Snapshot() domain.Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panel
}

// Restore loads the last persisted panel, if any.
func (s *Service) Restore(ctx context.Context) error {
	raw, err := s.cache.Get(ctx, cacheKey)
	if errors.Is(err, ports.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("panel: restore: %w", err)
	}

	var p domain.Panel
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return fmt.Errorf("panel: decode: %w", err)
	}

	s.mu.Lock()
	language := s.panel.Language
	s.panel = p
	s.panel.Language = language
	s.mu.Unlock()

	return nil
}

func (s *Service) Emit(ctx context.Context, res domain.Resolution) error {
	s.mu.Lock()
	s.panel.Command = res.Label.String()
	if res.Transcript != "" {
		s.panel.Transcript = res.Transcript
	}
	s.markDirty()
	s.mu.Unlock()

	return nil
}

func (s *Service) Publish(ctx context.Context, ev domain.StatusEvent) {
	s.mu.Lock()
	if ev.Mode != "" {
		s.panel.Mode = ev.Mode
	}
	if ev.Transcript != "" {
		s.panel.Transcript = ev.Transcript
	}
	if ev.State != "" {
		s.panel.State = ev.State
	}
	if ev.Status == domain.StatusSuspended {
		s.panel.Command = domain.NoCommand
	}
	s.panel.Substatus = ev.Message
	s.markDirty()
	s.mu.Unlock()
}

// markDirty must be called with mu held.
func (s *Service) markDirty() {
	s.dirty = true
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run persists panel changes until ctx is done, then writes whatever is left.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("Failed to persist panel on shutdown", zap.Error(err))
			}
			return
		case <-s.wake:
			if err := s.Flush(ctx); err != nil {
				s.log.Warn("Failed to persist panel", zap.Error(err))
			}
		}
	}
}

// Flush writes the current panel if it changed since the last write. Writes
// are serialized and always carry the newest snapshot.
func (s *Service) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.panel
	s.dirty = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := s.persist(ctx, snapshot); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Service) persist(ctx context.Context, p domain.Panel) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("panel: encode: %w", err)
	}
	if err := s.cache.Set(ctx, cacheKey, data, 0); err != nil {
		return fmt.Errorf("panel: persist: %w", err)
	}
	return nil
}
