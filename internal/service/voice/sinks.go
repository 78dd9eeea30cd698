package voice

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/ports"
)

// CommandSinks fans a resolution out to every sink.
type CommandSinks []ports.CommandSink

func (s CommandSinks) Emit(ctx context.Context, res domain.Resolution) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Emit(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StatusSinks fans a status event out to every sink.
type StatusSinks []ports.StatusSink

func (s StatusSinks) Publish(ctx context.Context, ev domain.StatusEvent) {
	for _, sink := range s {
		sink.Publish(ctx, ev)
	}
}

// LogSink writes resolutions and status signals to the logger.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(ctx context.Context, res domain.Resolution) error {
	s.log.Info("Command resolved",
		zap.String("utterance_id", res.UtteranceID),
		zap.String("label", res.Label.String()),
		zap.String("path", string(res.Path)),
		zap.String("failure", string(res.Failure)),
		zap.Duration("latency", res.Latency),
	)
	return nil
}

func (s *LogSink) Publish(ctx context.Context, ev domain.StatusEvent) {
	s.log.Debug("Status changed",
		zap.String("status", string(ev.Status)),
		zap.String("mode", string(ev.Mode)),
		zap.String("message", ev.Message),
	)
}
