package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/ports"
)

// MessageQueue defines the interface for a message queue adapter
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// Publisher forwards resolutions and status events to the queue as JSON.
type Publisher struct {
	mq              MessageQueue
	commandsSubject string
	statusSubject   string
	log             *zap.Logger
}

func NewPublisher(mq MessageQueue, commandsSubject, statusSubject string, log *zap.Logger) *Publisher {
	return &Publisher{
		mq:              mq,
		commandsSubject: commandsSubject,
		statusSubject:   statusSubject,
		log:             log,
	}
}

func (p *Publisher) Emit(ctx context.Context, res domain.Resolution) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("queue: marshal resolution: %w", err)
	}
	if err := p.mq.Publish(p.commandsSubject, data); err != nil {
		return fmt.Errorf("queue: publish resolution: %w", err)
	}
	return nil
}

func (p *Publisher) Publish(ctx context.Context, ev domain.StatusEvent) {
	if p.statusSubject == "" {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("Failed to marshal status event", zap.Error(err))
		return
	}
	if err := p.mq.Publish(p.statusSubject, data); err != nil {
		p.log.Warn("Failed to publish status event", zap.String("subject", p.statusSubject), zap.Error(err))
	}
}

// Subscriber feeds transcripts published on a subject into the pipeline.
type Subscriber struct {
	mq      MessageQueue
	subject string
	log     *zap.Logger
}

func NewSubscriber(mq MessageQueue, subject string, log *zap.Logger) *Subscriber {
	return &Subscriber{mq: mq, subject: subject, log: log}
}

func (s *Subscriber) Name() string {
	return "queue:" + s.subject
}

// Listen subscribes and blocks until ctx is done.
func (s *Subscriber) Listen(ctx context.Context, sink ports.TranscriptSink) error {
	err := s.mq.Subscribe(s.subject, func(data []byte) error {
		var in domain.TranscriptInput
		if err := json.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("queue: decode transcript: %w", err)
		}
		return sink.Submit(ctx, in.Transcript(s.Name(), time.Now()))
	})
	if err != nil {
		return fmt.Errorf("queue: subscribe %s: %w", s.subject, err)
	}

	s.log.Info("Listening for transcripts", zap.String("subject", s.subject))
	<-ctx.Done()
	return nil
}
