package handlers

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/ports"
)

// PanelReader exposes the operator panel.
type PanelReader interface {
	Snapshot() domain.Panel
}

// VoiceHandler accepts transcripts over HTTP and serves the operator panel.
// It is a transcript source: requests are rejected until Listen hands it a sink.
type VoiceHandler struct {
	panel PanelReader
	log   *zap.Logger

	sink atomic.Pointer[sinkRef]
}

type sinkRef struct {
	sink ports.TranscriptSink
}

func NewVoiceHandler(panel PanelReader, log *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		panel: panel,
		log:   log,
	}
}

func (h *VoiceHandler) Name() string {
	return "http"
}

// Listen routes submitted transcripts to sink until ctx is done.
func (h *VoiceHandler) Listen(ctx context.Context, sink ports.TranscriptSink) error {
	h.sink.Store(&sinkRef{sink: sink})
	<-ctx.Done()
	h.sink.Store(nil)
	return nil
}

const submitTimeout = 5 * time.Second

// SubmitTranscript queues a recognizer event. The label is delivered
// asynchronously to the command sinks.
func (h *VoiceHandler) SubmitTranscript(c *fiber.Ctx) error {
	var in domain.TranscriptInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if in.Empty() {
		return fiber.NewError(fiber.StatusBadRequest, "text or results required")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	ref := h.sink.Load()
	if ref == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "pipeline not running")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), submitTimeout)
	defer cancel()

	t := in.Transcript(h.Name(), time.Now())
	if err := ref.sink.Submit(ctx, t); err != nil {
		h.log.Warn("Failed to submit transcript", zap.String("id", t.ID), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "pipeline busy")
		}
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": t.ID})
}

// GetStatus returns the operator panel.
func (h *VoiceHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.panel.Snapshot())
}
