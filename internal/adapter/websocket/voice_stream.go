package websocket

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/ports"
)

// VoiceStreamHandler lets a speech client push recognizer events over a
// websocket. It is a transcript source: events are refused until Listen runs.
type VoiceStreamHandler struct {
	sink atomic.Pointer[sinkHolder]
	log  *zap.Logger
}

type sinkHolder struct {
	ctx  context.Context
	sink ports.TranscriptSink
}

// Ack answers every inbound event.
type Ack struct {
	ID       string `json:"id,omitempty"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

func NewVoiceStreamHandler(log *zap.Logger) *VoiceStreamHandler {
	return &VoiceStreamHandler{log: log}
}

func (h *VoiceStreamHandler) Name() string {
	return "websocket"
}

func (h *VoiceStreamHandler) Listen(ctx context.Context, sink ports.TranscriptSink) error {
	h.sink.Store(&sinkHolder{ctx: ctx, sink: sink})
	<-ctx.Done()
	h.sink.Store(nil)
	return nil
}

// HandleVoiceStream reads JSON transcript events until the client disconnects.
func (h *VoiceStreamHandler) HandleVoiceStream(c *websocket.Conn) {
	for {
		messageType, data, err := c.ReadMessage()
		if err != nil {
			h.log.Debug("Voice stream closed", zap.Error(err))
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ack := h.accept(data)
		payload, _ := json.Marshal(ack)
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Warn("Failed to write ack", zap.Error(err))
			return
		}
	}
}

func (h *VoiceStreamHandler) accept(data []byte) Ack {
	var in domain.TranscriptInput
	if err := json.Unmarshal(data, &in); err != nil {
		return Ack{Error: "invalid message"}
	}
	if in.Empty() {
		return Ack{ID: in.ID, Error: "text or results required"}
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	holder := h.sink.Load()
	if holder == nil {
		return Ack{ID: in.ID, Error: "pipeline not running"}
	}

	ctx, cancel := context.WithTimeout(holder.ctx, 5*time.Second)
	defer cancel()

	if err := holder.sink.Submit(ctx, in.Transcript(h.Name(), time.Now())); err != nil {
		h.log.Warn("Failed to submit transcript", zap.String("id", in.ID), zap.Error(err))
		return Ack{ID: in.ID, Error: err.Error()}
	}
	return Ack{ID: in.ID, Accepted: true}
}

// SetupRoutes mounts the speech client stream and the panel feed behind
// middlewares, which run before the upgrade.
func SetupRoutes(app fiber.Router, handler *VoiceStreamHandler, hub *Hub, middlewares ...fiber.Handler) {
	ws := app.Group("/ws", middlewares...)
	ws.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	ws.Get("/voice", websocket.New(handler.HandleVoiceStream))
	ws.Get("/panel", websocket.New(hub.Serve))
}
