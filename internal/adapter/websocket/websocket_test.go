package websocket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/mocks"
)

type testServer struct {
	url    string
	hub    *Hub
	stream *VoiceStreamHandler
	sink   *mocks.MockTranscriptSink
}

func newTestServer(t *testing.T, middlewares ...fiber.Handler) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	stream := NewVoiceStreamHandler(zap.NewNop())
	sink := &mocks.MockTranscriptSink{}
	go stream.Listen(ctx, sink)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	SetupRoutes(app, stream, hub, middlewares...)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)

	t.Cleanup(func() {
		cancel()
		app.ShutdownWithTimeout(time.Second)
	})

	deadline := time.Now().Add(time.Second)
	for stream.sink.Load() == nil {
		if time.Now().After(deadline) {
			t.Fatal("stream handler never started listening")
		}
		time.Sleep(time.Millisecond)
	}

	return &testServer{url: "ws://" + ln.Addr().String(), hub: hub, stream: stream, sink: sink}
}

func dial(t *testing.T, url string) *gorilla.Conn {
	t.Helper()
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestVoiceStream_SubmitsTranscripts(t *testing.T) {
	// Arrange
	srv := newTestServer(t)
	conn := dial(t, srv.url+"/ws/voice")

	// Act
	if err := conn.WriteJSON(map[string]interface{}{"id": "t-1", "text": "Avanza"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack Ack
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}

	// Assert
	if !ack.Accepted || ack.ID != "t-1" {
		t.Errorf("unexpected ack %+v", ack)
	}
	got := srv.sink.Transcripts()
	if len(got) != 1 {
		t.Fatalf("expected one transcript, got %d", len(got))
	}
	if text, _ := got[0].Latest(); text != "Avanza" || got[0].Source != "websocket" {
		t.Errorf("unexpected transcript %+v", got[0])
	}
}

func TestSetupRoutes_RequiresToken(t *testing.T) {
	// Arrange
	const secret = "ws-secret"
	srv := newTestServer(t, middleware.JWTAuth(secret, ""))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "panel",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	for _, path := range []string{"/ws/voice", "/ws/panel"} {
		t.Run(path, func(t *testing.T) {
			// Act
			_, resp, err := gorilla.DefaultDialer.Dial(srv.url+path, nil)

			// Assert
			if err == nil {
				t.Fatal("expected the handshake to be refused without a token")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %+v", resp)
			}

			dial(t, srv.url+path+"?access_token="+token)

			header := http.Header{"Authorization": {"Bearer " + token}}
			conn, _, err := gorilla.DefaultDialer.Dial(srv.url+path, header)
			if err != nil {
				t.Fatalf("dial with bearer header: %v", err)
			}
			conn.Close()
		})
	}
}

func TestVoiceStream_RejectsInvalidMessages(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv.url+"/ws/voice")

	conn.WriteMessage(gorilla.TextMessage, []byte(`{`))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack Ack
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Accepted || ack.Error == "" {
		t.Errorf("expected rejection, got %+v", ack)
	}

	conn.WriteJSON(map[string]string{"text": "  "})
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Accepted {
		t.Errorf("blank text must be rejected, got %+v", ack)
	}
}

func TestHub_BroadcastsToPanels(t *testing.T) {
	// Arrange
	srv := newTestServer(t)
	conn := dial(t, srv.url+"/ws/panel")

	deadline := time.Now().Add(time.Second)
	for srv.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("panel never registered")
		}
		time.Sleep(time.Millisecond)
	}

	// Act
	if err := srv.hub.Emit(context.Background(), domain.Resolution{Label: domain.LabelRight360, Path: domain.PathRemote}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	srv.hub.Publish(context.Background(), domain.StatusEvent{Status: domain.StatusRecognizedRemote, Message: "Orden reconocida."})

	// Assert
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first struct {
		Type string            `json:"type"`
		Data domain.Resolution `json:"data"`
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Type != "command" || first.Data.Label != domain.LabelRight360 {
		t.Errorf("unexpected first message %+v", first)
	}

	var second struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second.Type != "status" {
		t.Errorf("expected status message, got %q", second.Type)
	}
}

func TestHub_SendNeverBlocks(t *testing.T) {
	hub := NewHub(zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*2; i++ {
			hub.Publish(context.Background(), domain.StatusEvent{Status: domain.StatusListening})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running hub")
	}

	if err := hub.Emit(context.Background(), domain.Resolution{Label: domain.LabelStop}); err == nil {
		t.Error("expected an error once the buffer is full")
	}
}
