package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
)

// SimulatorConfig holds the simulator configuration
type SimulatorConfig struct {
	ServerURL string
	Delay     time.Duration
	Panel     bool
	Token     string
}

// Simulator plays the role of a speech recognizer: every line becomes a
// transcript event on the voice stream.
type Simulator struct {
	config *SimulatorConfig
	out    io.Writer
	log    *zap.Logger

	voice *websocket.Conn
	panel *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan ack
	wg      sync.WaitGroup
}

type ack struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error"`
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewSimulator(config *SimulatorConfig, out io.Writer, log *zap.Logger) *Simulator {
	return &Simulator{
		config:  config,
		out:     out,
		log:     log,
		pending: make(map[string]chan ack),
	}
}

// Connect opens the voice stream and, when enabled, the panel feed.
func (s *Simulator) Connect(ctx context.Context) error {
	base := strings.TrimRight(s.config.ServerURL, "/")

	var header http.Header
	if s.config.Token != "" {
		header = http.Header{"Authorization": {"Bearer " + s.config.Token}}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, base+"/ws/voice", header)
	if err != nil {
		return fmt.Errorf("dial voice stream: %w", err)
	}
	s.voice = conn
	s.log.Info("Connected to voice stream", zap.String("url", base+"/ws/voice"))

	s.wg.Add(1)
	go s.readAcks()

	if s.config.Panel {
		panel, _, err := websocket.DefaultDialer.DialContext(ctx, base+"/ws/panel", header)
		if err != nil {
			s.log.Warn("Panel feed unavailable", zap.Error(err))
			return nil
		}
		s.panel = panel
		s.wg.Add(1)
		go s.readPanel()
	}

	return nil
}

// Speak sends every line of r as an utterance and waits for its ack.
func (s *Simulator) Speak(ctx context.Context, r io.Reader, scripted bool) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		final := true
		if strings.HasPrefix(line, "~") {
			final = false
			line = strings.TrimSpace(line[1:])
		}

		if err := s.Say(ctx, line, final); err != nil {
			return err
		}

		if scripted {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.config.Delay):
			}
		}
	}
	return scanner.Err()
}

// Say sends one transcript event and waits for the service to acknowledge it.
func (s *Simulator) Say(ctx context.Context, text string, final bool) error {
	in := domain.TranscriptInput{
		ID:     uuid.NewString(),
		Source: "simulator",
		Text:   text,
		Final:  &final,
	}

	ch := make(chan ack, 1)
	s.mu.Lock()
	s.pending[in.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, in.ID)
		s.mu.Unlock()
	}()

	s.mu.Lock()
	err := s.voice.WriteJSON(in)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("send utterance: %w", err)
	}
	fmt.Fprintf(s.out, "> %s\n", text)

	select {
	case a := <-ch:
		if !a.Accepted {
			fmt.Fprintf(s.out, "  rejected: %s\n", a.Error)
		}
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("no ack for %s", in.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulator) readAcks() {
	defer s.wg.Done()
	for {
		var a ack
		if err := s.voice.ReadJSON(&a); err != nil {
			s.log.Debug("Voice stream closed", zap.Error(err))
			return
		}
		s.mu.Lock()
		ch, ok := s.pending[a.ID]
		s.mu.Unlock()
		if ok {
			ch <- a
		}
	}
}

func (s *Simulator) readPanel() {
	defer s.wg.Done()
	for {
		var env envelope
		if err := s.panel.ReadJSON(&env); err != nil {
			s.log.Debug("Panel feed closed", zap.Error(err))
			return
		}

		switch env.Type {
		case "command":
			var res domain.Resolution
			if err := json.Unmarshal(env.Data, &res); err == nil {
				fmt.Fprintf(s.out, "  => %s (%s, %s)\n", res.Label, res.Path, res.Latency)
			}
		case "status":
			var ev domain.StatusEvent
			if err := json.Unmarshal(env.Data, &ev); err == nil {
				fmt.Fprintf(s.out, "  [%s] %s\n", ev.State, ev.Message)
			}
		}
	}
}

// Close shuts both connections and waits for the readers to exit.
func (s *Simulator) Close() {
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	for _, conn := range []*websocket.Conn{s.voice, s.panel} {
		if conn == nil {
			continue
		}
		conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		conn.Close()
	}
	s.wg.Wait()
}
