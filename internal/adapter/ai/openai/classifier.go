package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/infrastructure/circuitbreaker"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1/responses"
	DefaultModel    = "gpt-4o-mini"
	defaultTimeout  = 8 * time.Second
	maxBodyBytes    = 1 << 20
)

// Classifier resolves free text to a command label through the Responses API.
// Its output is untrusted until it passes domain.ParseLabel.
type Classifier struct {
	endpoint   string
	model      string
	timeout    time.Duration
	httpClient circuitbreaker.Doer
	prompt     string
	log        *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

func WithEndpoint(endpoint string) Option {
	return func(c *Classifier) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithModel(model string) Option {
	return func(c *Classifier) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each classification call; expiry counts as a transport failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(client circuitbreaker.Doer) Option {
	return func(c *Classifier) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClassifier(log *zap.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		endpoint:   DefaultEndpoint,
		model:      DefaultModel,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
		prompt:     SystemPrompt(),
		log:        log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string    `json:"model"`
	Input       []message `json:"input"`
	Temperature float64   `json:"temperature"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Classify never fails: a missing credential, a transport problem or an answer
// outside the vocabulary all come back as the sentinel label.
func (c *Classifier) Classify(ctx context.Context, text, credential string) domain.Verdict {
	if credential == "" {
		return domain.Verdict{Label: domain.LabelUnrecognized, Failure: domain.FailureNoCredential}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.complete(ctx, text, credential)
	if err != nil {
		c.log.Warn("Remote classification failed", zap.Error(err))
		return domain.Verdict{Label: domain.LabelUnrecognized, Failure: domain.FailureTransport}
	}

	label, ok := domain.ParseLabel(out)
	if !ok {
		c.log.Info("Remote classifier answered outside the vocabulary", zap.String("output", out))
		return domain.Verdict{Label: domain.LabelUnrecognized, Failure: domain.FailureInvalidOutput, Raw: out}
	}

	return domain.Verdict{Label: label, Raw: out}
}

func (c *Classifier) complete(ctx context.Context, text, credential string) (string, error) {
	payload, err := json.Marshal(responsesRequest{
		Model: c.model,
		Input: []message{
			{Role: "system", Content: c.prompt},
			{Role: "user", Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("openai: API error status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}

	var result responsesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}

	return extractText(result), nil
}

// extractText prefers the aggregated output_text; otherwise it joins the text
// fragments of the first output item that has any.
func extractText(r responsesResponse) string {
	if s := strings.TrimSpace(r.OutputText); s != "" {
		return s
	}

	for _, item := range r.Output {
		var b strings.Builder
		for _, part := range item.Content {
			b.WriteString(part.Text)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s
		}
	}

	return ""
}

// SystemPrompt lists the closed vocabulary, one label per line, and the rules
// the model must follow to pick one.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("Eres un clasificador de comandos de voz para un vehículo.\n")
	b.WriteString("Responde ÚNICAMENTE con EXACTAMENTE una de estas opciones (una sola línea):\n")
	for _, label := range domain.AllLabels() {
		b.WriteString(label.String())
		b.WriteString("\n")
	}
	b.WriteString(`
Reglas:
- Acepta sinónimos y frases coloquiales (por ejemplo "sigue", "adelante" o "ve recto" significan avanzar).
- Si la orden está negada ("no avances", "no gires"), responde Orden no reconocida.
- Si la frase implica varias acciones, responde solo la acción principal.
- Usa "90°" o "360°" solo si se menciona el ángulo (90, noventa, 360, trescientos sesenta); sin ángulo usa "vuelta derecha" o "vuelta izquierda".
- Si no hay una orden clara, responde Orden no reconocida.

No agregues explicaciones, comillas, ni texto extra.`)
	return b.String()
}
