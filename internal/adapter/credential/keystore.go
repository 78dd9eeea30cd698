package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/infrastructure/circuitbreaker"
)

var (
	// ErrStatus is returned for a non-2xx keystore response.
	ErrStatus = errors.New("keystore: unexpected status")
	// ErrMissingField is returned when the first record lacks a non-empty string field.
	ErrMissingField = errors.New("keystore: credential field missing")
)

const maxBodyBytes = 1 << 20

// KeystoreSource reads the API key from a REST key-value store that answers
// with a JSON array of records, or a single record.
type KeystoreSource struct {
	url    string
	field  string
	client circuitbreaker.Doer
	log    *zap.Logger
}

func NewKeystoreSource(url, field string, client circuitbreaker.Doer, log *zap.Logger) *KeystoreSource {
	if client == nil {
		client = http.DefaultClient
	}
	if field == "" {
		field = "apikey"
	}
	return &KeystoreSource{
		url:    url,
		field:  field,
		client: client,
		log:    log,
	}
}

func (s *KeystoreSource) FetchCredential(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("keystore: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("keystore: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("keystore: read body: %w", err)
	}

	record, err := firstRecord(body)
	if err != nil {
		return "", err
	}

	value, ok := record[s.field].(string)
	key := strings.TrimSpace(value)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %q", ErrMissingField, s.field)
	}

	s.log.Debug("Credential fetched from keystore", zap.String("url", s.url))
	return key, nil
}

func firstRecord(body []byte) (map[string]interface{}, error) {
	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("keystore: decode: %w", err)
	}

	switch v := payload.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty list", ErrMissingField)
		}
		record, ok := v[0].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: first element is not an object", ErrMissingField)
		}
		return record, nil
	case map[string]interface{}:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unexpected payload", ErrMissingField)
	}
}

// StaticSource serves a key from configuration.
type StaticSource struct {
	key string
}

func NewStaticSource(key string) *StaticSource {
	return &StaticSource{key: strings.TrimSpace(key)}
}

func (s *StaticSource) FetchCredential(ctx context.Context) (string, error) {
	if s.key == "" {
		return "", fmt.Errorf("%w: static key is empty", ErrMissingField)
	}
	return s.key, nil
}
