package circuitbreaker

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHTTPClient_PassesThroughSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(nil, DefaultHTTPClientSettings("test"), zap.NewNop())

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHTTPClient_OpensAfterConsecutiveServerErrors(t *testing.T) {
	// Arrange
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	settings := DefaultHTTPClientSettings("test")
	settings.FailureThreshold = 3
	settings.BreakerTimeout = time.Minute
	client := NewHTTPClient(nil, settings, zap.NewNop())

	// Act
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		_, err := client.Do(req)
		if !errors.Is(err, ErrServerStatus) {
			t.Fatalf("call %d: expected ErrServerStatus, got %v", i, err)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := client.Do(req)

	// Assert
	if !IsCircuitOpen(err) {
		t.Errorf("expected open circuit, got %v", err)
	}
	if client.State() != "open" {
		t.Errorf("expected state 'open', got %q", client.State())
	}
	if hits.Load() != 3 {
		t.Errorf("open breaker must not reach the server, got %d hits", hits.Load())
	}
}

func TestHTTPClient_ClientErrorsDoNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	settings := DefaultHTTPClientSettings("test")
	settings.FailureThreshold = 1
	client := NewHTTPClient(nil, settings, zap.NewNop())

	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("expected the 401 response to be returned, got %v", err)
		}
		resp.Body.Close()
	}

	if client.State() != "closed" {
		t.Errorf("expected state 'closed', got %q", client.State())
	}
}
