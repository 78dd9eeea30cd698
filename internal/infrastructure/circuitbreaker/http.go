package circuitbreaker

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrServerStatus marks a 5xx response; it counts against the breaker.
var ErrServerStatus = errors.New("circuitbreaker: server error")

// Doer is the subset of *http.Client used by the adapters.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClientSettings configures the HTTP client with circuit breaker
type HTTPClientSettings struct {
	Name    string
	Timeout time.Duration

	// MaxRequests is how many requests may pass while half-open
	MaxRequests uint32
	// Interval is the cyclic period of the closed state for clearing counts
	Interval time.Duration
	// BreakerTimeout is how long the breaker stays open before probing
	BreakerTimeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold uint32
}

// DefaultHTTPClientSettings returns default settings
func DefaultHTTPClientSettings(name string) HTTPClientSettings {
	return HTTPClientSettings{
		Name:             name,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
		Interval:         time.Minute,
		BreakerTimeout:   30 * time.Second,
		FailureThreshold: 5,
	}
}

// HTTPClient wraps an HTTP client with circuit breaker protection
type HTTPClient struct {
	client  Doer
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewHTTPClient creates a new HTTP client with the given settings. A nil
// client gets a plain *http.Client with settings.Timeout.
func NewHTTPClient(client Doer, settings HTTPClientSettings, log *zap.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: settings.Timeout}
	}

	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("HTTP client circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &HTTPClient{
		client:  client,
		breaker: breaker,
		log:     log,
	}
}

// Do executes an HTTP request with circuit breaker protection. 5xx responses
// are drained and returned as ErrServerStatus.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", ErrServerStatus, resp.StatusCode)
		}

		return resp, nil
	})

	if err != nil {
		if IsCircuitOpen(err) {
			c.log.Warn("Circuit breaker open, request blocked",
				zap.String("url", req.URL.String()),
				zap.String("breaker", c.breaker.Name()),
			)
		}
		return nil, err
	}

	return result.(*http.Response), nil
}

// State reports the breaker state as text.
func (c *HTTPClient) State() string {
	return c.breaker.State().String()
}

// IsCircuitOpen reports whether err came from a breaker refusing the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
