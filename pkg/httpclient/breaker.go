package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// errServerStatus marks a 5xx response so the breaker counts it as a failure.
var errServerStatus = errors.New("server error status")

// BreakerSettings configures a BreakerClient.
type BreakerSettings struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout   time.Duration
	OnStateChange func(name, from, to string)
}

// BreakerClient guards a Client with a circuit breaker. While the breaker is
// open, Get fails fast with gobreaker.ErrOpenState.
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps next with a consecutive-failure circuit breaker.
func NewBreakerClient(next Client, s BreakerSettings) *BreakerClient {
	if s.MaxFailures == 0 {
		s.MaxFailures = 3
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 5 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about backend health
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if s.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			s.OnStateChange(name, from.String(), to.String())
		}
	}

	return &BreakerClient{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Get forwards the request through the breaker. Server error statuses are
// counted as failures but still returned to the caller as a Response.
func (b *BreakerClient) Get(ctx context.Context, path string, headers map[string]string) (Response, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := b.next.Get(ctx, path, headers)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if err != nil && !errors.Is(err, errServerStatus) {
		return nil, fmt.Errorf("breaker %s: %w", b.cb.Name(), err)
	}
	resp, _ := out.(Response)
	return resp, nil
}

// State reports the current breaker state name.
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}
