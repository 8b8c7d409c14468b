package httpclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

type stubResponse struct {
	status int
	body   []byte
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.status }

type stubClient struct {
	calls  int
	status int
	err    error
}

func (s *stubClient) Get(context.Context, string, map[string]string) (Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return stubResponse{status: s.status}, nil
}

func TestBreakerClientOpensAfterConsecutiveFailures(t *testing.T) {
	next := &stubClient{err: errors.New("connection refused")}
	var transitions []string
	client := NewBreakerClient(next, BreakerSettings{
		Name:        "v2",
		MaxFailures: 2,
		OpenTimeout: time.Minute,
		OnStateChange: func(_, from, to string) {
			transitions = append(transitions, from+"->"+to)
		},
	})

	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), "/graphs", nil); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if client.State() != "open" {
		t.Fatalf("expected open breaker, got %s", client.State())
	}

	_, err := client.Get(context.Background(), "/graphs", nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("expected open breaker to skip transport, got %d calls", next.calls)
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}

func TestBreakerClientCountsServerErrorsButReturnsResponse(t *testing.T) {
	next := &stubClient{status: 503}
	client := NewBreakerClient(next, BreakerSettings{Name: "rest", MaxFailures: 1, OpenTimeout: time.Minute})

	resp, err := client.Get(context.Background(), "/graphs/x", nil)
	if err != nil {
		t.Fatalf("expected 5xx to be returned as response, got %v", err)
	}
	if resp.StatusCode() != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode())
	}
	if client.State() != "open" {
		t.Fatalf("expected breaker to open after server error, got %s", client.State())
	}
}

func TestBreakerClientPassesClientErrorsThrough(t *testing.T) {
	next := &stubClient{status: 404}
	client := NewBreakerClient(next, BreakerSettings{Name: "rest", MaxFailures: 1})

	for i := 0; i < 3; i++ {
		resp, err := client.Get(context.Background(), "/graphs/x", nil)
		if err != nil || resp.StatusCode() != 404 {
			t.Fatalf("call %d: resp=%v err=%v", i, resp, err)
		}
	}
	if client.State() != "closed" {
		t.Fatalf("4xx must not trip the breaker, got %s", client.State())
	}
}
