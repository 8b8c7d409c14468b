package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-graph-harvester/internal/logger"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/httpclient"
)

const (
	headerEventID        = "X-Event-ID"
	headerJobID          = "X-Graph-Job"
	headerKind           = "X-Graph-Kind"
	headerIdempotencyKey = "Idempotency-Key"
)

// httpPublisher delivers snapshot events to a webhook. Each request is
// labelled with the job and kind, routed through the URL placeholders and
// keyed by job and content hash; a 409 means the receiver already holds
// that snapshot.
type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	c := cfg.HTTP.normalized()

	return &httpPublisher{
		id:      cfg.ID,
		method:  c.Method,
		url:     c.URL,
		headers: c.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(c.TimeoutSeconds) * time.Second),
		log:     orNop(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeaders(h.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(headerEventID, evt.ID).
		SetHeader(headerJobID, evt.JobID).
		SetHeader(headerKind, evt.Kind).
		SetHeader(headerIdempotencyKey, evt.IdempotencyKey()).
		SetPathParams(evt.pathParams()).
		SetBody(evt).
		Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusConflict:
		h.log.DebugObj("http sink already has snapshot", "publisher_http_duplicate", map[string]any{
			"publisher_id":    h.id,
			"idempotency_key": evt.IdempotencyKey(),
		})
		return nil
	case resp.IsError():
		return fmt.Errorf("http response status %d from %s: %s", resp.StatusCode(), resp.Request.URL, bodySnippet(resp.Body()))
	}

	h.log.DebugObj("http sink accepted snapshot", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"job_id":       evt.JobID,
		"status":       resp.StatusCode(),
	})
	return nil
}

func bodySnippet(body []byte) string {
	const maxLen = 512
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	return strings.ToValidUTF8(strings.TrimSpace(string(body)), "")
}
