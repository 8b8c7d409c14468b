package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts a backend transport bound to a base URL so callers can inject
// mocks or differently configured API surfaces. The path is resolved against the
// transport's base URL; a non-2xx status is returned as a Response, not an error.
type Client interface {
	Get(ctx context.Context, path string, headers map[string]string) (Response, error)
}
