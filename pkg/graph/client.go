// Package graph is the read-only client for the topology graph backend. Every
// fetch method absorbs transport failures and answers with an
// operation-specific default instead of an error.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-graph-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/querystring"
)

const (
	NodesPath          = "/graphs/nodes/nodes"
	definitionsForPath = "/graphs/for/"
	definitionPath     = "/graphs/"
)

// Client issues graph queries against two backend API surfaces: v2 serves the
// node graph, rest serves graph definitions. It holds no mutable state and is
// safe for concurrent use.
type Client struct {
	v2   httpclient.Client
	rest httpclient.Client
	log  Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used to report substituted failures.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient builds a Client over the v2 and rest transports.
func NewClient(v2, rest httpclient.Client, opts ...Option) (*Client, error) {
	if v2 == nil {
		return nil, errors.New("v2 transport must not be nil")
	}
	if rest == nil {
		return nil, errors.New("rest transport must not be nil")
	}

	c := &Client{v2: v2, rest: rest, log: noopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchGraphNodes returns the vertices and edges matching params. A 204 from
// the backend is an empty graph. The boolean is false when the request failed
// for any reason; the returned graph is then the zero value.
func (c *Client) FetchGraphNodes(ctx context.Context, params querystring.Parameters) (NodesResponse, bool) {
	path := NodesPath
	if params != nil {
		path = querystring.Append(NodesPath, params)
	}

	nodes, err := c.graphNodes(ctx, path)
	if err != nil {
		c.reportFailure("graph nodes", path, err)
		return NodesResponse{}, false
	}
	return nodes, true
}

// FetchGraphDefinitionsByResourceID lists graph definitions for a resource.
// The id is opaque and appended to the path as given, so ids such as
// "node[1].nodeSnmp[]" or "a/b" reach the backend unchanged. On failure it returns a value with an empty Name list, so callers can always
// range over Name.
func (c *Client) FetchGraphDefinitionsByResourceID(ctx context.Context, id string) DefinitionsResponse {
	path := definitionsForPath + id

	defs, err := c.graphDefinitions(ctx, path)
	if err != nil {
		c.reportFailure("graph definitions", path, err)
		return EmptyDefinitions()
	}
	return defs
}

// FetchDefinitionData returns the pre-built graph for a definition, or nil on
// failure. Like resource ids, the definition is appended to the path as given.
func (c *Client) FetchDefinitionData(ctx context.Context, definition string) PreFabGraph {
	path := definitionPath + definition

	graph, err := c.definitionData(ctx, path)
	if err != nil {
		c.reportFailure("graph definition data", path, err)
		return nil
	}
	return graph
}

func (c *Client) graphNodes(ctx context.Context, path string) (NodesResponse, error) {
	resp, err := c.get(ctx, c.v2, path)
	if err != nil {
		return NodesResponse{}, err
	}
	if resp.StatusCode() == http.StatusNoContent {
		return EmptyNodes(), nil
	}

	var nodes NodesResponse
	if err := decode(resp.Body(), &nodes); err != nil {
		return NodesResponse{}, err
	}
	return nodes.normalized(), nil
}

func (c *Client) graphDefinitions(ctx context.Context, path string) (DefinitionsResponse, error) {
	resp, err := c.get(ctx, c.rest, path)
	if err != nil {
		return DefinitionsResponse{}, err
	}

	var defs DefinitionsResponse
	if err := decode(resp.Body(), &defs); err != nil {
		return DefinitionsResponse{}, err
	}
	return defs, nil
}

func (c *Client) definitionData(ctx context.Context, path string) (PreFabGraph, error) {
	resp, err := c.get(ctx, c.rest, path)
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json body: %s", ErrDecode, snippet(body))
	}
	if isJSONNull(body) {
		return nil, fmt.Errorf("%w: null body", ErrDecode)
	}
	out := make(PreFabGraph, len(body))
	copy(out, body)
	return out, nil
}

func (c *Client) reportFailure(op, path string, err error) {
	c.log.WarnObj("graph query failed; using default", "graph_failure", map[string]any{
		"operation": op,
		"path":      path,
		"error":     err.Error(),
	})
}

// get performs the GET and rejects anything that is not a 2xx response.
func (c *Client) get(ctx context.Context, transport httpclient.Client, path string) (httpclient.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := transport.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrRequest, path, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: GET %s: empty response", ErrRequest, path)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("%w: GET %s returned status %d body: %s", ErrStatus, path, code, snippet(resp.Body()))
	}
	c.log.DebugObj("graph query answered", "graph_response", map[string]any{
		"path":   path,
		"status": resp.StatusCode(),
		"bytes":  len(resp.Body()),
	})
	return resp, nil
}

func decode(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %w (body: %s)", ErrDecode, err, snippet(body))
	}
	return nil
}

func snippet(body []byte) string {
	const maxLen = 256
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
