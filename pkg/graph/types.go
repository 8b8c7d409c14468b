package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	keyVertices = "vertices"
	keyEdges    = "edges"
	keyName     = "name"
)

// NodesResponse is the vertex/edge set returned by the nodes endpoint. Both
// slices are always non-nil; each element is an opaque backend descriptor.
// Other top-level keys (focus, namespace, ...) are kept in Extra and written
// back in their original order by MarshalJSON.
type NodesResponse struct {
	Vertices []json.RawMessage
	Edges    []json.RawMessage
	Extra    map[string]json.RawMessage

	order []string
}

// EmptyNodes returns a graph with no vertices and no edges.
func EmptyNodes() NodesResponse {
	return NodesResponse{Vertices: []json.RawMessage{}, Edges: []json.RawMessage{}}
}

func (r NodesResponse) normalized() NodesResponse {
	if r.Vertices == nil {
		r.Vertices = []json.RawMessage{}
	}
	if r.Edges == nil {
		r.Edges = []json.RawMessage{}
	}
	return r
}

// UnmarshalJSON decodes a nodes object, keeping unknown keys.
func (r *NodesResponse) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}

	out := NodesResponse{order: obj.keys}
	for key, raw := range obj.fields {
		switch key {
		case keyVertices:
			if err := json.Unmarshal(raw, &out.Vertices); err != nil {
				return fmt.Errorf("vertices: %w", err)
			}
		case keyEdges:
			if err := json.Unmarshal(raw, &out.Edges); err != nil {
				return fmt.Errorf("edges: %w", err)
			}
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = raw
		}
	}

	*r = out.normalized()
	return nil
}

// MarshalJSON encodes vertices and edges alongside any preserved keys.
func (r NodesResponse) MarshalJSON() ([]byte, error) {
	fields := copyFields(r.Extra, 2)
	if err := putList(fields, keyVertices, r.Vertices); err != nil {
		return nil, err
	}
	if err := putList(fields, keyEdges, r.Edges); err != nil {
		return nil, err
	}
	return encodeObject(keyOrder(r.order, fields, keyVertices, keyEdges), fields)
}

// DefinitionsResponse lists the graph definitions available for a resource.
// Name is never nil. Keys other than "name" are kept in Extra and written
// back unchanged by MarshalJSON.
type DefinitionsResponse struct {
	Name  []json.RawMessage
	Extra map[string]json.RawMessage

	order []string
}

// EmptyDefinitions returns the default definitions value.
func EmptyDefinitions() DefinitionsResponse {
	return DefinitionsResponse{Name: []json.RawMessage{}}
}

// UnmarshalJSON decodes a definitions object, keeping unknown keys.
func (r *DefinitionsResponse) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}

	out := EmptyDefinitions()
	out.order = obj.keys
	for key, raw := range obj.fields {
		if key == keyName {
			if err := json.Unmarshal(raw, &out.Name); err != nil {
				return fmt.Errorf("name: %w", err)
			}
			if out.Name == nil {
				out.Name = []json.RawMessage{}
			}
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = raw
	}

	*r = out
	return nil
}

// MarshalJSON encodes Name alongside any preserved keys.
func (r DefinitionsResponse) MarshalJSON() ([]byte, error) {
	fields := copyFields(r.Extra, 1)
	if err := putList(fields, keyName, r.Name); err != nil {
		return nil, err
	}
	return encodeObject(keyOrder(r.order, fields, keyName), fields)
}

// PreFabGraph is a pre-built graph payload forwarded verbatim from the backend.
// Its shape is owned by the backend and never interpreted here.
type PreFabGraph json.RawMessage

// MarshalJSON writes the payload as-is.
func (g PreFabGraph) MarshalJSON() ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	return json.RawMessage(g).MarshalJSON()
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// object is a decoded JSON object that remembers the order its keys arrived in.
type object struct {
	keys   []string
	fields map[string]json.RawMessage
}

// decodeObject splits a JSON object into raw fields. A null body is an empty object.
func decodeObject(data []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return object{}, err
	}
	if tok == nil {
		return object{}, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return object{}, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	obj := object{fields: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return object{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return object{}, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return object{}, fmt.Errorf("%s: %w", key, err)
		}
		if _, dup := obj.fields[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.fields[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return object{}, err
	}
	return obj, nil
}

// keyOrder lists the keys of fields: first in the order they were decoded,
// then any missing primary keys, then the rest sorted.
func keyOrder(seen []string, fields map[string]json.RawMessage, primary ...string) []string {
	keys := make([]string, 0, len(fields))
	used := make(map[string]bool, len(fields))
	add := func(key string) {
		if _, ok := fields[key]; ok && !used[key] {
			used[key] = true
			keys = append(keys, key)
		}
	}
	for _, key := range seen {
		add(key)
	}
	for _, key := range primary {
		add(key)
	}

	rest := make([]string, 0, len(fields)-len(keys))
	for key := range fields {
		if !used[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func encodeObject(keys []string, fields map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if value := fields[key]; len(value) > 0 {
			buf.Write(value)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func copyFields(extra map[string]json.RawMessage, reserve int) map[string]json.RawMessage {
	fields := make(map[string]json.RawMessage, len(extra)+reserve)
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func putList(fields map[string]json.RawMessage, key string, items []json.RawMessage) error {
	if items == nil {
		items = []json.RawMessage{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	fields[key] = raw
	return nil
}
