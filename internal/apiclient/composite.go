package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
)

// SubResource is one keyed part of a composite payload.
// Present is false when the API omitted the key entirely.
type SubResource struct {
	Present bool
	Raw     json.RawMessage
}

// NotPresent is the marker for an omitted sub-resource
var NotPresent = SubResource{}

// DecomposedPayload is a composite response split by top-level key
type DecomposedPayload struct {
	Resource string
	ID       string
	parts    map[string]SubResource
	keys     []string
}

// Get returns the sub-resource for key, or NotPresent
func (p *DecomposedPayload) Get(key string) SubResource {
	if part, ok := p.parts[key]; ok {
		return part
	}
	return NotPresent
}

// Present returns true if the API included key
func (p *DecomposedPayload) Present(key string) bool {
	return p.Get(key).Present
}

// Decode unmarshals the sub-resource into v. It returns ErrNotPresent
// when the key was omitted, so callers can tell that apart from an empty value.
func (p *DecomposedPayload) Decode(key string, v any) error {
	part := p.Get(key)
	if !part.Present {
		return fmt.Errorf("%s/%s %q: %w", p.Resource, p.ID, key, ErrNotPresent)
	}
	if err := json.Unmarshal(part.Raw, v); err != nil {
		return fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return nil
}

// Keys returns the decomposed keys in request order
func (p *DecomposedPayload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// CompositeAdapter expresses a multi-resource fetch as one physical request
type CompositeAdapter struct {
	client *Client
}

// NewCompositeAdapter creates a new CompositeAdapter
func NewCompositeAdapter(client *Client) *CompositeAdapter {
	return &CompositeAdapter{client: client}
}

// FetchComposite requests /api/{resource}/{id}?details=true and decomposes
// the top-level object. With no keys, every key in the payload is kept.
func (a *CompositeAdapter) FetchComposite(ctx context.Context, resource, id string, keys ...string) (*DecomposedPayload, error) {
	endpoint := fmt.Sprintf("/api/%s/%s?details=true", url.PathEscape(resource), url.PathEscape(id))

	resp, err := a.client.Do(ctx, endpoint, RequestOptions{Method: http.MethodGet})
	if err != nil {
		return nil, err
	}

	return Decompose(resource, id, resp.Body, keys...)
}

// Decompose splits a composite JSON object into keyed sub-resources
func Decompose(resource, id string, body []byte, keys ...string) (*DecomposedPayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("composite %s/%s: payload is not a JSON object", resource, id)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("composite %s/%s: %w", resource, id, err)
	}

	if len(keys) == 0 {
		keys = make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	payload := &DecomposedPayload{
		Resource: resource,
		ID:       id,
		parts:    make(map[string]SubResource, len(keys)),
		keys:     keys,
	}
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			payload.parts[k] = SubResource{Present: true, Raw: v}
		}
	}
	return payload, nil
}
