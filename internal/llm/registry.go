package llm

import (
	"context"
	"sync"
)

// Model is a client bound to a model id and temperature under a logical
// name such as "orchestrator" or "diabetes_advisor".
type Model struct {
	Name        string
	ID          string
	Temperature float32

	client Client
}

// Chat runs a plain completion and returns the reply text.
func (m *Model) Chat(ctx context.Context, messages []Message) (string, error) {
	resp, err := m.Complete(ctx, Request{Messages: messages})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Complete fills in the bound model and temperature and forwards req.
func (m *Model) Complete(ctx context.Context, req Request) (*Response, error) {
	req.Model = m.ID
	req.Temperature = m.Temperature
	return m.client.Complete(ctx, req)
}

// Stream is Complete with incremental text delivered to onDelta.
func (m *Model) Stream(ctx context.Context, req Request, onDelta func(string)) (*Response, error) {
	req.Model = m.ID
	req.Temperature = m.Temperature
	return m.client.Stream(ctx, req, onDelta)
}

type modelKey struct {
	name        string
	model       string
	temperature float32
}

// Registry hands out Model handles, one per (name, model, temperature).
// Each server builds its own; there is no process-wide instance.
type Registry struct {
	client Client

	mu     sync.Mutex
	models map[modelKey]*Model
}

// NewRegistry returns an empty registry over client.
func NewRegistry(client Client) *Registry {
	return &Registry{client: client, models: map[modelKey]*Model{}}
}

// Get returns the cached handle for the key, creating it on first use.
func (r *Registry) Get(name, model string, temperature float32) *Model {
	key := modelKey{name: name, model: model, temperature: temperature}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.models[key]; ok {
		return m
	}
	m := &Model{Name: name, ID: model, Temperature: temperature, client: r.client}
	r.models[key] = m
	return m
}

// Len reports how many distinct handles have been created.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models)
}
