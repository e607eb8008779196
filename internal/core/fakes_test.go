package core

import (
	"context"
	"errors"
	"sync"

	"healthassist/internal/alert"
	"healthassist/internal/llm"
	"healthassist/pkg"
)

// scriptedModel replays responses in order and records every request.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*llm.Response
	err       error
	reqs      []llm.Request
}

func (m *scriptedModel) next(req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("scripted model exhausted")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *scriptedModel) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	return m.next(req)
}

func (m *scriptedModel) Stream(_ context.Context, req llm.Request, onDelta func(string)) (*llm.Response, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}
	if onDelta != nil && resp.Content != "" {
		// deliver in two chunks to exercise forwarding
		half := len(resp.Content) / 2
		onDelta(resp.Content[:half])
		onDelta(resp.Content[half:])
	}
	return resp, nil
}

type fakeTools struct {
	calls []llm.ToolCall
	fail  map[string]error
}

func (f *fakeTools) Tools() []llm.Tool {
	return []llm.Tool{{Name: "emergency_triage"}, {Name: "diabetes_advisor"}}
}

func (f *fakeTools) Dispatch(_ context.Context, name, arguments string) (string, error) {
	f.calls = append(f.calls, llm.ToolCall{Name: name, Arguments: arguments})
	if err := f.fail[name]; err != nil {
		return "", err
	}
	return name + " says rest", nil
}

type memHistory struct {
	threads map[string][]pkg.Message
}

func newMemHistory() *memHistory { return &memHistory{threads: map[string][]pkg.Message{}} }

func (h *memHistory) Append(_ context.Context, threadID string, msgs ...pkg.Message) error {
	h.threads[threadID] = append(h.threads[threadID], msgs...)
	return nil
}

func (h *memHistory) Messages(_ context.Context, threadID string, limit int) ([]pkg.Message, error) {
	msgs := h.threads[threadID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (h *memHistory) Delete(_ context.Context, threadID string) error {
	delete(h.threads, threadID)
	return nil
}

type fakeAlerter struct {
	calls   []pkg.AlertData
	outcome alert.Outcome
}

func (a *fakeAlerter) Dispatch(_ context.Context, _ string, data pkg.AlertData) alert.Outcome {
	a.calls = append(a.calls, data)
	return a.outcome
}

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (c *fakeCompleter) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	c.prompt = msgs[len(msgs)-1].Content
	return c.reply, c.err
}
