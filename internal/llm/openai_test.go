package llm

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_MapsToolsAndJSON(t *testing.T) {
	c := NewOpenAIClient("sk-test", "")
	req := c.request(Request{
		Model:       "gpt-4o-mini",
		Temperature: 0,
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: "doctor", Content: "coerced"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "emergency_triage", Arguments: `{"symptoms":"x"}`}}},
			{Role: RoleTool, ToolCallID: "call_1", Content: "result"},
		},
		Tools: []Tool{{Name: "emergency_triage", Description: "triage"}},
		JSON:  true,
	})

	assert.Equal(t, float32(math.SmallestNonzeroFloat32), req.Temperature)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	require.Len(t, req.Messages[2].ToolCalls, 1)
	assert.Equal(t, "emergency_triage", req.Messages[2].ToolCalls[0].Function.Name)
	assert.Equal(t, "call_1", req.Messages[3].ToolCallID)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, openai.ToolTypeFunction, req.Tools[0].Type)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
}

func TestRequest_PlainHasNoFormat(t *testing.T) {
	req := NewOpenAIClient("sk-test", "http://localhost:1/v1").request(Request{Temperature: 0.4})
	assert.Nil(t, req.ResponseFormat)
	assert.Empty(t, req.Tools)
	assert.InDelta(t, 0.4, req.Temperature, 1e-6)
}

func TestComplete_AgainstFakeServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"diabetes_advisor","arguments":"{\"question\":\"a1c\"}"}}]}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/v1")
	resp, err := c.Complete(context.Background(), Request{Model: "gpt-4o-mini", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "diabetes_advisor", Arguments: `{"question":"a1c"}`}, resp.ToolCalls[0])
}

func TestStream_AccumulatesDeltas(t *testing.T) {
	chunks := []string{
		`{"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_9","type":"function","function":{"name":"emergency_triage","arguments":"{\"symp"}}]}}]}`,
		`{"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"toms\":\"pain\"}"}}]}}]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			_, _ = io.WriteString(w, "data: "+c+"\n\n")
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/v1")
	var tokens []string
	resp, err := c.Stream(context.Background(), Request{Model: "gpt-4o-mini"}, func(s string) { tokens = append(tokens, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, tokens)
	assert.Equal(t, "Hello", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "call_9", Name: "emergency_triage", Arguments: `{"symptoms":"pain"}`}, resp.ToolCalls[0])
}
