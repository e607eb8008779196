package llm

import (
	"context"
	"errors"
	"io"
	"math"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a provider-neutral chat message.
// Role is one of "system", "user", "assistant" or "tool".
type Message struct {
	Role       string
	Content    string
	Name       string
	ToolCallID string
	ToolCalls  []ToolCall
}

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
	RoleTool      = openai.ChatMessageRoleTool
)

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Tool describes a function the model may call. Parameters is a JSON schema
// value, usually a jsonschema.Definition.
type Tool struct {
	Name        string
	Description string
	Parameters  any
}

type Request struct {
	Model       string
	Temperature float32
	Messages    []Message
	Tools       []Tool
	// JSON asks the model for a single JSON object.
	JSON bool
}

type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Client is the chat completion surface used by the orchestrator and the
// specialists. onDelta receives content tokens as they stream in.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, onDelta func(string)) (*Response, error)
}

// OpenAIClient calls the OpenAI API for chat, transcription and speech.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient constructs an OpenAI-backed client. baseURL may be empty to
// use the public endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) request(req Request) openai.ChatCompletionRequest {
	oaReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: temperature(req.Temperature),
	}
	for _, t := range req.Tools {
		oaReq.Tools = append(oaReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if req.JSON {
		oaReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return oaReq
}

// Complete sends the message history to the chat completion API and returns
// the assistant's reply.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.client == nil {
		return nil, errors.New("openai client not initialized")
	}
	resp, err := c.client.CreateChatCompletion(ctx, c.request(req))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return &Response{}, nil
	}
	msg := resp.Choices[0].Message
	out := &Response{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, nil
}

// Stream is Complete with incremental delivery. Tool call fragments are
// accumulated by index and returned once the stream ends.
func (c *OpenAIClient) Stream(ctx context.Context, req Request, onDelta func(string)) (*Response, error) {
	if c.client == nil {
		return nil, errors.New("openai client not initialized")
	}
	oaReq := c.request(req)
	oaReq.Stream = true
	stream, err := c.client.CreateChatCompletionStream(ctx, oaReq)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var content []byte
	calls := map[int]*ToolCall{}
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			content = append(content, delta.Content...)
			if onDelta != nil {
				onDelta(delta.Content)
			}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := calls[idx]
			if !ok {
				acc = &ToolCall{}
				calls[idx] = acc
			}
			if tc.ID != "" {
				acc.ID = tc.ID
			}
			if tc.Function.Name != "" {
				acc.Name = tc.Function.Name
			}
			acc.Arguments += tc.Function.Arguments
		}
	}

	out := &Response{Content: string(content)}
	idxs := make([]int, 0, len(calls))
	for i := range calls {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	for _, i := range idxs {
		out.ToolCalls = append(out.ToolCalls, *calls[i])
	}
	return out, nil
}

// Transcribe converts speech audio to text with Whisper. filename carries
// the audio format to the API.
func (c *OpenAIClient) Transcribe(ctx context.Context, model, filename string, audio io.Reader, language string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: filename,
		Reader:   audio,
		Language: language,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Speak renders text as mp3 audio. The caller closes the returned reader.
func (c *OpenAIClient) Speak(ctx context.Context, model, voice, text string) (io.ReadCloser, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// temperature maps 0 to the smallest positive value because the client drops
// a zero temperature from the request and the API then applies its default.
func temperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		switch role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		default:
			// coerce anything unknown to user
			role = RoleUser
		}
		msg := openai.ChatCompletionMessage{Role: role, Content: m.Content, Name: m.Name, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:       tc.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, msg)
	}
	return out
}
