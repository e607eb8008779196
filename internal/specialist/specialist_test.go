package specialist

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthassist/internal/llm"
)

type fakeClient struct {
	reqs []llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.reqs = append(f.reqs, req)
	return &llm.Response{Content: "advice"}, nil
}

func (f *fakeClient) Stream(ctx context.Context, req llm.Request, _ func(string)) (*llm.Response, error) {
	return f.Complete(ctx, req)
}

func newSet(t *testing.T) (*Set, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	s, err := NewSet(llm.NewRegistry(client), "gpt-4o-mini", 0.5)
	require.NoError(t, err)
	return s, client
}

func TestCatalog(t *testing.T) {
	specs, err := Catalog()
	require.NoError(t, err)

	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"pregnancy_advisor",
		"diabetes_advisor",
		"pediatrics_advisor",
		"mental_health_advisor",
		"emergency_triage",
		"preventive_health_analyzer",
	}, names)
}

func TestNewSet_Temperatures(t *testing.T) {
	s, _ := newSet(t)

	cases := map[string]float32{
		"pregnancy_advisor":          0.1,
		"diabetes_advisor":           0.5,
		"pediatrics_advisor":         0.5,
		"mental_health_advisor":      0.5,
		"emergency_triage":           0.0,
		"preventive_health_analyzer": 0.2,
	}
	for name, want := range cases {
		a, ok := s.Advisor(name)
		require.True(t, ok, name)
		assert.InDelta(t, want, a.model.Temperature, 1e-6, name)
	}
}

func TestTools_Schema(t *testing.T) {
	s, _ := newSet(t)
	tools := s.Tools()
	require.Len(t, tools, 6)

	byName := map[string]llm.Tool{}
	for _, tool := range tools {
		byName[tool.Name] = tool
		assert.NotEmpty(t, tool.Description)
	}

	def := byName["emergency_triage"].Parameters.(jsonschema.Definition)
	assert.Equal(t, []string{"symptoms"}, def.Required)
	assert.Contains(t, def.Properties, "user_context")

	def = byName["preventive_health_analyzer"].Parameters.(jsonschema.Definition)
	assert.Equal(t, []string{"health_history"}, def.Required)
}

func TestDispatch_BuildsMessages(t *testing.T) {
	s, client := newSet(t)

	out, err := s.Dispatch(context.Background(), "diabetes_advisor", `{"question":"Is 240 mg/dL high?","user_context":"Type 2, on metformin"}`)
	require.NoError(t, err)
	assert.Equal(t, "advice", out)

	require.Len(t, client.reqs, 1)
	req := client.reqs[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "endocrinology")
	assert.Contains(t, req.Messages[0].Content, "\n\nUser Context:\nType 2, on metformin")
	assert.Equal(t, "Is 240 mg/dL high?", req.Messages[1].Content)
}

func TestAdvise_BlankContextLeavesPromptAlone(t *testing.T) {
	s, client := newSet(t)
	a, ok := s.Advisor("pediatrics_advisor")
	require.True(t, ok)

	_, err := a.Advise(context.Background(), "My 2-year-old has a fever", "   ")
	require.NoError(t, err)
	assert.Equal(t, a.Prompt, client.reqs[0].Messages[0].Content)
}

func TestDispatch_Errors(t *testing.T) {
	s, client := newSet(t)

	_, err := s.Dispatch(context.Background(), "cardiology_advisor", `{"question":"x"}`)
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, err = s.Dispatch(context.Background(), "emergency_triage", `{"question":"wrong argument name"}`)
	assert.Error(t, err)

	_, err = s.Dispatch(context.Background(), "emergency_triage", `not json`)
	assert.Error(t, err)

	assert.Empty(t, client.reqs)
}
