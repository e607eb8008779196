package core

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"healthassist/internal/llm"
	"healthassist/internal/metrics"
	"healthassist/pkg"
)

// Tools is the capability set offered to the orchestrator model.
type Tools interface {
	Tools() []llm.Tool
	Dispatch(ctx context.Context, name, arguments string) (string, error)
}

// ChatModel is the bound model the orchestrator talks to.
type ChatModel interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
	Stream(ctx context.Context, req llm.Request, onDelta func(string)) (*llm.Response, error)
}

// Prompt is everything the orchestrator sees for one turn.
type Prompt struct {
	// Context is the assembled user block; empty adds no system message.
	Context string
	History []pkg.Message
	Message string
}

// Orchestrator runs one turn of the tool-calling loop. It keeps no state
// between turns.
type Orchestrator struct {
	model     ChatModel
	tools     Tools
	maxRounds int
	log       zerolog.Logger
}

// NewOrchestrator returns an Orchestrator that allows at most maxRounds tool rounds.
func NewOrchestrator(model ChatModel, tools Tools, maxRounds int, log zerolog.Logger) *Orchestrator {
	if maxRounds < 1 {
		maxRounds = 1
	}
	return &Orchestrator{model: model, tools: tools, maxRounds: maxRounds, log: log}
}

func (o *Orchestrator) messages(p Prompt, system string) []llm.Message {
	msgs := make([]llm.Message, 0, len(p.History)+3)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	if p.Context != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: p.Context})
	}
	for _, m := range p.History {
		msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: p.Message})
}

// Run answers the prompt and parses the structured result.
func (o *Orchestrator) Run(ctx context.Context, p Prompt) (pkg.ChatResult, error) {
	msgs := o.messages(p, OrchestratorPrompt+OutputInstructions)
	tools := o.tools.Tools()

	for round := 0; round < o.maxRounds; round++ {
		resp, err := o.model.Complete(ctx, llm.Request{Messages: msgs, Tools: tools, JSON: true})
		if err != nil {
			return pkg.ChatResult{}, err
		}
		if len(resp.ToolCalls) == 0 {
			return ParseResult(resp.Content), nil
		}
		msgs = o.runTools(ctx, msgs, resp)
	}

	// Out of rounds: force an answer from what the tools produced.
	resp, err := o.model.Complete(ctx, llm.Request{Messages: msgs, JSON: true})
	if err != nil {
		return pkg.ChatResult{}, err
	}
	return ParseResult(resp.Content), nil
}

// Stream runs the same loop with streamed rounds. Content tokens reach
// onToken as they arrive; the returned text is the plain final answer.
func (o *Orchestrator) Stream(ctx context.Context, p Prompt, onToken func(string)) (string, error) {
	msgs := o.messages(p, OrchestratorPrompt)
	tools := o.tools.Tools()

	for round := 0; round < o.maxRounds; round++ {
		resp, err := o.model.Stream(ctx, llm.Request{Messages: msgs, Tools: tools}, onToken)
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}
		msgs = o.runTools(ctx, msgs, resp)
	}

	resp, err := o.model.Stream(ctx, llm.Request{Messages: msgs}, onToken)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// runTools appends the assistant's tool calls and one tool message per
// result. A failing specialist becomes an error result so the model can
// still answer.
func (o *Orchestrator) runTools(ctx context.Context, msgs []llm.Message, resp *llm.Response) []llm.Message {
	msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
	for _, call := range resp.ToolCalls {
		out, err := o.tools.Dispatch(ctx, call.Name, call.Arguments)
		if err != nil {
			o.log.Warn().Err(err).Str("tool", call.Name).Msg("specialist call failed")
			metrics.SpecialistCalls.WithLabelValues(call.Name, metrics.OutcomeError).Inc()
			out = "error: " + err.Error()
		} else {
			o.log.Debug().Str("tool", call.Name).Int("chars", len(out)).Msg("specialist answered")
			metrics.SpecialistCalls.WithLabelValues(call.Name, metrics.OutcomeOK).Inc()
		}
		msgs = append(msgs, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Name: call.Name, Content: out})
	}
	return msgs
}

var (
	riskLevels = map[string]bool{pkg.RiskLow: true, pkg.RiskMedium: true, pkg.RiskHigh: true, pkg.RiskCritical: true}
	urgencies  = map[string]bool{
		pkg.UrgencyMonitor:        true,
		pkg.UrgencyScheduleVisit:  true,
		pkg.UrgencySeekUrgentCare: true,
		pkg.UrgencyCallEmergency:  true,
	}
)

type rawResult struct {
	Response       string  `json:"response"`
	NormalResponse string  `json:"normal_response"`
	Fact           *string `json:"fact"`
	RiskLevel      *string `json:"risk_level"`
	Urgency        *string `json:"urgency"`
}

// ParseResult decodes the model's JSON answer. Content that is not a JSON
// object with a response becomes the response verbatim. Unknown risk levels
// and urgencies are dropped, as are placeholder facts.
func ParseResult(content string) pkg.ChatResult {
	body := strings.TrimSpace(content)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	var raw rawResult
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return pkg.ChatResult{Response: content}
	}
	res := pkg.ChatResult{Response: raw.Response}
	if res.Response == "" {
		res.Response = raw.NormalResponse
	}
	if res.Response == "" {
		return pkg.ChatResult{Response: content}
	}
	if raw.Fact != nil {
		fact := strings.TrimSpace(*raw.Fact)
		switch strings.ToLower(fact) {
		case "", "none", "null":
		default:
			res.Fact = fact
		}
	}
	if v := normalize(raw.RiskLevel); riskLevels[v] {
		res.RiskLevel = v
	}
	if v := normalize(raw.Urgency); urgencies[v] {
		res.Urgency = v
	}
	return res
}

func normalize(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}
