// Package specialist exposes the domain advisors (pregnancy, diabetes,
// pediatrics, mental health, emergency triage, preventive analysis) as
// function tools. Each advisor is a system prompt bound to its own model
// handle. Which advisor runs is left entirely to the orchestrator model.
package specialist

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"gopkg.in/yaml.v3"

	"healthassist/internal/llm"
)

//go:embed catalog.yaml
var catalogYAML []byte

// ErrUnknownTool is returned by Dispatch for names outside the catalog.
var ErrUnknownTool = errors.New("unknown specialist tool")

// contextArgument is the optional tool argument carrying the user's profile.
const contextArgument = "user_context"

// Specialist is one catalog entry.
type Specialist struct {
	Name                string   `yaml:"name"`
	Argument            string   `yaml:"argument"`
	ArgumentDescription string   `yaml:"argument_description"`
	Description         string   `yaml:"description"`
	Prompt              string   `yaml:"prompt"`
	Temperature         *float32 `yaml:"temperature"`
}

type catalog struct {
	Specialists []Specialist `yaml:"specialists"`
}

// Catalog parses the embedded specialist definitions.
func Catalog() ([]Specialist, error) {
	var c catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("parse specialist catalog: %w", err)
	}
	for _, s := range c.Specialists {
		if s.Name == "" || s.Argument == "" || strings.TrimSpace(s.Prompt) == "" {
			return nil, fmt.Errorf("specialist catalog: incomplete entry %q", s.Name)
		}
	}
	return c.Specialists, nil
}

// Advisor is a specialist bound to a model.
type Advisor struct {
	Specialist
	model *llm.Model
}

// Advise asks the specialist one question. A non-blank userContext is
// appended to the system prompt.
func (a *Advisor) Advise(ctx context.Context, question, userContext string) (string, error) {
	system := a.Prompt
	if strings.TrimSpace(userContext) != "" {
		system += "\n\nUser Context:\n" + userContext
	}
	return a.model.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: question},
	})
}

// Set is the fixed collection of advisors offered to the orchestrator.
type Set struct {
	advisors []*Advisor
	byName   map[string]*Advisor
}

// NewSet binds every catalog entry to a registry model. Entries without a
// temperature use defaultTemp.
func NewSet(reg *llm.Registry, model string, defaultTemp float32) (*Set, error) {
	specs, err := Catalog()
	if err != nil {
		return nil, err
	}
	s := &Set{byName: make(map[string]*Advisor, len(specs))}
	for _, spec := range specs {
		temp := defaultTemp
		if spec.Temperature != nil {
			temp = *spec.Temperature
		}
		a := &Advisor{Specialist: spec, model: reg.Get(spec.Name, model, temp)}
		s.advisors = append(s.advisors, a)
		s.byName[spec.Name] = a
	}
	return s, nil
}

// Names lists the specialist names in catalog order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.advisors))
	for _, a := range s.advisors {
		names = append(names, a.Name)
	}
	return names
}

// Advisor looks up a specialist by tool name.
func (s *Set) Advisor(name string) (*Advisor, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Tools returns the function definitions in catalog order.
func (s *Set) Tools() []llm.Tool {
	tools := make([]llm.Tool, 0, len(s.advisors))
	for _, a := range s.advisors {
		tools = append(tools, llm.Tool{
			Name:        a.Name,
			Description: a.Description,
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					a.Argument: {
						Type:        jsonschema.String,
						Description: a.ArgumentDescription,
					},
					contextArgument: {
						Type:        jsonschema.String,
						Description: "Summary of relevant user info (conditions, medications, allergies, age) from memory.",
					},
				},
				Required: []string{a.Argument},
			},
		})
	}
	return tools
}

// Dispatch runs the named specialist with the JSON arguments produced by the
// model.
func (s *Set) Dispatch(ctx context.Context, name, arguments string) (string, error) {
	a, ok := s.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	args := map[string]any{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("decode %s arguments: %w", name, err)
		}
	}
	question := stringArg(args, a.Argument)
	if question == "" {
		return "", fmt.Errorf("%s: missing %q argument", name, a.Argument)
	}
	return a.Advise(ctx, question, stringArg(args, contextArgument))
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
