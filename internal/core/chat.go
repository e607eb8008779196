package core

import (
	"context"

	"github.com/rs/zerolog"

	"healthassist/internal/alert"
	"healthassist/internal/store"
	"healthassist/pkg"
)

// History is the per-thread conversation log.
type History interface {
	Append(ctx context.Context, threadID string, msgs ...pkg.Message) error
	Messages(ctx context.Context, threadID string, limit int) ([]pkg.Message, error)
	Delete(ctx context.Context, threadID string) error
}

// Alerter notifies emergency contacts.
type Alerter interface {
	Dispatch(ctx context.Context, userID string, data pkg.AlertData) alert.Outcome
}

// Turn is one user message addressed to a thread.
type Turn struct {
	UserID   string
	ThreadID string
	Message  string
	Location string
}

// Reply is the outcome of a turn after the stores have been updated.
type Reply struct {
	pkg.ChatResult
	EmergencyAlertSent bool
}

// ChatService runs the full pipeline for a chat turn: assemble context,
// call the orchestrator, then write facts, risk, alerts, history and thread
// metadata back.
type ChatService struct {
	Orchestrator *Orchestrator
	Assembler    *Assembler
	History      History
	Facts        *store.FactStore
	Risk         *store.RiskStore
	Threads      *store.ThreadStore
	// Alerts may be nil to disable emergency notification.
	Alerts       Alerter
	HistoryLimit int
	Log          zerolog.Logger
}

func (s *ChatService) prompt(ctx context.Context, t Turn) Prompt {
	history, err := s.History.Messages(ctx, t.ThreadID, s.HistoryLimit)
	if err != nil {
		s.Log.Warn().Err(err).Str("thread_id", t.ThreadID).Msg("loading thread history failed")
		history = nil
	}
	return Prompt{
		Context: s.Assembler.Build(t.UserID),
		History: history,
		Message: t.Message,
	}
}

// Chat answers the turn. Only the model call can fail the request; store
// failures afterwards are logged.
func (s *ChatService) Chat(ctx context.Context, t Turn) (*Reply, error) {
	result, err := s.Orchestrator.Run(ctx, s.prompt(ctx, t))
	if err != nil {
		return nil, err
	}
	reply := &Reply{ChatResult: result}
	log := s.Log.With().Str("user_id", t.UserID).Str("thread_id", t.ThreadID).Logger()

	s.remember(ctx, t, result.Response)

	if result.Fact != "" {
		if err := s.Facts.Append(t.UserID, result.Fact); err != nil {
			log.Error().Err(err).Msg("saving fact failed")
		}
	}

	if s.Alerts != nil && alert.ShouldTrigger(result.RiskLevel, result.Urgency) {
		out := s.Alerts.Dispatch(ctx, t.UserID, pkg.AlertData{
			Severity:     result.RiskLevel,
			Symptoms:     t.Message,
			AIAssessment: result.Response,
			UserLocation: t.Location,
		})
		reply.EmergencyAlertSent = out.Sent
		log.Info().Bool("sent", out.Sent).Str("outcome", out.Message).Msg("emergency alert dispatched")
	}

	if result.RiskLevel != "" || result.Urgency != "" {
		_, err := s.Risk.Save(t.UserID, pkg.RiskInput{
			RiskLevel:          result.RiskLevel,
			Urgency:            result.Urgency,
			UserMessage:        t.Message,
			AIResponse:         result.Response,
			EmergencyAlertSent: reply.EmergencyAlertSent,
		})
		if err != nil {
			log.Error().Err(err).Msg("saving risk assessment failed")
		}
	}
	return reply, nil
}

// Stream answers the turn token by token. Streamed answers carry no
// structured fields, so only history and thread metadata are updated.
func (s *ChatService) Stream(ctx context.Context, t Turn, onToken func(string)) (string, error) {
	text, err := s.Orchestrator.Stream(ctx, s.prompt(ctx, t), onToken)
	if err != nil {
		return "", err
	}
	s.remember(ctx, t, text)
	return text, nil
}

// remember appends the exchange to the thread and refreshes its metadata.
func (s *ChatService) remember(ctx context.Context, t Turn, response string) {
	log := s.Log.With().Str("user_id", t.UserID).Str("thread_id", t.ThreadID).Logger()

	err := s.History.Append(ctx, t.ThreadID,
		pkg.Message{Role: pkg.RoleUser, Content: t.Message},
		pkg.Message{Role: pkg.RoleAssistant, Content: response},
	)
	if err != nil {
		log.Error().Err(err).Msg("saving thread history failed")
	}

	if s.Threads.Get(t.UserID, t.ThreadID) != nil {
		if err := s.Threads.Increment(t.UserID, t.ThreadID); err != nil {
			log.Error().Err(err).Msg("updating thread failed")
		}
	}
	if err := s.Threads.Save(t.UserID, t.ThreadID, t.Message, response); err != nil {
		log.Error().Err(err).Msg("saving thread metadata failed")
	}
}
