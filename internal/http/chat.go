package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"healthassist/internal/core"
	"healthassist/pkg"
)

const defaultThreadLimit = 20

// turnFrom validates a chat request and fills in the thread and user ids.
func turnFrom(r *http.Request, req pkg.ChatRequest) (core.Turn, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return core.Turn{}, fmt.Errorf("message is required")
	}
	thread := strings.TrimSpace(req.ThreadID)
	if thread == "" {
		thread = uuid.NewString()
	}
	user := userID(r, req.UserID)
	if user == "" {
		user = thread
	}
	return core.Turn{UserID: user, ThreadID: thread, Message: msg, Location: strings.TrimSpace(req.Location)}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req pkg.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t, err := turnFrom(r, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := s.Chat.Chat(context.WithoutCancel(r.Context()), t)
	if err != nil {
		s.Log.Error().Err(err).Str("thread_id", t.ThreadID).Msg("chat turn failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pkg.ChatResponse{
		Response:           reply.Response,
		RiskLevel:          optional(reply.RiskLevel),
		Urgency:            optional(reply.Urgency),
		EmergencyAlertSent: reply.EmergencyAlertSent,
		ThreadID:           t.ThreadID,
	})
}

type streamEvent struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// chatStream answers over server-sent events: one token event per chunk,
// then a done event, or an error event if the model call fails midway.
func (s *Server) chatStream(w http.ResponseWriter, r *http.Request) {
	var req pkg.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t, err := turnFrom(r, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(ev streamEvent) {
		data, _ := json.Marshal(ev)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	_, err = s.Chat.Stream(context.WithoutCancel(r.Context()), t, func(tok string) {
		send(streamEvent{Type: "token", Content: tok})
	})
	if err != nil {
		s.Log.Error().Err(err).Str("thread_id", t.ThreadID).Msg("chat stream failed")
		send(streamEvent{Type: "error", Error: err.Error()})
		return
	}
	send(streamEvent{Type: "done", ThreadID: t.ThreadID})
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	thread := strings.TrimSpace(r.URL.Query().Get("thread_id"))
	if thread == "" {
		writeError(w, http.StatusBadRequest, "thread_id is required")
		return
	}
	msgs, err := s.History.Messages(r.Context(), thread, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]historyMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, historyMessage{Role: string(m.Role), Content: m.Content})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"thread_id": thread, "messages": out})
}

// deleteChatHistory forgets a thread. Without a user the thread id doubles as
// the owner, as it does for anonymous chats.
func (s *Server) deleteChatHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	thread := strings.TrimSpace(q.Get("thread_id"))
	if thread == "" {
		writeError(w, http.StatusBadRequest, "thread_id is required")
		return
	}
	if err := s.History.Delete(r.Context(), thread); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	user := userID(r, q.Get("user_id"))
	if user == "" {
		user = thread
	}
	existed, err := s.Threads.Delete(user, thread)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "thread_id": thread, "existed": existed})
}

func (s *Server) threads(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit := intParam(r, "limit", defaultThreadLimit)
	threads := s.Threads.Recent(user, limit)
	if threads == nil {
		threads = []pkg.ThreadMeta{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"threads": threads})
}

// requireUser resolves the user id from the query or session and writes a
// 400 when neither is present.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := userID(r, r.URL.Query().Get("user_id"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return "", false
	}
	return user, true
}

// intParam parses a positive integer query parameter, falling back to def.
func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
