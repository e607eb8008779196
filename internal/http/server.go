// Package http exposes the assistant over a JSON API.
package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"healthassist/internal/auth"
	"healthassist/internal/core"
	"healthassist/internal/metrics"
	"healthassist/internal/speech"
	"healthassist/internal/store"
)

// Server bundles together the dependencies required by HTTP handlers.
// Speech may be nil, in which case the speech endpoints answer 503.
type Server struct {
	Chat    *core.ChatService
	Insight *core.Insight
	Auth    *auth.Service
	Speech  *speech.Service
	History core.History

	Facts    *store.FactStore
	Users    *store.UserStore
	Tracking *store.TrackingStore
	Risk     *store.RiskStore
	Alerts   *store.AlertStore
	Threads  *store.ThreadStore

	Model          string
	MaxUploadBytes int64
	CORSOrigins    []string
	Log            zerolog.Logger
}

// Handler builds the router wrapped in recovery, logging, CORS and bearer
// resolution, outermost first.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.Use(instrument)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/chat", s.chat).Methods(http.MethodPost)
	r.HandleFunc("/chat/stream", s.chatStream).Methods(http.MethodPost)
	r.HandleFunc("/chat/history", s.chatHistory).Methods(http.MethodGet)
	r.HandleFunc("/chat/history", s.deleteChatHistory).Methods(http.MethodDelete)
	r.HandleFunc("/threads", s.threads).Methods(http.MethodGet)

	r.HandleFunc("/memory", s.getMemory).Methods(http.MethodGet)
	r.HandleFunc("/memory", s.deleteMemory).Methods(http.MethodDelete)
	r.HandleFunc("/memory/users", s.memoryUsers).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.upload).Methods(http.MethodPost)

	r.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify", s.verify).Methods(http.MethodGet)
	r.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)

	r.HandleFunc("/onboarding/profile", s.updateProfile).Methods(http.MethodPost)
	r.HandleFunc("/onboarding/profile", s.getProfile).Methods(http.MethodGet)

	r.HandleFunc("/tracking/daily", s.trackDaily).Methods(http.MethodPost)
	r.HandleFunc("/tracking/history", s.trackingHistory).Methods(http.MethodGet)
	r.HandleFunc("/tracking/summary", s.trackingSummary).Methods(http.MethodGet)

	r.HandleFunc("/risk/history", s.riskHistory).Methods(http.MethodGet)
	r.HandleFunc("/risk/summary", s.riskSummary).Methods(http.MethodGet)
	r.HandleFunc("/alerts/history", s.alertHistory).Methods(http.MethodGet)
	r.HandleFunc("/alerts/summary", s.alertSummary).Methods(http.MethodGet)

	r.HandleFunc("/speech/transcribe", s.transcribe).Methods(http.MethodPost)
	r.HandleFunc("/speech/generate", s.generateSpeech).Methods(http.MethodPost)
	r.HandleFunc("/speech/languages", s.languages).Methods(http.MethodGet)

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	var h http.Handler = r
	h = s.bearer(h)
	h = c.Handler(h)
	h = s.logging(h)
	return s.recovery(h)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": s.Model})
}
