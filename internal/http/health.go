package http

import (
	"errors"
	"net/http"

	"healthassist/internal/store"
	"healthassist/pkg"
)

const (
	defaultTrackingDays = 7
	defaultHistoryDays  = 30
)

type profileRequest struct {
	UserID string `json:"user_id"`
	pkg.ProfileUpdate
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user := userID(r, firstNonEmpty(req.UserID, r.URL.Query().Get("user_id")))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	p, err := s.Users.UpdateProfile(user, req.ProfileUpdate)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "profile": p})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": user, "profile": s.Users.Profile(user)})
}

type trackingRequest struct {
	UserID string `json:"user_id"`
	pkg.TrackingInput
}

func (s *Server) trackDaily(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user := userID(r, firstNonEmpty(req.UserID, r.URL.Query().Get("user_id")))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	entry, err := s.Tracking.Save(user, req.TrackingInput)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "entry": entry})
}

func (s *Server) trackingHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	entries := s.Tracking.History(user, intParam(r, "days", defaultTrackingDays))
	if entries == nil {
		entries = []pkg.TrackingEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) trackingSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": s.Tracking.Summary(user, intParam(r, "days", defaultTrackingDays))})
}

func (s *Server) riskHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	items := s.Risk.History(user, intParam(r, "days", defaultHistoryDays))
	if items == nil {
		items = []pkg.RiskAssessment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assessments": items})
}

func (s *Server) riskSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Risk.Summary(user, intParam(r, "days", defaultHistoryDays)))
}

func (s *Server) alertHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	items := s.Alerts.History(user, intParam(r, "days", defaultHistoryDays))
	if items == nil {
		items = []pkg.AlertRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": items})
}

func (s *Server) alertSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Alerts.Summary(user, intParam(r, "days", defaultHistoryDays)))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
