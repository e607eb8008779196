package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"healthassist/internal/extract"
	"healthassist/pkg"
)

const multipartMemory = 32 << 20

func (s *Server) getMemory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": user, "facts": s.Facts.Text(user)})
}

func (s *Server) deleteMemory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.Facts.Delete(user); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) memoryUsers(w http.ResponseWriter, _ *http.Request) {
	users := s.Facts.Users()
	if users == nil {
		users = []pkg.UserMemory{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

type uploadResponse struct {
	OK         bool   `json:"ok"`
	Filename   string `json:"filename"`
	Characters int    `json:"characters"`
	FactsAdded bool   `json:"facts_added"`
}

// upload extracts a document's text and remembers it for the user. The
// extension is checked before the body is read any further.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if s.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart form with a file is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if err := extract.Check(header.Filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user := userID(r, r.FormValue("user_id"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	extractFacts := true
	if v := strings.TrimSpace(r.FormValue("extract_facts")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			extractFacts = b
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}
	text, err := extract.Text(header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.Insight.Remember(context.WithoutCancel(r.Context()), s.Facts, user, header.Filename, text, extractFacts)
	if err != nil {
		s.Log.Error().Err(err).Str("user_id", user).Str("file", header.Filename).Msg("saving document memory failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		OK:         true,
		Filename:   header.Filename,
		Characters: utf8.RuneCountInString(text),
		FactsAdded: added,
	})
}
