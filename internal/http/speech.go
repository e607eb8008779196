package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"healthassist/internal/speech"
)

func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	if s.Speech == nil {
		writeError(w, http.StatusServiceUnavailable, "speech is not configured")
		return
	}
	if s.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form with audio is required")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio is required")
		return
	}
	defer file.Close()

	out, err := s.Speech.Transcribe(context.WithoutCancel(r.Context()), header.Filename, file, r.FormValue("language"))
	if errors.Is(err, speech.ErrUnsupportedLanguage) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *Server) generateSpeech(w http.ResponseWriter, r *http.Request) {
	if s.Speech == nil {
		writeError(w, http.StatusServiceUnavailable, "speech is not configured")
		return
	}
	var req speakRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	audio, err := s.Speech.Generate(context.WithoutCancel(r.Context()), req.Text, req.Voice)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `inline; filename="speech.mp3"`)
	if _, err := io.Copy(w, audio); err != nil {
		s.Log.Warn().Err(err).Msg("streaming speech audio failed")
	}
}

func (s *Server) languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"languages": speech.Languages()})
}
