package http

import (
	"errors"
	"net/http"

	"healthassist/internal/auth"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := s.Auth.Register(c.Username, c.Password, c.Email)
	switch {
	case errors.Is(err, auth.ErrValidation), errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "message": "User registered successfully"})
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.Auth.Login(c.Username, c.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	existed, err := s.Auth.Logout(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": existed})
}

// verify re-checks the token rather than trusting the middleware so that an
// invalid token is reported as such.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	id, err := s.Auth.Verify(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "username": id.Username, "user_id": id.UserID})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	u, ok := s.Auth.Me(id.Username)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"username": id.Username, "user": u})
}
