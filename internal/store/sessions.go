package store

import (
	"path/filepath"

	"healthassist/pkg"
)

// SessionStore is the sessions.json file mapping bearer tokens to sessions.
type SessionStore struct {
	path string
}

// NewSessionStore returns the store backed by root/sessions.json.
func NewSessionStore(root string) *SessionStore {
	return &SessionStore{path: filepath.Join(root, SessionsFile)}
}

func (s *SessionStore) load() map[string]pkg.Session {
	sessions := map[string]pkg.Session{}
	for token, sess := range readMap[pkg.Session](s.path) {
		sessions[token] = *sess
	}
	return sessions
}

// Put stores sess under token, replacing any previous session.
func (s *SessionStore) Put(token string, sess pkg.Session) error {
	sessions := s.load()
	sessions[token] = sess
	return writeJSON(s.path, sessions)
}

// Get returns the session for token.
func (s *SessionStore) Get(token string) (pkg.Session, bool) {
	sess, ok := s.load()[token]
	return sess, ok
}

// Delete removes the session and reports whether it existed.
func (s *SessionStore) Delete(token string) (bool, error) {
	sessions := s.load()
	if _, ok := sessions[token]; !ok {
		return false, nil
	}
	delete(sessions, token)
	return true, writeJSON(s.path, sessions)
}
