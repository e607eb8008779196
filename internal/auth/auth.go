// Package auth registers users, issues bearer tokens and verifies them
// against the session file.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"healthassist/internal/store"
	"healthassist/pkg"
)

const minPasswordLen = 6

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for unknown users and wrong passwords
	// alike.
	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrUserExists         = errors.New("Username already exists")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// Claims is the payload signed into every bearer token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Login is returned to the client after a successful login.
type Login struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
}

// Identity is the caller resolved from a valid token.
type Identity struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

type Service struct {
	users    *store.UserStore
	sessions *store.SessionStore
	secret   []byte
	ttl      time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewService returns a Service whose sessions live for ttl.
func NewService(users *store.UserStore, sessions *store.SessionStore, secret string, ttl time.Duration) *Service {
	return &Service{users: users, sessions: sessions, secret: []byte(secret), ttl: ttl}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validation(msg string) error {
	return &ValidationError{Msg: msg}
}

// Register creates the account. The username doubles as the user id.
func (s *Service) Register(username, password, email string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return validation("Username and password are required")
	}
	if len(password) < minPasswordLen {
		return validation("Password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.users.Create(username, string(hash), email); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// Login checks the password and opens a new session.
func (s *Service) Login(username, password string) (*Login, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, validation("Username and password are required")
	}
	u, ok := s.users.Get(username)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		UserID:   u.UserID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	sess := pkg.Session{Username: username, UserID: u.UserID, CreatedAt: now, ExpiresAt: expires}
	if err := s.sessions.Put(token, sess); err != nil {
		return nil, err
	}
	return &Login{Token: token, Username: username, UserID: u.UserID, Email: u.Email}, nil
}

// Verify resolves a token to its identity. The session file is
// authoritative: a token that was logged out is rejected even while its
// signature is still valid, and an expired entry is removed.
func (s *Service) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	sess, ok := s.sessions.Get(token)
	if !ok {
		return nil, ErrInvalidToken
	}
	if s.now().After(sess.ExpiresAt) {
		if _, err := s.sessions.Delete(token); err != nil {
			return nil, err
		}
		return nil, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{Username: sess.Username, UserID: sess.UserID}, nil
}

// Logout drops the session and reports whether it existed.
func (s *Service) Logout(token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.sessions.Delete(token)
}

// Me returns the account record without its password hash.
func (s *Service) Me(username string) (*pkg.User, bool) {
	u, ok := s.users.Get(username)
	if !ok {
		return nil, false
	}
	u.PasswordHash = ""
	return u, true
}
