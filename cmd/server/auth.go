package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/rs/zerolog/log"

	"healthassist/internal/auth"
	"healthassist/internal/config"
	"healthassist/internal/store"
)

var errNoSessionSecret = errors.New("HEALTHASSIST_SESSION_SECRET is required in production")

// newAuth builds the session service. Outside production a missing secret is
// replaced by a random one, which invalidates every token on restart.
func newAuth(cfg *config.Config, users *store.UserStore, root string) (*auth.Service, error) {
	secret := cfg.SessionSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errNoSessionSecret
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(buf)
		log.Warn().Msg("SESSION_SECRET not set; sessions will not survive a restart")
	}
	return auth.NewService(users, store.NewSessionStore(root), secret, cfg.SessionTTL), nil
}
