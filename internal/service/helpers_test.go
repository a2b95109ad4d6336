package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/repository"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionSecret:     "test-secret",
		SessionCookieName: "portal_session",
		SessionTTL:        time.Hour,
		BcryptCost:        bcrypt.MinCost,
		CredentialHashes:  map[string]string{},
	}
}

type authFixture struct {
	cfg         *config.Config
	mr          *miniredis.Miniredis
	rdb         *redis.Client
	sessions    *SessionService
	credentials *CredentialService
	auth        *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := testConfig()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	credentials, err := NewCredentialService(cfg)
	require.NoError(t, err)

	sessions := NewSessionService(cfg, repository.NewSessionRepository(rdb, cfg.SessionTTL))
	auth := NewAuthService(credentials, NewCaptchaService(), sessions, zerolog.Nop())

	return &authFixture{
		cfg:         cfg,
		mr:          mr,
		rdb:         rdb,
		sessions:    sessions,
		credentials: credentials,
		auth:        auth,
	}
}
