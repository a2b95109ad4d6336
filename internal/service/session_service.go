package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/repository"
)

// ErrInvalidSessionToken is returned for cookies that fail signature or
// expiry checks.
var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionStore is the persistence the session service needs.
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
}

// SessionClaims is the signed cookie payload. The session ID travels as jti.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionService binds browser cookies to stored session records.
type SessionService struct {
	cfg   *config.Config
	store SessionStore
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg *config.Config, store SessionStore) *SessionService {
	return &SessionService{cfg: cfg, store: store}
}

// Start creates and stores a fresh anonymous session.
func (s *SessionService) Start(ctx context.Context) (*model.Session, error) {
	sess := model.NewSession(uuid.New().String())
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Resolve returns the session referenced by a cookie token. Unknown,
// expired or tampered tokens yield ErrInvalidSessionToken or
// repository.ErrSessionNotFound; the caller should start a new session.
func (s *SessionService) Resolve(ctx context.Context, token string) (*model.Session, *SessionClaims, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, claims, nil
}

// Save persists the session, refreshing its TTL.
func (s *SessionService) Save(ctx context.Context, sess *model.Session) error {
	return s.store.Save(ctx, sess)
}

// Rotate moves the session to a fresh ID and drops the old record. Call it on
// every privilege change; the caller must reissue the cookie.
func (s *SessionService) Rotate(ctx context.Context, sess *model.Session) error {
	oldID := sess.ID
	sess.ID = uuid.New().String()
	if err := s.store.Save(ctx, sess); err != nil {
		sess.ID = oldID
		return err
	}
	if err := s.store.Delete(ctx, oldID); err != nil {
		return fmt.Errorf("drop rotated session: %w", err)
	}
	return nil
}

// Destroy clears the session in place and removes the stored record.
func (s *SessionService) Destroy(ctx context.Context, sess *model.Session) error {
	sess.Clear()
	return s.store.Delete(ctx, sess.ID)
}

// IssueToken signs a cookie token for the session ID.
func (s *SessionService) IssueToken(sessionID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a cookie token and returns its claims.
func (s *SessionService) ParseToken(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.SessionSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidSessionToken
	}
	return claims, nil
}

// NeedsRefresh reports whether a token has used up half its lifetime.
func (s *SessionService) NeedsRefresh(claims *SessionClaims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return time.Until(claims.ExpiresAt.Time) < s.cfg.SessionTTL/2
}

// IsMissing reports whether err means the caller should start a new session.
func IsMissing(err error) bool {
	return errors.Is(err, ErrInvalidSessionToken) || errors.Is(err, repository.ErrSessionNotFound)
}
