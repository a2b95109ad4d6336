package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/model"
)

// ErrInvalidCredentials covers unknown role, wrong password and wrong or
// missing captcha alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Redirect targets after a successful login.
const (
	AdminHome     = "/admin"
	DashboardHome = "/dashboard"
)

// CredentialVerifier checks a password for a login identifier.
type CredentialVerifier interface {
	Verify(loginBy, password string) bool
}

// AuthService drives the login state machine on a session.
type AuthService struct {
	credentials CredentialVerifier
	captcha     *CaptchaService
	sessions    *SessionService
	log         zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(credentials CredentialVerifier, captcha *CaptchaService, sessions *SessionService, log zerolog.Logger) *AuthService {
	return &AuthService{
		credentials: credentials,
		captcha:     captcha,
		sessions:    sessions,
		log:         log.With().Str("component", "auth_service").Logger(),
	}
}

// IssueCaptcha rotates the session's challenge and stores it.
func (s *AuthService) IssueCaptcha(ctx context.Context, sess *model.Session) error {
	code, err := s.captcha.Generate()
	if err != nil {
		return err
	}
	sess.Captcha = code
	return s.sessions.Save(ctx, sess)
}

// EnsureCaptcha issues a challenge only when the session has none.
func (s *AuthService) EnsureCaptcha(ctx context.Context, sess *model.Session) error {
	if sess.Captcha != "" {
		return nil
	}
	return s.IssueCaptcha(ctx, sess)
}

// Login checks the submitted form against the session's challenge and the
// credential store. On failure the identity is untouched, the captcha is
// rotated and ErrInvalidCredentials is returned. On success the session moves
// to a new ID. Any other error comes from session storage.
func (s *AuthService) Login(ctx context.Context, sess *model.Session, req model.LoginRequest) (*model.LoginOutcome, error) {
	expected := sess.Captcha

	// Both checks always run so a bad captcha costs the same as a bad password.
	passwordOK := s.credentials.Verify(req.LoginBy, req.Password)
	captchaOK := s.captcha.Verify(req.Captcha, expected)

	role, known := model.ParseRole(req.LoginBy)
	if !known || !passwordOK || !captchaOK {
		s.log.Info().Str("session_id", sess.ID).Msg("Login rejected")
		if err := s.IssueCaptcha(ctx, sess); err != nil {
			return nil, fmt.Errorf("rotate captcha: %w", err)
		}
		return nil, ErrInvalidCredentials
	}

	outcome := &model.LoginOutcome{
		Message: fmt.Sprintf("Login Successful (%s)", role.DisplayName()),
	}
	if role == model.RoleAdmin {
		sess.SignIn(model.AdminIdentity())
		outcome.Redirect = AdminHome
	} else {
		sess.SignIn(model.RoleIdentity(role))
		outcome.Redirect = DashboardHome
	}

	if err := s.sessions.Rotate(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.log.Info().
		Str("session_id", sess.ID).
		Str("role", string(role)).
		Msg("Login succeeded")

	return outcome, nil
}

// Logout returns the session to the anonymous state and removes it from
// storage.
func (s *AuthService) Logout(ctx context.Context, sess *model.Session) error {
	return s.sessions.Destroy(ctx, sess)
}
