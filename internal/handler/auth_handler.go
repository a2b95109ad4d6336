package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/middleware"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/response"
	"github.com/stemsi/institute-portal/internal/service"
	"github.com/stemsi/institute-portal/internal/validator"
)

// AuthHandler handles the login, logout and landing pages.
type AuthHandler struct {
	viewSupport
	authService *service.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	sessionService *service.SessionService,
	instituteService *service.InstituteService,
	cfg *config.Config,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		viewSupport: viewSupport{
			institutes: instituteService,
			sessions:   sessionService,
			log:        log.With().Str("component", "auth_handler").Logger(),
		},
		authService: authService,
		cfg:         cfg,
	}
}

// Landing godoc
// GET /
// Public landing page.
func (h *AuthHandler) Landing(c *gin.Context) {
	sess := middleware.GetSession(c)

	pc, ok := h.pageContext(c, sess)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, pc)
}

// LoginPage godoc
// GET /login
// Issues a fresh captcha and returns the login view.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	sess := middleware.GetSession(c)

	if err := h.authService.IssueCaptcha(c.Request.Context(), sess); err != nil {
		h.log.Error().Err(err).Msg("Failed to issue captcha")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	view, ok := h.loginView(c, sess, "")
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Login godoc
// POST /login
// Checks login_by + password + captcha. Success redirects to /admin or
// /dashboard (or returns the outcome as JSON when the client asks for it);
// failure re-renders the login view with a new captcha.
func (h *AuthHandler) Login(c *gin.Context) {
	sess := middleware.GetSession(c)

	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		// Oversized input fails exactly like a wrong password.
		req = model.LoginRequest{}
	}

	outcome, err := h.authService.Login(c.Request.Context(), sess, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			view, ok := h.loginView(c, sess, response.GetMessage(response.ErrInvalidCredentials))
			if !ok {
				return
			}
			response.FailWithData(c, http.StatusUnauthorized, response.ErrInvalidCredentials, view)
			return
		}
		h.log.Error().Err(err).Msg("Login failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Login moved the session to a new ID.
	if err := middleware.IssueSessionCookie(c, h.sessions, h.cfg, sess); err != nil {
		h.log.Error().Err(err).Msg("Failed to sign session token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		response.Success(c, http.StatusOK, outcome)
		return
	}
	response.Redirect(c, outcome.Redirect)
}

// Logout godoc
// GET /logout
// Clears the session and returns to the landing page.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.GetSession(c)

	if err := h.authService.Logout(c.Request.Context(), sess); err != nil {
		h.log.Error().Err(err).Msg("Logout failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	middleware.ClearSessionCookie(c, h.cfg)
	response.Redirect(c, "/")
}

func (h *AuthHandler) loginView(c *gin.Context, sess *model.Session, message string) (model.LoginView, bool) {
	pc, ok := h.pageContext(c, sess)
	if !ok {
		return model.LoginView{}, false
	}

	roles := make([]string, 0, len(model.AllRoles))
	for _, r := range model.AllRoles {
		roles = append(roles, string(r))
	}

	return model.LoginView{
		PageContext: pc,
		Captcha:     sess.Captcha,
		Message:     message,
		Roles:       roles,
	}, true
}
