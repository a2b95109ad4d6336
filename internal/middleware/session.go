package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/response"
	"github.com/stemsi/institute-portal/internal/service"
)

// ContextKeySession is the Gin context key for the current *model.Session.
const ContextKeySession = "session"

// LoadSession resolves the session cookie into a stored session, starting a
// new anonymous one when the cookie is absent, tampered with or points at a
// session that no longer exists. The cookie is reissued when new or aging.
func LoadSession(sessions *service.SessionService, cfg *config.Config, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "session_middleware").Logger()

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var sess *model.Session
		reissue := false

		if token, err := c.Cookie(cfg.SessionCookieName); err == nil && token != "" {
			s, claims, err := sessions.Resolve(ctx, token)
			switch {
			case err == nil:
				sess = s
				reissue = sessions.NeedsRefresh(claims)
			case service.IsMissing(err):
				log.Debug().Err(err).Msg("Discarding session cookie")
			default:
				log.Error().Err(err).Msg("Failed to load session")
				response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
				return
			}
		}

		if sess == nil {
			s, err := sessions.Start(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to start session")
				response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
				return
			}
			sess = s
			reissue = true
		}

		if reissue {
			if err := IssueSessionCookie(c, sessions, cfg, sess); err != nil {
				log.Error().Err(err).Msg("Failed to sign session token")
				response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
				return
			}
		}

		c.Set(ContextKeySession, sess)
		c.Next()
	}
}

// GetSession retrieves the session from the Gin context.
func GetSession(c *gin.Context) *model.Session {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	sess, ok := val.(*model.Session)
	if !ok {
		return nil
	}
	return sess
}

// IssueSessionCookie signs a token for sess and sets it on the response,
// replacing any cookie set earlier in the request.
func IssueSessionCookie(c *gin.Context, sessions *service.SessionService, cfg *config.Config, sess *model.Session) error {
	token, err := sessions.IssueToken(sess.ID)
	if err != nil {
		return err
	}
	setSessionCookie(c, cfg, token, int(cfg.SessionTTL.Seconds()))
	return nil
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(c *gin.Context, cfg *config.Config) {
	setSessionCookie(c, cfg, "", -1)
}

func setSessionCookie(c *gin.Context, cfg *config.Config, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.SessionCookieName, value, maxAge, "/", "", cfg.CookieSecure, true)
}
