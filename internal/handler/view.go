package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/response"
	"github.com/stemsi/institute-portal/internal/service"
)

// viewSupport holds what every page handler needs to build a PageContext.
type viewSupport struct {
	institutes *service.InstituteService
	sessions   *service.SessionService
	log        zerolog.Logger
}

// pageContext drops a stale selection (persisting the change) and builds the
// values shared by every view. It writes a 500 and returns false if the
// session cannot be saved.
func (v *viewSupport) pageContext(c *gin.Context, sess *model.Session) (model.PageContext, bool) {
	if v.institutes.ValidateSelection(sess) {
		if !v.saveSession(c, sess) {
			return model.PageContext{}, false
		}
	}

	pc := model.PageContext{
		CurrentYear:       time.Now().Year(),
		IsAdmin:           sess.IsAdmin(),
		SelectedInstitute: sess.SelectedInstitute,
		Institutes:        v.institutes.List(),
		RoleDisplay:       model.RoleDisplayNames(),
	}
	if r, ok := sess.Role(); ok {
		pc.Role = string(r)
	}
	return pc, true
}

// saveSession persists sess, answering 500 on failure.
func (v *viewSupport) saveSession(c *gin.Context, sess *model.Session) bool {
	if err := v.sessions.Save(c.Request.Context(), sess); err != nil {
		v.log.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to save session")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return false
	}
	return true
}

// redirectBack sends the client to the page it came from when that page is on
// this host, otherwise to fallback.
func redirectBack(c *gin.Context, fallback string) {
	response.Redirect(c, sameHostReferer(c.Request, fallback))
}

func sameHostReferer(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil {
		return fallback
	}
	if u.Host != "" && u.Host != r.Host {
		return fallback
	}
	// "//host" and "/\host" are read by browsers as another origin.
	if u.Path == "" || u.Path[0] != '/' || strings.HasPrefix(u.Path, "//") || strings.HasPrefix(u.Path, "/\\") {
		return fallback
	}
	back := u.Path
	if u.RawQuery != "" {
		back += "?" + u.RawQuery
	}
	return back
}
