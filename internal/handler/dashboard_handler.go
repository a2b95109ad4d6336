package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/middleware"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/response"
	"github.com/stemsi/institute-portal/internal/service"
	"github.com/stemsi/institute-portal/internal/validator"
)

// DashboardHandler serves signed-in identities.
type DashboardHandler struct {
	viewSupport
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(instituteService *service.InstituteService, sessionService *service.SessionService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		viewSupport: viewSupport{
			institutes: instituteService,
			sessions:   sessionService,
			log:        log.With().Str("component", "dashboard_handler").Logger(),
		},
	}
}

// Dashboard godoc
// GET /dashboard
// Returns the institute list with the caller's role and selection.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	sess := middleware.GetSession(c)

	pc, ok := h.pageContext(c, sess)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, model.InstituteListView{PageContext: pc})
}

// SelectInstitute godoc
// POST /select-institute
// Sets the session's current institute and returns to the referring page.
func (h *DashboardHandler) SelectInstitute(c *gin.Context) {
	sess := middleware.GetSession(c)

	var req model.InstituteRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if sess.SelectedInstitute != req.Institute && h.institutes.Select(sess, req.Institute) {
		if !h.saveSession(c, sess) {
			return
		}
	}

	redirectBack(c, "/dashboard")
}
