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

// AdminHandler handles the institute registry pages reserved for the admin.
type AdminHandler struct {
	viewSupport
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(instituteService *service.InstituteService, sessionService *service.SessionService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		viewSupport: viewSupport{
			institutes: instituteService,
			sessions:   sessionService,
			log:        log.With().Str("component", "admin_handler").Logger(),
		},
	}
}

// AdminPage godoc
// GET /admin
// Returns the institute list.
func (h *AdminHandler) AdminPage(c *gin.Context) {
	h.renderList(c, "")
}

// AddInstitute godoc
// POST /admin
// Registers institute_name and re-renders the list.
func (h *AdminHandler) AddInstitute(c *gin.Context) {
	var req model.AddInstituteRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	added, err := h.institutes.Add(c.Request.Context(), req.InstituteName)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	msg := ""
	if added {
		msg = "Institute added"
	}
	h.renderList(c, msg)
}

// RemoveInstitute godoc
// POST /remove-institute
// Removes an institute and returns to the referring page.
func (h *AdminHandler) RemoveInstitute(c *gin.Context) {
	sess := middleware.GetSession(c)

	var req model.InstituteRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	hadSelection := sess.SelectedInstitute
	if err := h.institutes.RemoveForSession(c.Request.Context(), sess, req.Institute); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if sess.SelectedInstitute != hadSelection && !h.saveSession(c, sess) {
		return
	}

	redirectBack(c, "/admin")
}

func (h *AdminHandler) renderList(c *gin.Context, message string) {
	sess := middleware.GetSession(c)

	pc, ok := h.pageContext(c, sess)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, model.InstituteListView{PageContext: pc, Message: message})
}
