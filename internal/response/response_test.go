package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h gin.HandlerFunc, reqID string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSuccessEnvelope(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		Success(c, http.StatusOK, gin.H{"status": "ok"})
	}, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Error)
	assert.Equal(t, w.Header().Get("X-Request-ID"), body.Metadata.RequestID)
	assert.NotEmpty(t, body.Metadata.Timestamp)
}

func TestFailWithDataCarriesView(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		FailWithData(c, http.StatusUnauthorized, ErrInvalidCredentials, gin.H{"captcha": "12345"})
	}, "")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body struct {
		Data  map[string]string `json:"data"`
		Error ErrorBody         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "12345", body.Data["captcha"])
	assert.Equal(t, ErrInvalidCredentials, body.Error.Code)
	assert.Equal(t, "Invalid Credentials", body.Error.Message)
}

func TestRedirectUsesSeeOther(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		Redirect(c, "/login")
	}, "")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequestIDHonoursValidHeader(t *testing.T) {
	id := uuid.New().String()
	w := serve(t, func(c *gin.Context) {
		assert.Equal(t, id, RequestID(c))
		c.Status(http.StatusNoContent)
	}, id)

	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestRequestIDReplacesGarbageHeader(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	}, "evil\nheader")

	got := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}

func TestGetMessageDefault(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred.", GetMessage("SOMETHING_ELSE"))
}
