package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/repository"
	"github.com/stemsi/institute-portal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		SessionSecret:     "test-secret",
		SessionCookieName: "portal_session",
		SessionTTL:        time.Hour,
	}
}

func newSessionServiceTest(t *testing.T) (*service.SessionService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cfg := testConfig()
	return service.NewSessionService(cfg, repository.NewSessionRepository(rdb, cfg.SessionTTL)), mr
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "portal_session" {
			return c
		}
	}
	return nil
}

func TestLoadSessionStartsAndReuses(t *testing.T) {
	sessions, _ := newSessionServiceTest(t)
	cfg := testConfig()

	var seen []string
	r := gin.New()
	r.Use(LoadSession(sessions, cfg, zerolog.Nop()))
	r.GET("/", func(c *gin.Context) {
		seen = append(seen, GetSession(c).ID)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
	assert.Nil(t, sessionCookie(w), "fresh token should not be reissued")
}

func TestLoadSessionReplacesForgedCookie(t *testing.T) {
	sessions, _ := newSessionServiceTest(t)

	r := gin.New()
	r.Use(LoadSession(sessions, testConfig(), zerolog.Nop()))
	r.GET("/", func(c *gin.Context) {
		assert.False(t, GetSession(c).IsAuthenticated())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: "forged"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotNil(t, sessionCookie(w))
}

func TestLoadSessionStoreDown(t *testing.T) {
	sessions, mr := newSessionServiceTest(t)
	mr.Close()

	r := gin.New()
	r.Use(LoadSession(sessions, testConfig(), zerolog.Nop()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func gateRouter(sess *model.Session, gate gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if sess != nil {
			c.Set(ContextKeySession, sess)
		}
		c.Next()
	})
	r.GET("/", gate, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthGates(t *testing.T) {
	anon := model.NewSession("a")
	auditor := model.NewSession("b")
	auditor.SignIn(model.RoleIdentity(model.RoleAuditor))
	admin := model.NewSession("c")
	admin.SignIn(model.AdminIdentity())

	cases := []struct {
		name string
		sess *model.Session
		gate gin.HandlerFunc
		want int
	}{
		{"admin gate, no session", nil, RequireAdmin(), http.StatusSeeOther},
		{"admin gate, anonymous", anon, RequireAdmin(), http.StatusSeeOther},
		{"admin gate, role", auditor, RequireAdmin(), http.StatusSeeOther},
		{"admin gate, admin", admin, RequireAdmin(), http.StatusNoContent},
		{"auth gate, anonymous", anon, RequireAuthenticated(), http.StatusSeeOther},
		{"auth gate, role", auditor, RequireAuthenticated(), http.StatusNoContent},
		{"auth gate, admin", admin, RequireAuthenticated(), http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			gateRouter(tc.sess, tc.gate).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusSeeOther {
				assert.Equal(t, LoginPath, w.Header().Get("Location"))
			}
		})
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.1.1.1"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	body := strings.Repeat("institute ", 500)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, body[:len(body)/2])
		c.String(http.StatusOK, body[len(body)/2:])
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))
}

func TestBrotliLeavesSmallBodiesAlone(t *testing.T) {
	r := gin.New()
	r.Use(Brotli())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/", NoStore(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRequestLoggerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, buf.String(), `"path":"/health"`)
	assert.Contains(t, buf.String(), `"status":200`)
}
