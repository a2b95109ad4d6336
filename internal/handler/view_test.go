package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stemsi/institute-portal/internal/model"
	ws "github.com/stemsi/institute-portal/internal/websocket"
	"github.com/stretchr/testify/assert"
)

func TestSameHostReferer(t *testing.T) {
	cases := []struct {
		name    string
		referer string
		want    string
	}{
		{"empty", "", "/fallback"},
		{"same host", "http://portal.test/admin", "/admin"},
		{"keeps query", "http://portal.test/dashboard?x=1", "/dashboard?x=1"},
		{"relative path", "/dashboard", "/dashboard"},
		{"other host", "http://evil.test/admin", "/fallback"},
		{"scheme relative", "//evil.test/admin", "/fallback"},
		{"no path", "http://portal.test", "/fallback"},
		{"double slash path", "http://portal.test//evil.test/x", "/fallback"},
		{"garbage", "http://[::1", "/fallback"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "http://portal.test/select-institute", nil)
			if tc.referer != "" {
				r.Header.Set("Referer", tc.referer)
			}
			assert.Equal(t, tc.want, sameHostReferer(r, "/fallback"))
		})
	}
}

func TestSnapshotForHidesRemovedSelection(t *testing.T) {
	h := &WSHandler{}
	sess := model.NewSession("s1")
	sess.SelectedInstitute = "B"

	resp := h.snapshotFor(sess, []string{"A", "B"})
	assert.Equal(t, ws.EventInstitutes, resp.Event)
	assert.Equal(t, "B", resp.SelectedInstitute)

	resp = h.snapshotFor(sess, []string{"A"})
	assert.Empty(t, resp.SelectedInstitute)
	assert.Equal(t, "B", sess.SelectedInstitute, "stream must not mutate the session")

	resp = h.snapshotFor(sess, nil)
	assert.NotNil(t, resp.Institutes)
}

func TestBuildUpgraderOrigins(t *testing.T) {
	open := buildUpgrader(nil)
	r := httptest.NewRequest(http.MethodGet, "/ws/institutes", nil)
	r.Header.Set("Origin", "https://anywhere.test")
	assert.True(t, open.CheckOrigin(r))

	strict := buildUpgrader([]string{"https://portal.test"})
	assert.False(t, strict.CheckOrigin(r))
	r.Header.Set("Origin", "HTTPS://PORTAL.TEST")
	assert.True(t, strict.CheckOrigin(r))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m 5s", formatDuration(5*time.Second))
	assert.Equal(t, "2h 3m 0s", formatDuration(2*time.Hour+3*time.Minute))
	assert.Equal(t, "1d 1h 0m 0s", formatDuration(25*time.Hour))
}
