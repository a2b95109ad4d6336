package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/middleware"
	"github.com/stemsi/institute-portal/internal/model"
	"github.com/stemsi/institute-portal/internal/service"
	ws "github.com/stemsi/institute-portal/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// InstituteSubscriber delivers registry snapshots as they are published.
type InstituteSubscriber interface {
	Subscribe(ctx context.Context) (<-chan model.InstitutesSnapshot, func() error, error)
}

// WSHandler streams institute registry changes.
type WSHandler struct {
	institutes *service.InstituteService
	subscriber InstituteSubscriber
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(instituteService *service.InstituteService, subscriber InstituteSubscriber, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		institutes: instituteService,
		subscriber: subscriber,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// InstituteStream godoc
// WS /ws/institutes
// Sends the current registry, then every published change. Clients may send
// {"action":"ping"} to keep the connection alive.
func (h *WSHandler) InstituteStream(c *gin.Context) {
	sess := middleware.GetSession(c)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	snapshots, stop, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Institute subscription failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "institute stream unavailable"})
		return
	}
	defer stop()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sess.ID).Logger()
	wsLog.Debug().Msg("Institute stream connected")

	// gorilla connections allow one concurrent writer.
	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteTyped(conn, v)
	}

	if err := write(h.snapshotFor(sess, h.institutes.List())); err != nil {
		return
	}

	go func() {
		defer cancel()
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}

			var werr error
			switch msg.Action {
			case ws.ActionPing:
				werr = write(ws.PongResponse{Event: ws.EventPong})
			default:
				wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
				writeMu.Lock()
				werr = ws.WriteError(conn, "unknown action: "+string(msg.Action))
				writeMu.Unlock()
			}
			if werr != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Institute stream closed")
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := write(h.snapshotFor(sess, snap.Institutes)); err != nil {
				return
			}
		}
	}
}

// snapshotFor reports the selection only while it is still registered. The
// session itself is left untouched.
func (h *WSHandler) snapshotFor(sess *model.Session, names []string) ws.InstitutesResponse {
	if names == nil {
		names = []string{}
	}
	resp := ws.InstitutesResponse{Event: ws.EventInstitutes, Institutes: names}
	if sess.SelectedInstitute != "" && slices.Contains(names, sess.SelectedInstitute) {
		resp.SelectedInstitute = sess.SelectedInstitute
	}
	return resp
}
