package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/middleware"
	"github.com/stemsi/attendance-backend/internal/response"
	"github.com/stemsi/attendance-backend/internal/service"
	ws "github.com/stemsi/attendance-backend/internal/websocket"
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

// DashboardHandler serves the dashboard snapshot and its live update stream.
type DashboardHandler struct {
	rdb              *redis.Client
	dashboardService *service.DashboardService
	classService     *service.ClassService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(
	rdb *redis.Client,
	dashboardService *service.DashboardService,
	classService *service.ClassService,
	log zerolog.Logger,
	allowedOrigins []string,
) *DashboardHandler {
	return &DashboardHandler{
		rdb:              rdb,
		dashboardService: dashboardService,
		classService:     classService,
		log:              log.With().Str("component", "dashboard_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// GetDashboard godoc
// GET /api/v1/dashboard
// Returns today's figures for the caller's classes.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	data, err := h.dashboardService.Get(c.Request.Context(), middleware.GetClaims(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}

// Stream godoc
// WS /ws/v1/dashboard/stream?token=
// Forwards summary events for the caller's classes until the client leaves.
func (h *DashboardHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scope, err := h.classService.Scope(c.Request.Context(), claims)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	wsLog := h.log.With().Str("user_id", claims.UserID.String()).Logger()

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.DashboardEventsChannel())
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Subscribe failed")
		ws.WriteError(conn, "subscribe failed")
		return
	}
	events := pubsub.Channel()

	if err := ws.WriteTyped(conn, ws.ReadyResponse{Event: ws.EventReady, Classes: scopeClassIDs(scope)}); err != nil {
		return
	}
	wsLog.Info().Msg("Dashboard stream connected")

	// The read loop only signals; every write happens on this goroutine.
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.KeepAlive(conn)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			wsLog.Debug().Msg("Dashboard stream closed")
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		case msg, ok := <-events:
			if !ok {
				return
			}
			if !eventVisible(scope, []byte(msg.Payload)) {
				continue
			}
			if err := ws.WriteRaw(conn, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}

// eventVisible reports whether a published summary event concerns the scope.
// Rebuild events carry no class and reach everyone.
func eventVisible(scope service.Scope, payload []byte) bool {
	var event ws.SummaryEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return false
	}
	if event.ClassID == "" {
		return event.Event == ws.EventSummaryRebuilt
	}
	id, err := uuid.Parse(event.ClassID)
	if err != nil {
		return false
	}
	return scope.Allows(id)
}

func scopeClassIDs(scope service.Scope) []string {
	if scope.All {
		return []string{}
	}
	ids := make([]string, 0, len(scope.ClassIDs))
	for _, id := range scope.ClassIDs {
		ids = append(ids, id.String())
	}
	return ids
}
