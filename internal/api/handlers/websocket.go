package handlers

import (
	"poll-service/internal/api/middleware"
	"poll-service/internal/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *websocket.Hub
	upgrader *gorilla.Upgrader
}

func NewWSHandler(hub *websocket.Hub, origins *middleware.OriginMatcher) *WSHandler {
	return &WSHandler{
		hub:      hub,
		upgrader: websocket.NewUpgrader(origins.Allowed),
	}
}

// RegisterRoutes maps HTTP methods to handler functions
func (h *WSHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish a WebSocket connection for live poll results. Send poll.join / poll.leave messages to switch polls.
// @Tags websocket
// @Param pollId query string false "Poll to join right after connecting"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 403 "Origin not allowed"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWS(h.hub, h.upgrader, c.Writer, c.Request, middleware.GetClientIP(c), c.Query("pollId"))
}
