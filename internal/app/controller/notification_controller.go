package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/internal/middleware"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
)

type NotificationController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewNotificationController accepts upgrades from the listed browser origins.
// Requests without an Origin header come from non-browser clients and pass.
func NewNotificationController(hub *ws.Hub, allowedOrigins []string) *NotificationController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &NotificationController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Connect upgrades to a websocket that streams the caller's order events
// GET /api/v1/ws?token=<access token>
func (ctrl *NotificationController) Connect(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	log := middleware.GetLoggerFromContext(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"user_id": actor.UserID,
			"error":   err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, actor.UserID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
