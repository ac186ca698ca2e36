package handler

import (
	"grievance/backend/internal/api/middleware"
	"grievance/backend/internal/livefeed"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWebSocket підключає користувача до живої стрічки сповіщень
func (h *Handler) ServeWebSocket(c *gin.Context) {
	user := middleware.CurrentUser(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ERROR: websocket upgrade for user %d: %v", user.ID, err)
		return
	}

	client := livefeed.NewWebSocketClient(h.Hub, user.ID, conn)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}
