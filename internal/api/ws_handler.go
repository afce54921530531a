package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/aidesk-io/aidesk/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The widget is embedded on customer sites; origin checks happen at
	// the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleRelay upgrades the connection and hands it to the relay hub.
func (s *Server) handleRelay(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	relay.NewClient(s.hub, conn).Run()
}
