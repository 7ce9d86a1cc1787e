package realtime

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades the connection and serves subscribe/unsubscribe
// frames until the client goes away.
func WSHandler(hub *Hub, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		logger.Debug().Str("remote", ws.RemoteAddr().String()).Msg("ws client connected")

		_ = ws.WriteJSON(map[string]string{"type": TypeWelcome, "transport": "websocket"})

		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				break
			}

			var frame ClientFrame
			if err := json.Unmarshal(payload, &frame); err != nil {
				continue
			}

			subject := strings.TrimSpace(frame.Subject)
			if subject == "" {
				continue
			}

			switch frame.Type {
			case TypeSubscribe:
				hub.Subscribe(subject, ws)
			case TypeUnsubscribe:
				hub.Unsubscribe(subject, ws)
			}
		}

		hub.Drop(ws)
		logger.Debug().Str("remote", ws.RemoteAddr().String()).Msg("ws client disconnected")
	}
}
