package admin

import (
	"net/http"

	"github.com/ZJUSCT/OITrack/internal/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var adminUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleAdminSyncWs follows the score sync of any user.
func (h *Handler) handleAdminSyncWs(c *gin.Context) {
	userID := c.Param("userID")

	conn, err := adminUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	msgChan, unsubscribe := h.broker.Subscribe(pubsub.SyncTopic(userID))
	defer unsubscribe()

	for msg := range msgChan {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			zap.S().Warnf("error writing to websocket: %v", err)
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "sync finished"))
}
