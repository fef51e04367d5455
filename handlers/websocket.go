package handlers

import (
	"encoding/json"
	"net/http"

	"campuspark/middleware"
	"campuspark/models"
	"campuspark/services/push"
	"campuspark/services/realtime"
	"campuspark/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// inboundMessage is a client frame.
type inboundMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// WebSocketHandler serves the realtime session channel.
type WebSocketHandler struct {
	Hub     *push.Hub
	Watcher *realtime.OccupancyWatcher
	Pending *realtime.PendingStore
}

// HandleWebSocket upgrades the request. The identity comes from the
// optional token on the upgrade or a later identify frame.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	logger := getLogger(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	session := h.Watcher.NewSession()
	client := h.Hub.Register(session.ID, conn)
	defer func() {
		h.Hub.Unregister(client)
		session.Close()
	}()

	if identity, ok := middleware.CurrentIdentity(c); ok {
		h.identify(session, client, identity)
	}

	client.ReadPump(func(data []byte) {
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("Ignoring malformed WebSocket frame", zap.String("session", session.ID))
			return
		}
		switch msg.Type {
		case "identify":
			identity, err := utils.IdentityFromToken(msg.Token)
			if err != nil {
				client.SendJSON(models.PushMessage{Type: models.PushAssistantMessage, Text: "Sorry, I couldn't verify who you are. Please sign in again."})
				return
			}
			h.identify(session, client, *identity)
		default:
			logger.Debug("Ignoring WebSocket frame", zap.String("type", msg.Type))
		}
	})
}

// identify binds the session and replays an open question.
func (h *WebSocketHandler) identify(session *realtime.Session, client *push.Client, identity models.Identity) {
	if !session.Identify(identity) {
		return
	}
	h.Hub.Bind(client, identity.ID)
	client.SendJSON(models.PushMessage{Type: models.PushIdentified, Identity: identity.ID})
	if p, ok := h.Pending.Get(identity.ID); ok {
		client.SendJSON(push.PromptMessage(p))
	}
}
