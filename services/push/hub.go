package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"campuspark/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// ErrNoSession is returned when an identity has no open connection.
var ErrNoSession = errors.New("no open session for identity")

type frame struct {
	kind int
	data []byte
}

// Client is one websocket connection.
type Client struct {
	SessionID string

	hub  *Hub
	conn *websocket.Conn
	send chan frame

	mu       sync.Mutex
	identity string

	done      chan struct{}
	closeOnce sync.Once
}

// Hub fans frames out to the connections of an identity.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	byIdentity map[string]map[*Client]struct{}
	logger     *zap.Logger
	wg         sync.WaitGroup
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		byIdentity: make(map[string]map[*Client]struct{}),
		logger:     logger,
	}
}

// Register tracks conn and starts its writer.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) *Client {
	c := &Client{
		SessionID: sessionID,
		hub:       h,
		conn:      conn,
		send:      make(chan frame, sendBuffer),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.wg.Add(1)
	go c.writePump()
	h.logger.Info("WebSocket client connected", zap.String("session", sessionID), zap.Int("total", total))
	return c
}

// Bind associates the client with identityID, replacing an earlier binding.
func (h *Hub) Bind(c *Client, identityID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.mu.Lock()
	prev := c.identity
	c.identity = identityID
	c.mu.Unlock()

	if prev != "" {
		h.removeIdentityLocked(prev, c)
	}
	set, ok := h.byIdentity[identityID]
	if !ok {
		set = make(map[*Client]struct{})
		h.byIdentity[identityID] = set
	}
	set[c] = struct{}{}
}

// Unregister closes the client. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.mu.Lock()
		if c.identity != "" {
			h.removeIdentityLocked(c.identity, c)
		}
		c.mu.Unlock()
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	h.logger.Info("WebSocket client disconnected", zap.String("session", c.SessionID), zap.Int("total", total))
}

func (h *Hub) removeIdentityLocked(identityID string, c *Client) {
	set := h.byIdentity[identityID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.byIdentity, identityID)
	}
}

func (h *Hub) identityClients(identityID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.byIdentity[identityID]))
	for c := range h.byIdentity[identityID] {
		out = append(out, c)
	}
	return out
}

// SendJSON delivers msg to every connection of identityID and returns how
// many accepted it.
func (h *Hub) SendJSON(identityID string, msg models.PushMessage) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal push message", zap.Error(err))
		return 0
	}
	delivered := 0
	for _, c := range h.identityClients(identityID) {
		if c.enqueue(frame{kind: websocket.TextMessage, data: data}) {
			delivered++
		}
	}
	return delivered
}

// Play sends audio as a binary frame to every connection of identityID.
func (h *Hub) Play(identityID string, audio []byte) error {
	delivered := 0
	for _, c := range h.identityClients(identityID) {
		if c.enqueue(frame{kind: websocket.BinaryMessage, data: audio}) {
			delivered++
		}
	}
	if delivered == 0 {
		return fmt.Errorf("play audio for %s: %w", identityID, ErrNoSession)
	}
	return nil
}

// Stop tells the identity's clients to stop any audio in progress.
func (h *Hub) Stop(identityID string) {
	h.SendJSON(identityID, models.PushMessage{Type: models.PushAudioStop})
}

// Prompt shows a durable Yes/No verification question.
func (h *Hub) Prompt(identityID string, p models.PendingVerification) {
	n := h.SendJSON(identityID, PromptMessage(p))
	if n == 0 {
		h.logger.Info("Verification prompt queued until a session identifies", zap.String("identity", identityID))
	}
}

// PromptMessage is the frame carrying a verification question.
func PromptMessage(p models.PendingVerification) models.PushMessage {
	pending := p
	return models.PushMessage{
		Type:    models.PushVerificationPrompt,
		Text:    fmt.Sprintf("Someone just parked in %s at %s. Is that you?", p.SpaceName, p.Location),
		Prompt:  &pending,
		Actions: []string{"Yes", "No"},
		Durable: true,
	}
}

// Close disconnects every client and waits for the writers.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Unregister(c)
	}
	h.wg.Wait()
}

// SendJSON delivers msg to this connection only.
func (c *Client) SendJSON(msg models.PushMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	return c.enqueue(frame{kind: websocket.TextMessage, data: data})
}

func (c *Client) enqueue(f frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	case <-c.done:
		return false
	default:
		c.hub.logger.Warn("WebSocket send buffer full, dropping frame", zap.String("session", c.SessionID))
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// ReadPump reads text frames until the peer goes away, passing each to
// onMessage. The caller unregisters the client afterwards.
func (c *Client) ReadPump(onMessage func([]byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("WebSocket read error", zap.String("session", c.SessionID), zap.Error(err))
			}
			return
		}
		if kind == websocket.TextMessage {
			onMessage(data)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
				c.hub.logger.Warn("Error writing to WebSocket client", zap.String("session", c.SessionID), zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
