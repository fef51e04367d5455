package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"campuspark/config"
	feedRepo "campuspark/database/repository/feed"
	parkingRepo "campuspark/database/repository/parking"
	"campuspark/middleware"
	"campuspark/models"
	ai "campuspark/services/intelligence"
	"campuspark/services/push"
	"campuspark/services/realtime"
	"campuspark/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var alice = models.Identity{ID: "u-alice", DisplayName: "Alice", Role: models.RoleUser}

func init() {
	gin.SetMode(gin.TestMode)
	config.AppConfig.JWTSecret = "handler-secret"
}

func tokenFor(t *testing.T, id models.Identity) string {
	t.Helper()
	token, err := utils.GenerateToken(id, time.Hour)
	require.NoError(t, err)
	return token
}

type scriptedEngine struct {
	replies map[string]models.Reply
	seen    []string
}

func (e *scriptedEngine) Handle(_ context.Context, _ models.Identity, utterance string, _ []models.ChatMessage) models.Reply {
	e.seen = append(e.seen, utterance)
	if r, ok := e.replies[utterance]; ok {
		return r
	}
	return models.TextReply("I can help with parking.")
}

func (e *scriptedEngine) Step(string) ai.TurnStep { return ai.StepIdle }

func (e *scriptedEngine) Forget(string) {}

type memorySpaces struct {
	mu     sync.Mutex
	spaces map[string]*models.ParkingSpace
	err    error
}

func (m *memorySpaces) GetByName(_ context.Context, name string) (*models.ParkingSpace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.spaces {
		if s.Name == name {
			out := *s
			return &out, nil
		}
	}
	return nil, parkingRepo.ErrSpaceNotFound
}

func (m *memorySpaces) GetByID(_ context.Context, id string) (*models.ParkingSpace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[id]
	if !ok {
		return nil, parkingRepo.ErrSpaceNotFound
	}
	out := *s
	return &out, nil
}

func (m *memorySpaces) ReserveIfOpen(context.Context, string, models.Reservation) (bool, error) {
	return false, errors.New("not used")
}

func (m *memorySpaces) ConfirmOccupant(_ context.Context, id, occupant string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	s := m.spaces[id]
	if s.User != occupant || s.Status != models.StatusOccupied {
		return parkingRepo.ErrOccupantChanged
	}
	s.VerifiedByUser = true
	s.VerifiedAt = &at
	return nil
}

func (m *memorySpaces) DisownOccupant(_ context.Context, id, occupant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	s := m.spaces[id]
	if s.User != occupant || s.Status != models.StatusOccupied {
		return parkingRepo.ErrOccupantChanged
	}
	s.User = models.NoOccupant
	return nil
}

type fixedRoutes struct{ polyline string }

func (f fixedRoutes) Route(context.Context, models.Entrance, string) (string, error) {
	return f.polyline, nil
}

type recordingSpeaker struct {
	texts []string
}

func (s *recordingSpeaker) Speak(_ string, text string) {
	s.texts = append(s.texts, text)
}

type recordingBus struct {
	events []models.DomainEvent
}

func (b *recordingBus) Publish(ev models.DomainEvent) {
	b.events = append(b.events, ev)
}

func newSpaces() *memorySpaces {
	return &memorySpaces{spaces: map[string]*models.ParkingSpace{
		"id-1": {ID: "id-1", Name: "P1", Status: models.StatusOccupied, User: "Alice", Location: "Lot A, row 2"},
	}}
}

func postJSON(t *testing.T, r http.Handler, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatHandler(t *testing.T) {
	engine := &scriptedEngine{replies: map[string]models.Reply{
		"main entrance": {Kind: models.ReplyRouteReady, Text: "Perfect! Here's the route from the Main Entrance to parking space P1.", Space: "P1", Entrance: models.EntranceMain},
	}}
	speaker := &recordingSpeaker{}
	h := &AssistantHandler{Engine: engine, Spaces: newSpaces(), Routes: fixedRoutes{polyline: "enc0d3d"}, Speaker: speaker, Timeout: time.Second}

	r := gin.New()
	r.POST("/chat", middleware.IdentityMiddleware(false), h.ChatHandler)
	token := tokenFor(t, alice)

	w := postJSON(t, r, "/chat", token, models.ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ReplyText, resp.Kind)
	assert.Equal(t, "I can help with parking.", resp.Response)
	assert.Nil(t, resp.Route)
	assert.Empty(t, speaker.texts)

	w = postJSON(t, r, "/chat", token, models.ChatRequest{Message: "main entrance", Speak: true})
	require.Equal(t, http.StatusOK, w.Code)
	resp = models.ChatResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ReplyRouteReady, resp.Kind)
	require.NotNil(t, resp.Route)
	assert.Equal(t, models.RouteAttachment{Space: "P1", Entrance: models.EntranceMain, Location: "Lot A, row 2", Polyline: "enc0d3d"}, *resp.Route)
	assert.Equal(t, []string{resp.Response}, speaker.texts)
}

func TestChatHandler_RejectsBadRequests(t *testing.T) {
	h := &AssistantHandler{Engine: &scriptedEngine{}, Spaces: newSpaces(), Speaker: &recordingSpeaker{}, Timeout: time.Second}
	r := gin.New()
	r.POST("/chat", middleware.IdentityMiddleware(false), h.ChatHandler)

	assert.Equal(t, http.StatusUnauthorized, postJSON(t, r, "/chat", "", models.ChatRequest{Message: "hi"}).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, r, "/chat", tokenFor(t, alice), map[string]string{}).Code)
}

func newVerificationFixture(t *testing.T) (*gin.Engine, *realtime.PendingStore, *memorySpaces, *recordingBus) {
	t.Helper()
	spaces := newSpaces()
	pending := realtime.NewPendingStore(zap.NewNop())
	bus := &recordingBus{}
	responder := realtime.NewVerificationResponder(spaces, pending, nil, bus, zap.NewNop(), time.Second)
	h := &VerificationHandler{Pending: pending, Responder: responder}

	r := gin.New()
	g := r.Group("/v", middleware.IdentityMiddleware(false))
	g.GET("/pending", h.PendingHandler)
	g.POST("/respond", h.RespondHandler)
	return r, pending, spaces, bus
}

func TestVerificationHandlers(t *testing.T) {
	r, pending, spaces, bus := newVerificationFixture(t)
	token := tokenFor(t, alice)

	req := httptest.NewRequest(http.MethodGet, "/v/pending", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"pending":null}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, postJSON(t, r, "/v/respond", token, models.VerificationAnswer{Answer: "yes"}).Code)

	pending.Put(models.PendingVerification{SpaceID: "id-1", SpaceName: "P1", Location: "Lot A, row 2", IdentityID: alice.ID})

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"spaceName":"P1"`)

	assert.Equal(t, http.StatusBadRequest, postJSON(t, r, "/v/respond", token, map[string]string{"answer": "maybe"}).Code)

	spaces.err = errors.New("db down")
	assert.Equal(t, http.StatusBadGateway, postJSON(t, r, "/v/respond", token, models.VerificationAnswer{Answer: "no"}).Code)
	_, ok := pending.Get(alice.ID)
	assert.True(t, ok)

	spaces.err = nil
	w = postJSON(t, r, "/v/respond", token, models.VerificationAnswer{Answer: "no"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"recorded"`)
	require.Len(t, bus.events, 1)
	assert.Equal(t, models.EventParkingTaken, bus.events[0].Type)
	assert.Equal(t, models.NoOccupant, spaces.spaces["id-1"].User)
}

func TestVerificationHandlers_ReassignedSpace(t *testing.T) {
	r, pending, spaces, bus := newVerificationFixture(t)
	token := tokenFor(t, alice)

	pending.Put(models.PendingVerification{SpaceID: "id-1", SpaceName: "P1", Location: "Lot A, row 2", IdentityID: alice.ID})
	spaces.spaces["id-1"].User = "Bob"

	assert.Equal(t, http.StatusNotFound, postJSON(t, r, "/v/respond", token, models.VerificationAnswer{Answer: "yes"}).Code)
	_, ok := pending.Get(alice.ID)
	assert.False(t, ok)
	assert.Empty(t, bus.events)
	assert.Equal(t, "Bob", spaces.spaces["id-1"].User)
	assert.False(t, spaces.spaces["id-1"].VerifiedByUser)
}

type silentFeed struct{}

func (silentFeed) Subscribe(ctx context.Context, _ feedRepo.Filter) (<-chan models.SpaceChange, error) {
	ch := make(chan models.SpaceChange)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

type nopPrompter struct{}

func (nopPrompter) Prompt(string, models.PendingVerification) {}

type nopAnnouncer struct{}

func (nopAnnouncer) Speak(string, string) {}

func TestWebSocketHandler_IdentifyReplaysPrompt(t *testing.T) {
	hub := push.NewHub(zap.NewNop())
	pending := realtime.NewPendingStore(zap.NewNop())
	watcher := realtime.NewOccupancyWatcher(silentFeed{}, pending, nopPrompter{}, nopAnnouncer{}, zap.NewNop())
	h := &WebSocketHandler{Hub: hub, Watcher: watcher, Pending: pending}

	r := gin.New()
	r.GET("/ws", middleware.IdentityMiddleware(true), h.HandleWebSocket)
	srv := httptest.NewServer(r)
	defer func() {
		hub.Close()
		srv.Close()
		watcher.Close()
	}()

	pending.Put(models.PendingVerification{SpaceID: "id-1", SpaceName: "P1", Location: "Lot A", IdentityID: alice.ID})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "identify", "token": tokenFor(t, alice)}))

	read := func() models.PushMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg models.PushMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	identified := read()
	assert.Equal(t, models.PushIdentified, identified.Type)
	assert.Equal(t, alice.ID, identified.Identity)

	prompt := read()
	assert.Equal(t, models.PushVerificationPrompt, prompt.Type)
	assert.True(t, prompt.Durable)
	require.NotNil(t, prompt.Prompt)
	assert.Equal(t, "P1", prompt.Prompt.SpaceName)
	assert.True(t, watcher.Watching(alice.ID))

	assert.Equal(t, 1, hub.SendJSON(alice.ID, models.PushMessage{Type: models.PushAssistantMessage, Text: "hi"}))
	assert.Equal(t, "hi", read().Text)
}
