package models

// ChatMessage is one entry of the conversation history.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload coming from the frontend into /api/assistant/chat.
type ChatRequest struct {
	Message string        `json:"message" binding:"required"`
	History []ChatMessage `json:"history"`
	Speak   bool          `json:"speak"` // read the reply aloud on the session's socket
}

// ReplyKind tags a dialogue reply.
type ReplyKind string

const (
	ReplyText       ReplyKind = "text"
	ReplyRouteReady ReplyKind = "route_ready"
)

// Entrance is a campus entrance a route can start from.
type Entrance string

const (
	EntranceMain Entrance = "Main Entrance"
	EntranceSide Entrance = "Side Entrance"
)

// Reply is what one dialogue turn produces. Space and Entrance are set
// only for ReplyRouteReady.
type Reply struct {
	Kind     ReplyKind `json:"kind"`
	Text     string    `json:"response"`
	Space    string    `json:"space,omitempty"`
	Entrance Entrance  `json:"entrance,omitempty"`
}

// TextReply builds a plain text reply.
func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// RouteAttachment is the map data attached to a RouteReady reply.
type RouteAttachment struct {
	Space    string   `json:"space"`
	Entrance Entrance `json:"entrance"`
	Location string   `json:"location,omitempty"`
	Polyline string   `json:"polyline,omitempty"`
}

// ChatResponse is what the chat handler returns to the frontend.
type ChatResponse struct {
	Kind     ReplyKind        `json:"kind"`
	Response string           `json:"response"`
	Route    *RouteAttachment `json:"route,omitempty"`
}

// ConversationContext is the per-session selection state shared between the
// dialogue engine and the rendering layer.
type ConversationContext struct {
	SelectedParking  string   `json:"selectedParking"`
	Entrance         Entrance `json:"entrance"`
	LastParkingQuery string   `json:"lastParkingQuery"`
}

// ContextPatch updates the non-nil fields of a ConversationContext.
type ContextPatch struct {
	SelectedParking  *string
	Entrance         *Entrance
	LastParkingQuery *string
}

// Apply merges the patch into c.
func (p ContextPatch) Apply(c *ConversationContext) {
	if p.SelectedParking != nil {
		c.SelectedParking = *p.SelectedParking
	}
	if p.Entrance != nil {
		c.Entrance = *p.Entrance
	}
	if p.LastParkingQuery != nil {
		c.LastParkingQuery = *p.LastParkingQuery
	}
}

// CompletionContext is the structured context sent to the completion service.
type CompletionContext struct {
	SelectedParking  string `json:"selectedParking,omitempty"`
	Entrance         string `json:"entrance,omitempty"`
	LastParkingQuery string `json:"lastParkingQuery,omitempty"`
	UserName         string `json:"userName,omitempty"`
	Role             string `json:"role,omitempty"`
}
