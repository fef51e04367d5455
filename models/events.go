package models

// EventType names a domain event.
type EventType string

const (
	EventParkingTaken    EventType = "parkingTaken"
	EventParkingVerified EventType = "parkingVerified"
)

// DomainEvent is published on the in-process bus.
type DomainEvent struct {
	Type         EventType `json:"type"`
	IdentityID   string    `json:"identityId"`
	ParkingSpace string    `json:"parkingSpace"`
	Location     string    `json:"location"`
	Verified     bool      `json:"verified,omitempty"`
}

// PushMessage is a JSON frame sent over a session's websocket.
type PushMessage struct {
	Type     string               `json:"type"` // assistant_message, verification_prompt, audio_stop
	Text     string               `json:"text,omitempty"`
	Prompt   *PendingVerification `json:"prompt,omitempty"`
	Actions  []string             `json:"actions,omitempty"`
	Durable  bool                 `json:"durable,omitempty"`
	Identity string               `json:"identity,omitempty"`
}

// Push message types.
const (
	PushAssistantMessage   = "assistant_message"
	PushVerificationPrompt = "verification_prompt"
	PushAudioStop          = "audio_stop"
	PushIdentified         = "identified"
)
