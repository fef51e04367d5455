package ai

import (
	"context"
	"time"

	"campuspark/models"

	"go.uber.org/zap"
)

// Pusher delivers a JSON frame to every open session of an identity.
type Pusher interface {
	SendJSON(identityID string, msg models.PushMessage) int
}

// Speaker reads text aloud on a session.
type Speaker interface {
	Speak(sessionID, text string)
}

// ChatSurface reacts to verification outcomes on behalf of the chat UI.
type ChatSurface struct {
	contexts ContextStore
	engine   DialogueEngine
	pusher   Pusher
	speaker  Speaker
	logger   *zap.Logger
	timeout  time.Duration
}

func NewChatSurface(contexts ContextStore, engine DialogueEngine, pusher Pusher, speaker Speaker, logger *zap.Logger, timeout time.Duration) *ChatSurface {
	return &ChatSurface{
		contexts: contexts,
		engine:   engine,
		pusher:   pusher,
		speaker:  speaker,
		logger:   logger,
		timeout:  timeout,
	}
}

// HandleEvent is registered on the domain event bus.
func (s *ChatSurface) HandleEvent(ev models.DomainEvent) {
	switch ev.Type {
	case models.EventParkingTaken:
		s.onTaken(ev)
	case models.EventParkingVerified:
		s.onVerified(ev)
	}
}

func (s *ChatSurface) onTaken(ev models.DomainEvent) {
	ctx, cancel := boundedContext(context.Background(), s.timeout)
	defer cancel()

	empty := ""
	if _, err := s.contexts.Update(ctx, ev.IdentityID, models.ContextPatch{SelectedParking: &empty, LastParkingQuery: &empty}); err != nil {
		s.logger.Error("Failed to clear selection after taken space",
			zap.String("identity", ev.IdentityID),
			zap.Error(contextError("update", err)),
		)
	}
	s.engine.Forget(ev.IdentityID)

	text := replyTaken(ev)
	delivered := s.pusher.SendJSON(ev.IdentityID, models.PushMessage{
		Type:    models.PushAssistantMessage,
		Text:    text,
		Actions: []string{"Find me a new space"},
	})
	s.logger.Info("Space reported taken",
		zap.String("identity", ev.IdentityID),
		zap.String("space", ev.ParkingSpace),
		zap.Int("sessions", delivered),
	)
	s.speaker.Speak(ev.IdentityID, text)
}

func (s *ChatSurface) onVerified(ev models.DomainEvent) {
	s.pusher.SendJSON(ev.IdentityID, models.PushMessage{
		Type: models.PushAssistantMessage,
		Text: replyVerified(ev),
	})
}
