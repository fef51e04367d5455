// File: services/intelligence/dialogue.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	guestRepo "campuspark/database/repository/guest"
	parkingRepo "campuspark/database/repository/parking"
	"campuspark/models"

	"go.uber.org/zap"
)

// TurnStep is where a session is in the reservation conversation.
type TurnStep int

const (
	StepIdle TurnStep = iota
	StepAwaitingParkConfirmation
	StepAwaitingEntrance
)

func (s TurnStep) String() string {
	switch s {
	case StepAwaitingParkConfirmation:
		return "awaiting_park_confirmation"
	case StepAwaitingEntrance:
		return "awaiting_entrance"
	default:
		return "idle"
	}
}

type turnState struct {
	step  TurnStep
	space string
}

// DialogueEngine turns one utterance into one reply, driving the
// reserve-a-space conversation and delegating everything else to the
// natural-language fallback.
type DialogueEngine interface {
	Handle(ctx context.Context, identity models.Identity, utterance string, history []models.ChatMessage) models.Reply
	Step(sessionID string) TurnStep
	Forget(sessionID string)
}

type ReservationDialogueEngine struct {
	spaces   parkingRepo.ParkingSpaceRepository
	guests   guestRepo.GuestRequestRepository
	contexts ContextStore
	fallback NaturalLanguageFallback
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time

	mu    sync.Mutex
	turns map[string]turnState
}

func NewReservationDialogueEngine(
	spaces parkingRepo.ParkingSpaceRepository,
	guests guestRepo.GuestRequestRepository,
	contexts ContextStore,
	fallback NaturalLanguageFallback,
	logger *zap.Logger,
	timeout time.Duration,
) *ReservationDialogueEngine {
	return &ReservationDialogueEngine{
		spaces:   spaces,
		guests:   guests,
		contexts: contexts,
		fallback: fallback,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
		turns:    make(map[string]turnState),
	}
}

// Step reports the session's current turn step.
func (e *ReservationDialogueEngine) Step(sessionID string) TurnStep {
	return e.turn(sessionID).step
}

// Forget drops the session's turn state.
func (e *ReservationDialogueEngine) Forget(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.turns, sessionID)
}

func (e *ReservationDialogueEngine) turn(sessionID string) turnState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turns[sessionID]
}

func (e *ReservationDialogueEngine) setTurn(sessionID string, step TurnStep, space string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if step == StepIdle {
		delete(e.turns, sessionID)
		return
	}
	e.turns[sessionID] = turnState{step: step, space: space}
}

func (e *ReservationDialogueEngine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundedContext(ctx, e.timeout)
}

// boundedContext applies d unless it is zero or negative.
func boundedContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Handle processes one turn. It always returns a non-empty reply.
func (e *ReservationDialogueEngine) Handle(ctx context.Context, identity models.Identity, utterance string, history []models.ChatMessage) (reply models.Reply) {
	session := identity.ID
	logger := e.logger.With(zap.String("session", session))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Dialogue turn panicked", zap.Any("panic", r))
			reply = models.TextReply(replyApology)
		}
	}()

	intent := Classify(utterance)
	state := e.turn(session)
	logger.Debug("Dialogue turn",
		zap.Stringer("intent", intent.Kind),
		zap.Stringer("step", state.step),
	)

	if intent.Kind == IntentParkIn {
		return e.selectSpace(ctx, logger, session, intent.Space, utterance)
	}

	getCtx, cancel := e.withTimeout(ctx)
	convCtx, err := e.contexts.Get(getCtx, session)
	cancel()
	if err != nil {
		logger.Error("Failed to load conversation context", zap.Error(contextError("get", err)))
		return models.TextReply(replyApology)
	}

	if state.step == StepAwaitingParkConfirmation {
		switch intent.Kind {
		case IntentAffirm:
			return e.confirm(ctx, logger, identity, state.space)
		case IntentDeny:
			e.setTurn(session, StepIdle, "")
			return models.TextReply(replyWhatElse)
		default:
			return models.TextReply(replyRepeatQuestion(state.space))
		}
	}

	// An entrance applies to the stored selection, whether the entrance
	// question is open or was left unanswered earlier.
	if intent.Kind == IntentEntrance && convCtx.SelectedParking != "" {
		return e.chooseEntrance(ctx, logger, session, convCtx.SelectedParking, intent.Entrance)
	}

	return e.delegate(ctx, logger, identity, utterance, convCtx, history)
}

// selectSpace looks the space up and, when Open, asks for confirmation.
func (e *ReservationDialogueEngine) selectSpace(ctx context.Context, logger *zap.Logger, session, name, utterance string) models.Reply {
	opCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	space, err := e.spaces.GetByName(opCtx, name)
	if errors.Is(err, parkingRepo.ErrSpaceNotFound) {
		e.setTurn(session, StepIdle, "")
		return models.TextReply(replyNotFound(name))
	}
	if err != nil {
		logger.Error("Failed to look up parking space", zap.String("space", name), zap.Error(repositoryError("get by name", err)))
		return models.TextReply(replyApology)
	}
	if space.Status != models.StatusOpen {
		e.setTurn(session, StepIdle, "")
		return models.TextReply(replyUnavailable(space))
	}

	if _, err := e.contexts.Update(opCtx, session, models.ContextPatch{LastParkingQuery: &utterance}); err != nil {
		logger.Error("Failed to store parking query", zap.Error(contextError("update", err)))
		return models.TextReply(replyApology)
	}
	e.setTurn(session, StepAwaitingParkConfirmation, space.Name)
	return models.TextReply(replyConfirmQuestion(space.Name))
}

// confirm re-checks the space, applies the guest window and reserves it.
func (e *ReservationDialogueEngine) confirm(ctx context.Context, logger *zap.Logger, identity models.Identity, name string) models.Reply {
	session := identity.ID
	opCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	space, err := e.spaces.GetByName(opCtx, name)
	if errors.Is(err, parkingRepo.ErrSpaceNotFound) {
		e.setTurn(session, StepIdle, "")
		return models.TextReply(replyNotFound(name))
	}
	if err != nil {
		logger.Error("Failed to re-check parking space", zap.String("space", name), zap.Error(repositoryError("get by name", err)))
		return models.TextReply(replyApology)
	}
	if space.Status != models.StatusOpen {
		e.setTurn(session, StepIdle, "")
		return models.TextReply(replyNoLongerOpen(space))
	}

	now := e.now()
	reservation := models.Reservation{User: identity.DisplayName, AllocatedAt: now}

	if identity.IsGuest() {
		req, err := e.guests.GetLatestApproved(opCtx, identity.ID)
		if errors.Is(err, guestRepo.ErrNoApprovedRequest) {
			e.setTurn(session, StepIdle, "")
			return models.TextReply(replyNoApproved)
		}
		if err != nil {
			logger.Error("Failed to load guest request", zap.Error(repositoryError("latest approved", err)))
			return models.TextReply(replyApology)
		}
		if !req.Covers(now) {
			e.setTurn(session, StepIdle, "")
			return models.TextReply(replyOutsideWindow(req))
		}
		end := req.ParkingEndTime
		reservation.ParkingEndTime = &end
	}

	ok, err := e.spaces.ReserveIfOpen(opCtx, space.Name, reservation)
	if err != nil {
		logger.Error("Failed to reserve parking space", zap.String("space", space.Name), zap.Error(repositoryError("reserve", err)))
		return models.TextReply(replyApology)
	}
	if !ok {
		e.setTurn(session, StepIdle, "")
		return models.TextReply(replyJustTaken(space.Name))
	}

	selected := space.Name
	noEntrance := models.Entrance("")
	if _, err := e.contexts.Update(opCtx, session, models.ContextPatch{SelectedParking: &selected, Entrance: &noEntrance}); err != nil {
		logger.Error("Reserved space but failed to store selection", zap.String("space", space.Name), zap.Error(contextError("update", err)))
	}

	logger.Info("Parking space reserved",
		zap.String("space", space.Name),
		zap.String("user", identity.DisplayName),
		zap.Bool("guest", identity.IsGuest()),
	)
	e.setTurn(session, StepAwaitingEntrance, space.Name)
	return models.TextReply(replyAskEntrance(space.Name))
}

func (e *ReservationDialogueEngine) chooseEntrance(ctx context.Context, logger *zap.Logger, session, space string, entrance models.Entrance) models.Reply {
	opCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	if _, err := e.contexts.Update(opCtx, session, models.ContextPatch{Entrance: &entrance}); err != nil {
		logger.Error("Failed to store entrance", zap.Error(contextError("update", err)))
		return models.TextReply(replyApology)
	}
	e.setTurn(session, StepIdle, "")
	return models.Reply{
		Kind:     models.ReplyRouteReady,
		Text:     replyRoute(space, entrance),
		Space:    space,
		Entrance: entrance,
	}
}

func (e *ReservationDialogueEngine) delegate(ctx context.Context, logger *zap.Logger, identity models.Identity, utterance string, convCtx *models.ConversationContext, history []models.ChatMessage) models.Reply {
	opCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	cc := models.CompletionContext{
		SelectedParking:  convCtx.SelectedParking,
		Entrance:         string(convCtx.Entrance),
		LastParkingQuery: convCtx.LastParkingQuery,
		UserName:         identity.DisplayName,
		Role:             string(identity.Role),
	}
	text, err := e.fallback.Complete(opCtx, utterance, cc, history)
	if err != nil {
		logger.Error("Fallback completion failed", zap.Error(fallbackError("complete", err)))
		return models.TextReply(replyFallbackFailure)
	}
	if text == "" {
		logger.Warn("Fallback returned empty text", zap.Error(fallbackError("complete", fmt.Errorf("empty response"))))
		return models.TextReply(replyFallbackFailure)
	}
	return models.TextReply(text)
}
