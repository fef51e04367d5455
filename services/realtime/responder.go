package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	parkingRepo "campuspark/database/repository/parking"
	"campuspark/models"

	"go.uber.org/zap"
)

// ErrNoPending is returned when the identity has no open question for the
// answered space, including when it was already answered.
var ErrNoPending = errors.New("no pending verification")

// Publisher receives domain events.
type Publisher interface {
	Publish(ev models.DomainEvent)
}

// DedupeForgetter is implemented by OccupancyWatcher.
type DedupeForgetter interface {
	Forget(identityID, spaceID string)
}

// VerificationResponder applies the owner's Yes/No answer.
type VerificationResponder struct {
	spaces    parkingRepo.ParkingSpaceRepository
	pending   *PendingStore
	forgetter DedupeForgetter
	events    Publisher
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewVerificationResponder(
	spaces parkingRepo.ParkingSpaceRepository,
	pending *PendingStore,
	forgetter DedupeForgetter,
	events Publisher,
	logger *zap.Logger,
	timeout time.Duration,
) *VerificationResponder {
	return &VerificationResponder{
		spaces:    spaces,
		pending:   pending,
		forgetter: forgetter,
		events:    events,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Respond answers the identity's current question.
func (r *VerificationResponder) Respond(ctx context.Context, identity models.Identity, answer string) (models.PendingVerification, error) {
	p, ok := r.pending.Get(identity.ID)
	if !ok {
		return models.PendingVerification{}, ErrNoPending
	}
	switch answer {
	case models.AnswerYes:
		return p, r.Confirm(ctx, identity, p)
	case models.AnswerNo:
		return p, r.Deny(ctx, identity, p)
	default:
		return p, fmt.Errorf("invalid answer %q", answer)
	}
}

// Confirm records that the occupant is the owner.
func (r *VerificationResponder) Confirm(ctx context.Context, identity models.Identity, p models.PendingVerification) error {
	if err := r.checkPending(identity, p); err != nil {
		return err
	}
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.spaces.ConfirmOccupant(opCtx, p.SpaceID, identity.DisplayName, r.now()); err != nil {
		if errors.Is(err, parkingRepo.ErrOccupantChanged) {
			return r.withdraw(identity, p)
		}
		r.logger.Error("Failed to confirm occupant",
			zap.String("identity", identity.ID),
			zap.String("space", p.SpaceName),
			zap.Error(err),
		)
		return err
	}
	r.complete(identity, p)
	r.events.Publish(models.DomainEvent{
		Type:         models.EventParkingVerified,
		IdentityID:   identity.ID,
		ParkingSpace: p.SpaceName,
		Location:     p.Location,
		Verified:     true,
	})
	return nil
}

// Deny records that someone else is in the owner's space.
func (r *VerificationResponder) Deny(ctx context.Context, identity models.Identity, p models.PendingVerification) error {
	if err := r.checkPending(identity, p); err != nil {
		return err
	}
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.spaces.DisownOccupant(opCtx, p.SpaceID, identity.DisplayName); err != nil {
		if errors.Is(err, parkingRepo.ErrOccupantChanged) {
			return r.withdraw(identity, p)
		}
		r.logger.Error("Failed to disown occupant",
			zap.String("identity", identity.ID),
			zap.String("space", p.SpaceName),
			zap.Error(err),
		)
		return err
	}
	r.complete(identity, p)
	r.events.Publish(models.DomainEvent{
		Type:         models.EventParkingTaken,
		IdentityID:   identity.ID,
		ParkingSpace: p.SpaceName,
		Location:     p.Location,
	})
	return nil
}

func (r *VerificationResponder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// withdraw drops a question whose space is no longer occupied in the
// identity's name. The answer has nothing left to apply to.
func (r *VerificationResponder) withdraw(identity models.Identity, p models.PendingVerification) error {
	r.pending.RemoveIf(identity.ID, p.SpaceID)
	if r.forgetter != nil {
		r.forgetter.Forget(identity.ID, p.SpaceID)
	}
	r.logger.Info("Verification answer for a reassigned space ignored",
		zap.String("identity", identity.ID),
		zap.String("space", p.SpaceName),
	)
	return ErrNoPending
}

func (r *VerificationResponder) checkPending(identity models.Identity, p models.PendingVerification) error {
	current, ok := r.pending.Get(identity.ID)
	if !ok || current.SpaceID != p.SpaceID {
		return ErrNoPending
	}
	return nil
}

func (r *VerificationResponder) complete(identity models.Identity, p models.PendingVerification) {
	r.pending.RemoveIf(identity.ID, p.SpaceID)
	if r.forgetter != nil {
		r.forgetter.Forget(identity.ID, p.SpaceID)
	}
	r.logger.Info("Verification answered",
		zap.String("identity", identity.ID),
		zap.String("space", p.SpaceName),
	)
}
