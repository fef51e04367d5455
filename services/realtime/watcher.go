package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	feedRepo "campuspark/database/repository/feed"
	"campuspark/models"

	"go.uber.org/zap"
)

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

// Prompter shows a verification question to an identity.
type Prompter interface {
	Prompt(identityID string, p models.PendingVerification)
}

// Announcer reads text aloud on a session.
type Announcer interface {
	Speak(sessionID, text string)
}

type watch struct {
	identity models.Identity
	refs     int
	cancel   context.CancelFunc
	done     chan struct{}

	mu   sync.Mutex
	seen map[string]bool
}

// markSeen records a prompt for spaceID and reports whether it is new.
func (wt *watch) markSeen(spaceID string) bool {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	if wt.seen[spaceID] {
		return false
	}
	wt.seen[spaceID] = true
	return true
}

func (wt *watch) forget(spaceID string) {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	delete(wt.seen, spaceID)
}

// OccupancyWatcher subscribes to space changes for each watched identity and
// asks the owner to verify a new, unconfirmed occupation.
type OccupancyWatcher struct {
	feed      feedRepo.ChangeFeed
	pending   *PendingStore
	prompter  Prompter
	announcer Announcer
	logger    *zap.Logger
	now       func() time.Time

	minBackoff time.Duration
	maxBackoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	watches map[string]*watch
}

func NewOccupancyWatcher(feed feedRepo.ChangeFeed, pending *PendingStore, prompter Prompter, announcer Announcer, logger *zap.Logger) *OccupancyWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &OccupancyWatcher{
		feed:       feed,
		pending:    pending,
		prompter:   prompter,
		announcer:  announcer,
		logger:     logger,
		now:        time.Now,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		ctx:        ctx,
		cancel:     cancel,
		watches:    make(map[string]*watch),
	}
}

// Watch takes a reference on the identity's subscription, starting it on the
// first reference. A new display name for a watched identity restarts the
// subscription under that name.
func (w *OccupancyWatcher) Watch(identity models.Identity) {
	w.mu.Lock()
	wt, ok := w.watches[identity.ID]
	if ok && wt.identity.DisplayName == identity.DisplayName {
		wt.refs++
		w.mu.Unlock()
		return
	}
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}

	refs := 1
	if ok {
		refs = wt.refs + 1
		w.logger.Info("Display name changed, restarting occupancy watch",
			zap.String("identity", identity.ID),
			zap.String("previous", wt.identity.DisplayName),
			zap.String("user", identity.DisplayName),
		)
	}
	w.start(identity, refs)
	w.mu.Unlock()

	if ok {
		wt.cancel()
		<-wt.done
		return
	}
	w.logger.Info("Watching occupancy", zap.String("identity", identity.ID), zap.String("user", identity.DisplayName))
}

// start registers and runs a subscription for identity. w.mu must be held.
func (w *OccupancyWatcher) start(identity models.Identity, refs int) {
	ctx, cancel := context.WithCancel(w.ctx)
	wt := &watch{
		identity: identity,
		refs:     refs,
		cancel:   cancel,
		done:     make(chan struct{}),
		seen:     make(map[string]bool),
	}
	w.watches[identity.ID] = wt
	go w.run(ctx, wt)
}

// Release drops one reference. The subscription stops with the last one.
func (w *OccupancyWatcher) Release(identityID string) {
	w.mu.Lock()
	wt, ok := w.watches[identityID]
	if !ok {
		w.mu.Unlock()
		return
	}
	wt.refs--
	if wt.refs > 0 {
		w.mu.Unlock()
		return
	}
	delete(w.watches, identityID)
	w.mu.Unlock()

	wt.cancel()
	<-wt.done
	w.logger.Info("Stopped watching occupancy", zap.String("identity", identityID))
}

// Watching reports whether identityID has an active subscription.
func (w *OccupancyWatcher) Watching(identityID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.watches[identityID]
	return ok
}

// Forget clears the dedupe key so the next unconfirmed occupation of
// spaceID prompts again.
func (w *OccupancyWatcher) Forget(identityID, spaceID string) {
	w.mu.Lock()
	wt, ok := w.watches[identityID]
	w.mu.Unlock()
	if ok {
		wt.forget(spaceID)
	}
}

// Close stops every subscription and waits for them to exit.
func (w *OccupancyWatcher) Close() {
	w.cancel()

	w.mu.Lock()
	watches := make([]*watch, 0, len(w.watches))
	for id, wt := range w.watches {
		watches = append(watches, wt)
		delete(w.watches, id)
	}
	w.mu.Unlock()

	for _, wt := range watches {
		<-wt.done
	}
}

func (w *OccupancyWatcher) run(ctx context.Context, wt *watch) {
	defer close(wt.done)

	logger := w.logger.With(zap.String("identity", wt.identity.ID))
	filter := feedRepo.Filter{User: wt.identity.DisplayName}
	backoff := w.minBackoff

	for {
		changes, err := w.feed.Subscribe(ctx, filter)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to subscribe to space changes", zap.Duration("retry_in", backoff), zap.Error(err))
		} else {
			for change := range changes {
				backoff = w.minBackoff
				w.handle(wt, change)
			}
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Space change feed closed, resubscribing", zap.Duration("retry_in", backoff))
		}

		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff *= 2
		if backoff > w.maxBackoff {
			backoff = w.maxBackoff
		}
	}
}

// Only updates prompt. An inserted row carries no reservation to verify.
func (w *OccupancyWatcher) handle(wt *watch, change models.SpaceChange) {
	space := change.New
	if change.Op == models.OpUpdate && space.AwaitingVerification(wt.identity.DisplayName) {
		if !wt.markSeen(space.ID) {
			return
		}
		p := models.PendingVerification{
			SpaceID:    space.ID,
			SpaceName:  space.Name,
			Location:   space.Location,
			IdentityID: wt.identity.ID,
			RaisedAt:   w.now(),
		}
		w.pending.Put(p)
		w.logger.Info("Occupation awaiting verification",
			zap.String("identity", wt.identity.ID),
			zap.String("space", space.Name),
		)
		w.announcer.Speak(wt.identity.ID, occupiedAlert(space))
		w.prompter.Prompt(wt.identity.ID, p)
		return
	}

	spaceID := ""
	switch {
	case change.New != nil:
		spaceID = change.New.ID
	case change.Old != nil:
		spaceID = change.Old.ID
	}
	if spaceID == "" {
		return
	}
	wt.forget(spaceID)
	if w.pending.RemoveIf(wt.identity.ID, spaceID) {
		w.logger.Info("Pending verification withdrawn",
			zap.String("identity", wt.identity.ID),
			zap.String("space_id", spaceID),
		)
	}
}

func occupiedAlert(space *models.ParkingSpace) string {
	return fmt.Sprintf("A car was just detected in your reserved space %s at %s. Is that you?", space.Name, space.Location)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
