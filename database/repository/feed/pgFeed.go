package feedRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"campuspark/database"
	"campuspark/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const subscriberBuffer = 64

// ErrFeedClosed is returned by Subscribe after Close.
var ErrFeedClosed = errors.New("change feed closed")

type pgSubscriber struct {
	filter Filter
	ch     chan models.SpaceChange
	ctx    context.Context
}

// PgFeed implements ChangeFeed on PostgreSQL LISTEN/NOTIFY. One listener
// connection is shared by all subscribers.
type PgFeed struct {
	listener *pq.Listener
	logger   *zap.Logger

	mu     sync.Mutex
	subs   map[int]*pgSubscriber
	nextID int
	closed bool
}

// NewPgFeed connects a listener on database.SpaceChangesChannel. Call Run to
// start dispatching.
func NewPgFeed(dsn string, logger *zap.Logger) (*PgFeed, error) {
	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(database.SpaceChangesChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", database.SpaceChangesChannel, err)
	}
	return &PgFeed{
		listener: listener,
		logger:   logger,
		subs:     make(map[int]*pgSubscriber),
	}, nil
}

// Run dispatches notifications until ctx is cancelled, then closes the feed.
func (f *PgFeed) Run(ctx context.Context) {
	defer f.Close()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-f.listener.Notify:
			if n == nil {
				// Reconnected; anything sent while disconnected is lost.
				f.logger.Warn("Postgres listener reconnected")
				continue
			}
			var change models.SpaceChange
			if err := json.Unmarshal([]byte(n.Extra), &change); err != nil {
				f.logger.Warn("Failed to decode space change", zap.Error(err))
				continue
			}
			f.dispatch(change)
		case <-ping.C:
			go func() {
				if err := f.listener.Ping(); err != nil {
					f.logger.Warn("Postgres listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

func (f *PgFeed) dispatch(change models.SpaceChange) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		if !sub.filter.Matches(change) {
			continue
		}
		select {
		case sub.ch <- change:
		case <-sub.ctx.Done():
		}
	}
}

func (f *PgFeed) Subscribe(ctx context.Context, filter Filter) (<-chan models.SpaceChange, error) {
	sub := &pgSubscriber{
		filter: filter,
		ch:     make(chan models.SpaceChange, subscriberBuffer),
		ctx:    ctx,
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub.ch)
		}
	}()
	return sub.ch, nil
}

// Close stops the listener and closes every subscriber channel.
func (f *PgFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub.ch)
	}
	f.mu.Unlock()
	return f.listener.Close()
}
