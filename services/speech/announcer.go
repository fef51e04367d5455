package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Synthesizer turns text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Sink plays audio on a session.
type Sink interface {
	Play(sessionID string, audio []byte) error
	Stop(sessionID string)
}

type utterance struct {
	cancel context.CancelFunc
}

// Announcer speaks at most one utterance per session; a new one cuts off
// the previous.
type Announcer struct {
	synth   Synthesizer
	sink    Sink
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	active map[string]*utterance
	closed bool
	wg     sync.WaitGroup
}

func NewAnnouncer(synth Synthesizer, sink Sink, logger *zap.Logger, timeout time.Duration) *Announcer {
	return &Announcer{
		synth:   synth,
		sink:    sink,
		logger:  logger,
		timeout: timeout,
		active:  make(map[string]*utterance),
	}
}

// Speak synthesises text in the background and plays it on the session.
func (a *Announcer) Speak(sessionID, text string) {
	if text == "" {
		return
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if a.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), a.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	u := &utterance{cancel: cancel}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		cancel()
		return
	}
	if prev, ok := a.active[sessionID]; ok {
		prev.cancel()
	}
	a.active[sessionID] = u
	a.wg.Add(1)
	a.mu.Unlock()

	a.sink.Stop(sessionID)

	go func() {
		defer a.wg.Done()
		defer a.finish(sessionID, u)
		a.speak(ctx, sessionID, u, text)
	}()
}

func (a *Announcer) speak(ctx context.Context, sessionID string, u *utterance, text string) {
	audio, err := a.synth.Synthesize(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.logger.Error("Speech synthesis failed", zap.String("session", sessionID), zap.Error(err))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active[sessionID] != u || ctx.Err() != nil {
		return
	}
	if err := a.sink.Play(sessionID, audio); err != nil {
		a.logger.Warn("Failed to deliver speech audio", zap.String("session", sessionID), zap.Error(err))
	}
}

func (a *Announcer) finish(sessionID string, u *utterance) {
	u.cancel()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active[sessionID] == u {
		delete(a.active, sessionID)
	}
}

// Cancel stops the session's current utterance, if any.
func (a *Announcer) Cancel(sessionID string) {
	a.mu.Lock()
	if u, ok := a.active[sessionID]; ok {
		u.cancel()
	}
	a.mu.Unlock()
	a.sink.Stop(sessionID)
}

// Close cancels every utterance and waits for the workers.
func (a *Announcer) Close() {
	a.mu.Lock()
	a.closed = true
	for _, u := range a.active {
		u.cancel()
	}
	a.mu.Unlock()
	a.wg.Wait()
}
