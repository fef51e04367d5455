package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedSynth blocks each call until its text is released or ctx ends.
type gatedSynth struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
	err     error
}

func newGatedSynth() *gatedSynth {
	return &gatedSynth{gates: make(map[string]chan struct{}), started: make(chan string, 16)}
}

func (s *gatedSynth) gate(text string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[text]
	if !ok {
		g = make(chan struct{})
		s.gates[text] = g
	}
	return g
}

func (s *gatedSynth) release(text string) {
	close(s.gate(text))
}

func (s *gatedSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	g := s.gate(text)
	s.started <- text
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g:
	}
	if s.err != nil {
		return nil, s.err
	}
	return []byte("audio:" + text), nil
}

type recordingSink struct {
	mu     sync.Mutex
	played []string
	stops  int
	playCh chan string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{playCh: make(chan string, 16)}
}

func (s *recordingSink) Play(_ string, audio []byte) error {
	s.mu.Lock()
	s.played = append(s.played, string(audio))
	s.mu.Unlock()
	s.playCh <- string(audio)
	return nil
}

func (s *recordingSink) Stop(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *recordingSink) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.played...), s.stops
}

func waitStarted(t *testing.T, s *gatedSynth, want string) {
	t.Helper()
	select {
	case got := <-s.started:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("synthesis of %q never started", want)
	}
}

func TestAnnouncer_NewUtteranceReplacesPrevious(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	synth := newGatedSynth()
	sink := newRecordingSink()
	a := NewAnnouncer(synth, sink, zap.New(core), time.Second)
	defer a.Close()

	a.Speak("s1", "first")
	waitStarted(t, synth, "first")
	a.Speak("s1", "second")
	waitStarted(t, synth, "second")
	synth.release("second")

	select {
	case got := <-sink.playCh:
		assert.Equal(t, "audio:second", got)
	case <-time.After(2 * time.Second):
		t.Fatal("second utterance was not played")
	}

	// Releasing the superseded utterance must not play it.
	synth.release("first")
	a.Close()
	played, stops := sink.snapshot()
	assert.Equal(t, []string{"audio:second"}, played)
	assert.Equal(t, 2, stops)
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestAnnouncer_SessionsAreIndependent(t *testing.T) {
	synth := newGatedSynth()
	sink := newRecordingSink()
	a := NewAnnouncer(synth, sink, zap.NewNop(), time.Second)
	defer a.Close()

	a.Speak("s1", "hello one")
	waitStarted(t, synth, "hello one")
	a.Speak("s2", "hello two")
	waitStarted(t, synth, "hello two")

	synth.release("hello one")
	synth.release("hello two")
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case audio := <-sink.playCh:
			got[audio] = true
		case <-time.After(2 * time.Second):
			t.Fatal("missing audio")
		}
	}
	assert.True(t, got["audio:hello one"])
	assert.True(t, got["audio:hello two"])
}

func TestAnnouncer_LogsSynthesisErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	synth := newGatedSynth()
	synth.err = errors.New("tts unavailable")
	sink := newRecordingSink()
	a := NewAnnouncer(synth, sink, zap.New(core), time.Second)

	a.Speak("s1", "hello")
	waitStarted(t, synth, "hello")
	synth.release("hello")
	a.Close()

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Speech synthesis failed", entries[0].Message)
	played, _ := sink.snapshot()
	assert.Empty(t, played)
}

func TestAnnouncer_ZeroTimeoutIsUnbounded(t *testing.T) {
	synth := newGatedSynth()
	sink := newRecordingSink()
	a := NewAnnouncer(synth, sink, zap.NewNop(), 0)
	defer a.Close()

	a.Speak("s1", "hello")
	waitStarted(t, synth, "hello")
	time.Sleep(10 * time.Millisecond)
	synth.release("hello")

	select {
	case got := <-sink.playCh:
		assert.Equal(t, "audio:hello", got)
	case <-time.After(2 * time.Second):
		t.Fatal("utterance was not played")
	}
}

func TestAnnouncer_CancelAndClose(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	synth := newGatedSynth()
	sink := newRecordingSink()
	a := NewAnnouncer(synth, sink, zap.New(core), time.Second)

	a.Speak("s1", "long text")
	waitStarted(t, synth, "long text")
	a.Cancel("s1")
	a.Close()

	played, stops := sink.snapshot()
	assert.Empty(t, played)
	assert.Equal(t, 2, stops)
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())

	// Speaking after Close is a no-op.
	a.Speak("s1", "ignored")
	played, _ = sink.snapshot()
	assert.Empty(t, played)
}

func TestTTSClient_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0x49, 0x44, 0x33})
	}))
	defer srv.Close()

	audio, err := NewTTSClient(srv.URL, srv.Client()).Synthesize(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x49, 0x44, 0x33}, audio)
}

func TestTTSClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewTTSClient(srv.URL, srv.Client()).Synthesize(context.Background(), "hi")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewTTSClient(srv.URL, srv.Client()).Synthesize(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}
