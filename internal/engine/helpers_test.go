package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reel/internal/ir"
	"github.com/roach88/reel/internal/store"
	"github.com/roach88/reel/internal/testutil"
)

const (
	admin ir.Identity = "admin"
	alice ir.Identity = "alice"
	bob   ir.Identity = "bob"
	carol ir.Identity = "carol"
)

// fixture is an engine over a fresh backend with a step clock and an
// emitter that records every event.
type fixture struct {
	eng     *Engine
	backend store.Backend
	clock   *testutil.StepClock

	mu     sync.Mutex
	events []ir.Event
}

func newFixture(t *testing.T, backend store.Backend, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{backend: backend, clock: testutil.NewStepClock()}
	base := []Option{
		WithClock(f.clock),
		WithFlowGenerator(testutil.NewSequenceFlowGenerator("flow")),
		WithEmitter(EmitterFunc(f.record)),
	}
	f.eng = New(backend, append(base, opts...)...)
	return f
}

func (f *fixture) record(ev ir.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fixture) emitted() []ir.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ir.Event(nil), f.events...)
}

func openSQLite(t *testing.T) store.Backend {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "reel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// openBadger raises the retry budget because the concurrent like and video
// tests race many writers on one record.
func openBadger(t *testing.T) store.Backend {
	t.Helper()
	s, err := store.OpenBadger("", store.WithMaxConflictRetries(64))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachBackend runs fn once per storage backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Helper()
	backends := []struct {
		name string
		open func(*testing.T) store.Backend
	}{
		{"sqlite", openSQLite},
		{"badger", openBadger},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, newFixture(t, b.open(t)))
		})
	}
}

func (f *fixture) initState(t *testing.T) {
	t.Helper()
	_, err := f.eng.CreateState(context.Background(), admin)
	require.NoError(t, err)
}

func (f *fixture) publish(t *testing.T, owner ir.Identity) ir.Video {
	t.Helper()
	v, err := f.eng.CreateVideo(context.Background(), owner, CreateVideoRequest{
		Description:        "a video",
		MediaURL:           "https://cdn.example/v.mp4",
		CreatorDisplayName: string(owner),
		CreatorURL:         "https://example/" + string(owner),
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) video(t *testing.T, seq uint64) ir.Video {
	t.Helper()
	v, err := f.eng.GetVideo(context.Background(), seq)
	require.NoError(t, err)
	return v
}

// eventCount returns the number of events in the persistent log.
func (f *fixture) eventCount(t *testing.T) int {
	t.Helper()
	events, err := f.backend.ReadEvents(context.Background(), 0, 0)
	require.NoError(t, err)
	return len(events)
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, CodeOf(err), "got %v", err)
}
