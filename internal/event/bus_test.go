package event

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/reel/internal/ir"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func likeEvent(seq int64) ir.Event {
	ev := ir.NewEvent("bob", 1700000000+seq, ir.VideoLiked{VideoIndex: 0, Liker: "bob", LikeCount: 1})
	ev.Seq = seq
	return ev
}

func userEvent(seq int64) ir.Event {
	ev := ir.NewEvent("alice", 1700000000+seq, ir.UserCreated{Owner: "alice", DisplayName: "Alice"})
	ev.Seq = seq
	return ev
}

// recorder is a Subscriber that keeps every delivered event.
type recorder struct {
	mu     sync.Mutex
	events []ir.Event
	closed int
}

func (r *recorder) Deliver(ev ir.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

func (r *recorder) seqs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, ev := range r.events {
		out = append(out, ev.Seq)
	}
	return out
}

func TestBus_SubscribeByType(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Stop()

	likes, users := &recorder{}, &recorder{}
	bus.RegisterSubscriber(ir.EventVideoLiked, likes)
	bus.RegisterSubscriber(ir.EventUserCreated, users)

	bus.Publish(likeEvent(1))
	bus.Publish(userEvent(2))

	assert.Equal(t, []int64{1}, likes.seqs())
	assert.Equal(t, []int64{2}, users.seqs())
}

func TestBus_AllEventsInCommitOrder(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Stop()

	all := &recorder{}
	bus.RegisterSubscriber(AllEvents, all)
	bus.Emit(userEvent(1))
	bus.Emit(likeEvent(2))
	bus.Emit(likeEvent(3))

	assert.Equal(t, []int64{1, 2, 3}, all.seqs())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Stop()

	r := &recorder{}
	id := bus.RegisterSubscriber(ir.EventVideoLiked, r)
	bus.Unsubscribe(ir.EventVideoLiked, id)
	assert.Equal(t, 1, r.closed)

	bus.Publish(likeEvent(1))
	bus.Unsubscribe(ir.EventVideoLiked, id)
	assert.Empty(t, r.seqs())
	assert.Equal(t, 1, r.closed)
}

type failingSubscriber struct {
	mu     sync.Mutex
	calls  int
	closed int
	panics bool
}

func (s *failingSubscriber) Deliver(ir.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panics {
		panic("boom")
	}
	return errors.New("unavailable")
}

func (s *failingSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

func TestBus_FailingSubscriberIsDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	bus := NewBus(reg, slog.New(slog.NewTextHandler(&logs, nil)))
	defer bus.Stop()

	bad := &failingSubscriber{}
	bus.RegisterSubscriber(AllEvents, bad)
	sink := NewLogSink(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	bus.RegisterSubscriber(ir.EventVideoLiked, sink)

	bus.Publish(likeEvent(1))
	bus.Publish(likeEvent(2))

	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, bad.closed)
	assert.Contains(t, logs.String(), "subscriber dropped")

	assert.Equal(t, 1.0, promtest.ToFloat64(bus.metrics.deliveryErrors.WithLabelValues(string(ir.EventVideoLiked), "custom")))
	assert.Equal(t, 2.0, promtest.ToFloat64(bus.metrics.eventsTotal.WithLabelValues(string(ir.EventVideoLiked))))
	assert.Equal(t, 0.0, promtest.ToFloat64(bus.metrics.subscribers.WithLabelValues(string(AllEvents), "custom")))
	assert.Equal(t, 1.0, promtest.ToFloat64(bus.metrics.subscribers.WithLabelValues(string(ir.EventVideoLiked), "log")))
}

func TestBus_PanickingSubscriberIsDropped(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Stop()

	bad := &failingSubscriber{panics: true}
	bus.RegisterSubscriber(ir.EventUserCreated, bad)

	assert.NotPanics(t, func() { bus.Publish(userEvent(1)) })
	bus.Publish(userEvent(2))
	assert.Equal(t, 1, bad.calls)
}

func TestBus_Stop(t *testing.T) {
	bus := NewBus(nil, nil)
	r := &recorder{}
	bus.RegisterSubscriber(AllEvents, r)

	bus.Stop()
	bus.Stop()
	assert.Equal(t, 1, r.closed)

	bus.Emit(likeEvent(1))
	assert.Empty(t, r.seqs())

	late := &recorder{}
	bus.RegisterSubscriber(AllEvents, late)
	assert.Equal(t, 1, late.closed)
	bus.Emit(likeEvent(2))
	require.Empty(t, late.seqs())
}
