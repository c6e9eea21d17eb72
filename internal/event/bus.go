package event

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/reel/internal/ir"
)

// AllEvents subscribes to every event type.
const AllEvents ir.EventType = "*"

type SubscriberID int

// Subscriber is a delivery target. Implementations must make Close
// idempotent.
type Subscriber interface {
	Deliver(ir.Event) error
	Close()
}

type busMetrics struct {
	eventsTotal    *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
	deliveryErrors *prometheus.CounterVec
}

// Bus delivers events to subscribers registered by type.
type Bus struct {
	subscribers map[ir.EventType]map[SubscriberID]Subscriber
	metrics     *busMetrics
	lastID      SubscriberID
	stopped     bool
	mu          sync.RWMutex
	logger      *slog.Logger
}

// NewBus creates a Bus. A nil reg disables metrics; a nil logger uses
// slog.Default.
func NewBus(reg prometheus.Registerer, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		subscribers: make(map[ir.EventType]map[SubscriberID]Subscriber),
		logger:      logger,
	}
	if reg != nil {
		b.initMetrics(reg)
	}
	return b
}

func (b *Bus) initMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)
	b.metrics = &busMetrics{
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_event_bus_events_total",
				Help: "events published, by type",
			},
			[]string{"type"},
		),
		subscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reel_event_bus_subscribers",
				Help: "registered subscribers, by type and kind",
			},
			[]string{"type", "kind"},
		),
		deliveryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_event_bus_delivery_errors_total",
				Help: "failed deliveries, by type and kind",
			},
			[]string{"type", "kind"},
		),
	}
}

func subscriberKind(sub Subscriber) string {
	switch sub.(type) {
	case *LogSink:
		return "log"
	case *RedisSink:
		return "redis"
	default:
		return "custom"
	}
}

// RegisterSubscriber adds sub for events of type t and returns its id.
// On a stopped bus sub is closed at once and never receives events.
func (b *Bus) RegisterSubscriber(t ir.EventType, sub Subscriber) SubscriberID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		sub.Close()
		return 0
	}
	b.lastID++
	id := b.lastID
	if _, ok := b.subscribers[t]; !ok {
		b.subscribers[t] = make(map[SubscriberID]Subscriber)
	}
	b.subscribers[t][id] = sub
	if b.metrics != nil {
		b.metrics.subscribers.WithLabelValues(string(t), subscriberKind(sub)).Inc()
	}
	return id
}

// Unsubscribe removes and closes a subscriber.
func (b *Bus) Unsubscribe(t ir.EventType, id SubscriberID) {
	b.mu.Lock()
	var sub Subscriber
	if subs, ok := b.subscribers[t]; ok {
		if s, ok := subs[id]; ok {
			sub = s
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.subscribers, t)
			}
			if b.metrics != nil {
				b.metrics.subscribers.WithLabelValues(string(t), subscriberKind(s)).Dec()
			}
		}
	}
	b.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Publish delivers ev synchronously to the subscribers of its type and of
// AllEvents. Order across subscribers is unspecified.
func (b *Bus) Publish(ev ir.Event) {
	type target struct {
		t   ir.EventType
		id  SubscriberID
		sub Subscriber
	}

	b.mu.RLock()
	var targets []target
	for _, t := range []ir.EventType{ev.Type, AllEvents} {
		for id, sub := range b.subscribers[t] {
			targets = append(targets, target{t, id, sub})
		}
	}
	b.mu.RUnlock()

	for _, tg := range targets {
		if err := deliver(tg.sub, ev); err != nil {
			b.Unsubscribe(tg.t, tg.id)
			if b.metrics != nil {
				b.metrics.deliveryErrors.WithLabelValues(string(ev.Type), subscriberKind(tg.sub)).Inc()
			}
			b.logger.Warn("event delivery failed, subscriber dropped",
				"type", ev.Type,
				"seq", ev.Seq,
				"error", err)
		}
	}
	if b.metrics != nil {
		b.metrics.eventsTotal.WithLabelValues(string(ev.Type)).Inc()
	}
}

func deliver(sub Subscriber, ev ir.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return sub.Deliver(ev)
}

// Emit publishes ev synchronously, preserving commit order for subscribers.
// It implements engine.Emitter. A stopped bus drops ev.
func (b *Bus) Emit(ev ir.Event) {
	b.mu.RLock()
	stopped := b.stopped
	b.mu.RUnlock()
	if stopped {
		return
	}
	b.Publish(ev)
}

// Stop closes every subscriber. It is safe to call more than once.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	subs := b.subscribers
	b.subscribers = make(map[ir.EventType]map[SubscriberID]Subscriber)
	b.mu.Unlock()

	for _, byID := range subs {
		for _, sub := range byID {
			sub.Close()
		}
	}
	if b.metrics != nil {
		b.metrics.subscribers.Reset()
	}
}
