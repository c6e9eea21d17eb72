package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/reel/internal/ir"
	"github.com/roach88/reel/internal/store"
)

const tracerName = "github.com/roach88/reel/internal/engine"

// Emitter receives each event after its operation has committed.
// Emit must not block for long; the operation has already returned its
// result to storage and the caller is waiting.
type Emitter interface {
	Emit(ir.Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ir.Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev ir.Event) { f(ev) }

// Engine applies ledger operations.
//
// Each operation runs inside one Backend.Update transaction: derive the
// target address, load or initialise records, run the invariant checks in
// order, write the mutation and append exactly one event. A failed check
// aborts the transaction, so a rejected operation leaves no trace in storage
// and emits nothing.
//
// Thread-safety: Engine is safe for concurrent use. Linearisation of
// concurrent operations is delegated to the backend (single-writer SQLite
// connection, or Badger's conflict detection with re-execution).
type Engine struct {
	backend store.Backend
	clock   Clock
	flowGen FlowTokenGenerator
	emitter Emitter
	logger  *slog.Logger
	metrics *engineMetrics
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. The clock is wrapped in a MonotonicClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = NewMonotonicClock(c)
	}
}

// WithFlowGenerator sets the flow token generator.
// Default: UUIDv7Generator.
func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(e *Engine) {
		e.flowGen = g
	}
}

// WithEmitter sets the post-commit event sink.
func WithEmitter(em Emitter) Option {
	return func(e *Engine) {
		e.emitter = em
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics registers operation metrics with reg. A nil reg disables
// metrics.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		if reg != nil {
			e.metrics = initEngineMetrics(reg)
		}
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp.Tracer(tracerName)
	}
}

// New creates an Engine over backend.
func New(backend store.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		clock:   NewMonotonicClock(SystemClock{}),
		flowGen: UUIDv7Generator{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backend returns the underlying store.
func (e *Engine) Backend() store.Backend {
	return e.backend
}

// mutation is the body of an operation. It runs inside the transaction,
// possibly more than once when the backend retries a conflict, and returns
// the payload of the event to append.
type mutation func(txn store.Txn, now int64) (ir.Payload, error)

// apply runs fn as operation op on behalf of caller and emits its event
// after commit.
func (e *Engine) apply(ctx context.Context, op string, caller ir.Identity, fn mutation) (ir.Event, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("reel.caller", string(caller)),
	))
	defer span.End()

	ev, err := e.commit(ctx, caller, fn)
	e.metrics.observe(op, start, err)

	if err != nil {
		var le *LedgerError
		if errors.As(err, &le) {
			le.Operation = op
			span.SetStatus(codes.Error, string(le.Code))
			e.logger.Info("operation rejected",
				"op", op,
				"caller", caller,
				"code", le.Code,
				"address", le.Address.Short())
			return ir.Event{}, le
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("operation failed", "op", op, "caller", caller, "error", err)
		return ir.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	span.SetAttributes(
		attribute.String("reel.event.type", string(ev.Type)),
		attribute.Int64("reel.event.seq", ev.Seq),
	)
	e.logger.Debug("operation committed",
		"op", op,
		"caller", caller,
		"event", ev.Type,
		"seq", ev.Seq,
		"flow", ev.FlowToken)

	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
	return ev, nil
}

func (e *Engine) commit(ctx context.Context, caller ir.Identity, fn mutation) (ir.Event, error) {
	if err := requireCaller(caller); err != nil {
		return ir.Event{}, err
	}
	flow := e.flowGen.Generate()

	var ev ir.Event
	err := e.backend.Update(ctx, func(txn store.Txn) error {
		now := e.clock.Now().Unix()
		payload, err := fn(txn, now)
		if err != nil {
			return err
		}
		ev = ir.NewEvent(caller, now, payload)
		ev.FlowToken = flow
		return txn.AppendEvent(&ev)
	})
	if err != nil {
		return ir.Event{}, err
	}
	return ev, nil
}

// requireFree fails with AddressAlreadyInUse when addr holds a record.
func requireFree(txn store.Txn, addr ir.Address) error {
	exists, err := store.Exists(txn, addr)
	if err != nil {
		return err
	}
	if exists {
		return newError(CodeAddressAlreadyInUse).at(addr)
	}
	return nil
}

// insert stores v at addr with create-only semantics.
func insert(txn store.Txn, kind ir.Kind, addr ir.Address, v any) error {
	err := store.Insert(txn, kind, addr, v)
	if errors.Is(err, store.ErrAddressInUse) {
		return newError(CodeAddressAlreadyInUse).at(addr)
	}
	return err
}

// load decodes the record of the given kind at addr, mapping a missing
// record to AccountNotFound.
func load[T any](txn store.Txn, kind ir.Kind, addr ir.Address, what string) (T, error) {
	v, err := store.Get[T](txn, kind, addr)
	if errors.Is(err, store.ErrNotFound) {
		le := newError(CodeAccountNotFound).at(addr)
		le.Message = what + " does not exist"
		return v, le
	}
	return v, err
}
