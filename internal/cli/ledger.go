package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/reel/internal/config"
	"github.com/roach88/reel/internal/engine"
	"github.com/roach88/reel/internal/event"
	"github.com/roach88/reel/internal/ir"
	"github.com/roach88/reel/internal/store"
)

const tracerName = "github.com/roach88/reel/internal/cli"

// ledger is one CLI invocation's view of the database: the engine plus
// the sinks, metrics and tracing wired around it.
type ledger struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend store.Backend
	eng     *engine.Engine
	bus     *event.Bus

	registry *prometheus.Registry
	tp       *sdktrace.TracerProvider
	redis    *redis.Client
}

// loadConfig reads the config file and environment, then applies flag
// overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if opts.Tracing {
		cfg.Tracing = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLedger wires the engine for one command. Callers must call close.
func openLedger(opts *RootOptions, cmd *cobra.Command) (*ledger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	stderr := cmd.ErrOrStderr()
	logger, err := cfg.NewLogger(stderr)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	l := &ledger{cfg: cfg, logger: logger}
	if err := l.open(stderr); err != nil {
		l.close(context.Background())
		return nil, err
	}
	return l, nil
}

func (l *ledger) open(stderr io.Writer) error {
	var err error
	switch l.cfg.Backend {
	case config.BackendBadger:
		l.backend, err = store.OpenBadger(l.cfg.DatabasePath)
	default:
		l.backend, err = store.Open(l.cfg.DatabasePath)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}

	engineOpts := []engine.Option{engine.WithLogger(l.logger)}

	var reg prometheus.Registerer
	if l.cfg.MetricsFile != "" {
		l.registry = prometheus.NewRegistry()
		reg = l.registry
		engineOpts = append(engineOpts, engine.WithMetrics(reg))
	}

	if l.cfg.Tracing {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create trace exporter", err)
		}
		l.tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		engineOpts = append(engineOpts, engine.WithTracerProvider(l.tp))
	}

	l.bus = event.NewBus(reg, l.logger)
	l.bus.RegisterSubscriber(event.AllEvents, event.NewLogSink(l.logger))
	if l.cfg.RedisAddr != "" {
		l.redis = redis.NewClient(&redis.Options{Addr: l.cfg.RedisAddr})
		sink := event.NewRedisSink(l.redis, l.cfg.RedisStream, event.WithStreamMaxLen(l.cfg.RedisStreamMaxLen))
		l.bus.RegisterSubscriber(event.AllEvents, sink)
	}
	engineOpts = append(engineOpts, engine.WithEmitter(l.bus))

	l.eng = engine.New(l.backend, engineOpts...)
	return nil
}

// close flushes sinks, spans and metrics, then closes the database.
func (l *ledger) close(ctx context.Context) error {
	var errs []error
	if l.bus != nil {
		l.bus.Stop()
	}
	if l.tp != nil {
		errs = append(errs, l.tp.Shutdown(ctx))
	}
	if l.registry != nil {
		if err := prometheus.WriteToTextfile(l.cfg.MetricsFile, l.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if l.redis != nil {
		errs = append(errs, l.redis.Close())
	}
	if l.backend != nil {
		errs = append(errs, l.backend.Close())
	}
	return errors.Join(errs...)
}

// caller returns the --as identity. Empty is passed through so the engine
// rejects it with MissingCaller.
func (opts *RootOptions) caller() ir.Identity {
	return ir.Identity(opts.As)
}

// withLedger opens the ledger, runs fn and reports its outcome. With
// tracing on, fn runs under a root span named after the command and the
// response carries its trace ID.
func withLedger(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, l *ledger) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	l, err := openLedger(opts, cmd)
	if err != nil {
		return err
	}

	f := formatter(opts, cmd)
	f.VerboseLog("%s database: %s", l.cfg.Backend, l.cfg.DatabasePath)

	var span trace.Span
	if l.tp != nil {
		ctx, span = l.tp.Tracer(tracerName).Start(ctx, cmd.CommandPath())
		f.TraceID = span.SpanContext().TraceID().String()
		f.VerboseLog("trace: %s", f.TraceID)
	}

	out, err := fn(ctx, l)
	if span != nil {
		span.End()
	}
	if cerr := l.close(ctx); cerr != nil {
		l.logger.Error("error closing ledger", "error", cerr)
	}

	if err != nil {
		return reportError(f, err)
	}
	return f.Success(out)
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// reportError prints a ledger rejection with its code and returns an
// ExitError. Other errors are returned for the caller to print.
func reportError(f *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var lerr *engine.LedgerError
	if !errors.As(err, &lerr) {
		return WrapExitError(ExitCommandError, "operation failed", err)
	}
	details := map[string]string{
		"kind":      string(lerr.Kind),
		"operation": lerr.Operation,
	}
	if lerr.Address != "" {
		details["address"] = string(lerr.Address)
	}
	if lerr.Field != "" {
		details["field"] = lerr.Field
	}
	if ferr := f.Error(string(lerr.Code), lerr.Message, details); ferr != nil {
		return ferr
	}
	return ReportedExitError(ExitFailure, "operation rejected", err)
}
