package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/reel/internal/ir"
)

// LogSink writes each event as one structured log record.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink logs events at Info.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger, level: slog.LevelInfo}
}

func (s *LogSink) Deliver(ev ir.Event) error {
	s.logger.Log(context.Background(), s.level, "ledger event",
		"seq", ev.Seq,
		"type", ev.Type,
		"caller", ev.Caller,
		"flow", ev.FlowToken,
		"data", ev.Data)
	return nil
}

func (s *LogSink) Close() {}

// DefaultRedisTimeout bounds a single stream append.
const DefaultRedisTimeout = 2 * time.Second

// RedisSink appends events to a Redis stream for external indexers. Each
// stream entry carries the event envelope fields plus the payload as JSON.
type RedisSink struct {
	client  redis.Cmdable
	stream  string
	maxLen  int64
	timeout time.Duration
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithStreamMaxLen trims the stream to at most n entries on every append.
func WithStreamMaxLen(n int64) RedisOption {
	return func(s *RedisSink) {
		s.maxLen = n
	}
}

// WithRedisTimeout sets the per-append timeout.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(s *RedisSink) {
		s.timeout = d
	}
}

// NewRedisSink creates a sink appending to stream. The client is owned by
// the caller.
func NewRedisSink(client redis.Cmdable, stream string, opts ...RedisOption) *RedisSink {
	s := &RedisSink{
		client:  client,
		stream:  stream,
		timeout: DefaultRedisTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisSink) Deliver(ev ir.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", ev.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: s.stream,
		ID:     "*",
		MaxLen: s.maxLen,
		Values: map[string]any{
			"seq":        ev.Seq,
			"id":         ev.ID,
			"type":       string(ev.Type),
			"caller":     string(ev.Caller),
			"timestamp":  ev.Timestamp,
			"flow_token": ev.FlowToken,
			"data":       string(data),
		},
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisSink) Close() {}

// DecodeStreamEntry converts a stream entry written by RedisSink back into
// an event.
func DecodeStreamEntry(msg redis.XMessage) (ir.Event, error) {
	str := func(k string) string {
		v, _ := msg.Values[k].(string)
		return v
	}
	var (
		ev  ir.Event
		err error
	)
	if ev.Seq, err = strconv.ParseInt(str("seq"), 10, 64); err != nil {
		return ir.Event{}, fmt.Errorf("entry %s: seq: %w", msg.ID, err)
	}
	if ev.Timestamp, err = strconv.ParseInt(str("timestamp"), 10, 64); err != nil {
		return ir.Event{}, fmt.Errorf("entry %s: timestamp: %w", msg.ID, err)
	}
	ev.ID = str("id")
	ev.Type = ir.EventType(str("type"))
	ev.Caller = ir.Identity(str("caller"))
	ev.FlowToken = str("flow_token")

	data, err := ir.DecodePayload(ev.Type, []byte(str("data")))
	if err != nil {
		return ir.Event{}, fmt.Errorf("entry %s: %w", msg.ID, err)
	}
	ev.Data = data
	return ev, nil
}
