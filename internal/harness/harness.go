package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/reel/internal/engine"
	"github.com/roach88/reel/internal/ir"
	"github.com/roach88/reel/internal/store"
	"github.com/roach88/reel/internal/testutil"
)

// FlowPrefix prefixes the sequential flow tokens of scenario runs.
const FlowPrefix = "flow"

// Harness applies scenario steps to an engine over a fresh backend.
type Harness struct {
	eng    *engine.Engine
	result *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory backend for isolation. A non-nil
// error means the scenario could not be executed at all (bad arguments, a
// failing setup step, a storage failure); expectation and assertion
// failures are reported in Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	backend, err := openBackend(scenario.Backend)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	result := NewResult(scenario.Name)
	h := &Harness{result: result}
	h.eng = engine.New(backend,
		engine.WithClock(testutil.NewStepClock()),
		engine.WithFlowGenerator(testutil.NewSequenceFlowGenerator(FlowPrefix)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithEmitter(engine.EmitterFunc(func(ev ir.Event) {
			result.Trace = append(result.Trace, ev)
		})),
	)

	for i, step := range scenario.Setup {
		for range repeats(step) {
			if _, err := h.apply(ctx, "setup", i, step); err != nil {
				return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Op, err)
			}
		}
	}

	for i, step := range scenario.Flow {
		for r := range repeats(step) {
			label := fmt.Sprintf("flow[%d] %s as %q", i, step.Op, step.As)
			if step.Repeat > 1 {
				label = fmt.Sprintf("%s (repeat %d)", label, r+1)
			}
			out, err := h.apply(ctx, "flow", i, step)
			if err != nil && !engine.IsRejection(err) {
				return nil, fmt.Errorf("%s: %w", label, err)
			}
			h.checkExpect(label, step.Expect, out, err)
		}
	}

	for i, a := range scenario.Assertions {
		if msg := h.evaluate(ctx, a); msg != "" {
			result.AddError(fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}
	return result, nil
}

func openBackend(name string) (store.Backend, error) {
	switch name {
	case "", "sqlite":
		s, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return s, nil
	case "badger":
		s, err := store.OpenBadger("")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory badger store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

func repeats(step Step) int {
	return max(step.Repeat, 1)
}

// apply runs one step and records it. Rejections are returned as errors
// alongside a nil result.
func (h *Harness) apply(ctx context.Context, phase string, index int, step Step) (any, error) {
	out, err := h.dispatch(ctx, step)
	var argErr *argError
	if errors.As(err, &argErr) {
		return nil, err
	}
	h.result.Steps = append(h.result.Steps, StepResult{
		Phase:  phase,
		Index:  index,
		Op:     step.Op,
		Caller: step.As,
		Code:   string(engine.CodeOf(err)),
	})
	return out, err
}

func (h *Harness) dispatch(ctx context.Context, step Step) (any, error) {
	caller := ir.Identity(step.As)
	a := stepArgs(step.Args)
	if err := a.only(opArgs[step.Op]...); err != nil {
		return nil, err
	}

	switch step.Op {
	case engine.OpCreateState:
		return anyResult(h.eng.CreateState(ctx, caller))
	case engine.OpCreateUser:
		return anyResult(h.eng.CreateUser(ctx, caller, engine.CreateUserRequest{
			DisplayName: a.str("display_name"),
			ProfileURL:  a.str("profile_url"),
		}))
	case engine.OpCreateVideo:
		return anyResult(h.eng.CreateVideo(ctx, caller, engine.CreateVideoRequest{
			Description:        a.str("description"),
			MediaURL:           a.str("media_url"),
			CreatorDisplayName: a.str("creator_display_name"),
			CreatorURL:         a.str("creator_url"),
		}))
	case engine.OpCreateComment:
		video, err := a.index("video")
		if err != nil {
			return nil, err
		}
		return anyResult(h.eng.CreateComment(ctx, caller, engine.CreateCommentRequest{
			VideoIndex:           video,
			Text:                 a.str("text"),
			CommenterDisplayName: a.str("commenter_display_name"),
			CommenterURL:         a.str("commenter_url"),
		}))
	case engine.OpApprove, engine.OpDisapprove, engine.OpLikeVideo:
		video, err := a.index("video")
		if err != nil {
			return nil, err
		}
		switch step.Op {
		case engine.OpApprove:
			return anyResult(h.eng.Approve(ctx, caller, video))
		case engine.OpDisapprove:
			return anyResult(h.eng.Disapprove(ctx, caller, video))
		default:
			return anyResult(h.eng.LikeVideo(ctx, caller, video))
		}
	}
	return nil, &argError{fmt.Sprintf("unknown op %q", step.Op)}
}

func anyResult[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// checkExpect compares a step outcome with its expect clause.
func (h *Harness) checkExpect(label string, want *Expect, out any, err error) {
	if want == nil {
		want = &Expect{}
	}

	if want.Error == "" {
		if err != nil {
			h.result.AddError(fmt.Sprintf("%s: expected success, got %v", label, err))
			return
		}
		if len(want.Result) > 0 {
			fields, ferr := recordFields(out)
			if ferr != nil {
				h.result.AddError(fmt.Sprintf("%s: %v", label, ferr))
				return
			}
			for _, msg := range matchSubset("result", want.Result, fields) {
				h.result.AddError(fmt.Sprintf("%s: %s", label, msg))
			}
		}
		return
	}

	if err == nil {
		h.result.AddError(fmt.Sprintf("%s: expected error %s, got success", label, want.Error))
		return
	}
	if got := string(engine.CodeOf(err)); got != want.Error {
		h.result.AddError(fmt.Sprintf("%s: expected error %s, got %s", label, want.Error, got))
	}
	if want.Kind != "" {
		if got := string(engine.KindOf(err)); got != want.Kind {
			h.result.AddError(fmt.Sprintf("%s: expected error kind %s, got %s", label, want.Kind, got))
		}
	}
}

// opArgs lists the argument names each op accepts.
var opArgs = map[string][]string{
	engine.OpCreateState:   {},
	engine.OpCreateUser:    {"display_name", "profile_url"},
	engine.OpCreateVideo:   {"description", "media_url", "creator_display_name", "creator_url"},
	engine.OpCreateComment: {"video", "text", "commenter_display_name", "commenter_url"},
	engine.OpApprove:       {"video"},
	engine.OpDisapprove:    {"video"},
	engine.OpLikeVideo:     {"video"},
}

// argError reports malformed step arguments.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

type stepArgs map[string]any

func (a stepArgs) only(allowed ...string) error {
	for k := range a {
		if !slices.Contains(allowed, k) {
			return &argError{fmt.Sprintf("unknown arg %q (accepted: %v)", k, allowed)}
		}
	}
	return nil
}

// str returns the named argument as a string. A missing argument is empty.
func (a stepArgs) str(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (a stepArgs) index(key string) (uint64, error) {
	v, ok := a[key]
	if !ok {
		return 0, &argError{fmt.Sprintf("missing arg %q", key)}
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case uint64:
		return n, nil
	}
	return 0, &argError{fmt.Sprintf("arg %q must be a non-negative integer, got %v", key, v)}
}
