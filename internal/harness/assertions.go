package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/reel/internal/engine"
	"github.com/roach88/reel/internal/ir"
)

// evaluate checks one assertion and returns a failure message, or "" if it
// holds.
func (h *Harness) evaluate(ctx context.Context, a Assertion) string {
	switch a.Type {
	case AssertEventCount:
		return h.assertEventCount(a)
	case AssertEventOrder:
		return h.assertEventOrder(a)
	case AssertEventContains:
		return h.assertEventContains(a)
	case AssertFinalState:
		return h.assertFinalState(ctx, a)
	}
	return fmt.Sprintf("unknown assertion type %q", a.Type)
}

func (h *Harness) assertEventCount(a Assertion) string {
	got := 0
	for _, ev := range h.result.Trace {
		if a.Event == "" || string(ev.Type) == a.Event {
			got++
		}
	}
	if got != a.Count {
		what := "events"
		if a.Event != "" {
			what = a.Event + " events"
		}
		return fmt.Sprintf("expected %d %s, got %d", a.Count, what, got)
	}
	return ""
}

// assertEventOrder verifies the listed types appear as a subsequence of the
// trace. Other events may be interleaved.
func (h *Harness) assertEventOrder(a Assertion) string {
	next := 0
	for _, ev := range h.result.Trace {
		if next < len(a.Events) && string(ev.Type) == a.Events[next] {
			next++
		}
	}
	if next < len(a.Events) {
		return fmt.Sprintf("expected order %v, missing %q at position %d (trace: %v)",
			a.Events, a.Events[next], next, traceTypes(h.result.Trace))
	}
	return ""
}

func (h *Harness) assertEventContains(a Assertion) string {
	for _, ev := range h.result.Trace {
		if string(ev.Type) != a.Event {
			continue
		}
		fields, err := recordFields(ev.Data)
		if err != nil {
			return err.Error()
		}
		if len(matchSubset("data", a.Data, fields)) == 0 {
			return ""
		}
	}
	return fmt.Sprintf("no %s event with data %v", a.Event, a.Data)
}

func (h *Harness) assertFinalState(ctx context.Context, a Assertion) string {
	record, err := h.lookup(ctx, a.Record, stepArgs(a.Key))
	if err != nil {
		if a.Missing && engine.CodeOf(err) == engine.CodeAccountNotFound {
			return ""
		}
		return err.Error()
	}
	if a.Missing {
		return fmt.Sprintf("expected %s %v to be missing", a.Record, a.Key)
	}

	fields, err := recordFields(record)
	if err != nil {
		return err.Error()
	}
	if v, ok := record.(ir.Video); ok {
		fields["status"] = string(v.Status())
	}
	if msgs := matchSubset(a.Record, a.Expect, fields); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return ""
}

// lookup reads the record named by kind and key through the engine.
func (h *Harness) lookup(ctx context.Context, kind string, key stepArgs) (any, error) {
	switch ir.Kind(kind) {
	case ir.KindState:
		if err := key.only(); err != nil {
			return nil, err
		}
		return anyResult(h.eng.GetState(ctx))
	case ir.KindUser:
		if err := key.only("identity"); err != nil {
			return nil, err
		}
		id := key.str("identity")
		if id == "" {
			return nil, &argError{`missing key "identity"`}
		}
		return anyResult(h.eng.GetUser(ctx, ir.Identity(id)))
	case ir.KindVideo:
		if err := key.only("video"); err != nil {
			return nil, err
		}
		video, err := key.index("video")
		if err != nil {
			return nil, err
		}
		return anyResult(h.eng.GetVideo(ctx, video))
	case ir.KindComment:
		if err := key.only("video", "comment"); err != nil {
			return nil, err
		}
		video, err := key.index("video")
		if err != nil {
			return nil, err
		}
		comment, err := key.index("comment")
		if err != nil {
			return nil, err
		}
		return anyResult(h.eng.GetComment(ctx, video, comment))
	}
	return nil, &argError{fmt.Sprintf("unknown record %q", kind)}
}

func traceTypes(events []ir.Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = string(ev.Type)
	}
	return types
}

// recordFields flattens a record or payload to its JSON field map.
func recordFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return fields, nil
}

// matchSubset reports every key of want that is missing from got or holds
// a different value. Numbers compare by value regardless of their decoded
// type.
func matchSubset(path string, want, got map[string]any) []string {
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msgs []string
	for _, k := range keys {
		actual, ok := got[k]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("%s.%s: missing", path, k))
			continue
		}
		if !valuesEqual(want[k], actual) {
			msgs = append(msgs, fmt.Sprintf("%s.%s: expected %v, got %v", path, k, want[k], actual))
		}
	}
	return msgs
}

func valuesEqual(want, got any) bool {
	switch w := want.(type) {
	case nil:
		return got == nil
	case string:
		g, ok := got.(string)
		return ok && g == w
	case bool:
		g, ok := got.(bool)
		return ok && g == w
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !valuesEqual(w[i], g[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		g, ok := got.(map[string]any)
		return ok && len(matchSubset("", w, g)) == 0
	}
	wf, ok := toFloat(want)
	if !ok {
		return false
	}
	gf, ok := toFloat(got)
	return ok && wf == gf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
