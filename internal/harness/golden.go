package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reel/internal/ir"
)

// RenderTrace serializes a trace as canonical JSON lines: a header object
// naming the scenario, then one object per event. Event IDs are left out
// so the golden files stay readable; they are a pure function of the
// fields that are kept.
func RenderTrace(name string, trace []ir.Event) ([]byte, error) {
	var buf bytes.Buffer
	header, err := ir.MarshalCanonical(ir.Object{
		"scenario": ir.String(name),
		"events":   ir.Int(len(trace)),
	})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for i, ev := range trace {
		line, err := ir.MarshalCanonical(traceObject(ev))
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func traceObject(ev ir.Event) ir.Object {
	obj := ir.Object{
		"seq":       ir.Int(ev.Seq),
		"type":      ir.String(ev.Type),
		"caller":    ir.String(ev.Caller),
		"flow":      ir.String(ev.FlowToken),
		"timestamp": ir.Int(ev.Timestamp),
	}
	if ev.Data != nil {
		obj["data"] = ev.Data.Fields()
	}
	return obj
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be executed. Trace mismatches
// fail t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := RenderTrace(name, result.Trace)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
