package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reel/internal/engine"
	"github.com/roach88/reel/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the store: "sqlite" (default) or "badger". Both run
	// in memory.
	Backend string `yaml:"backend,omitempty"`

	// Setup steps must all succeed. They establish initial state.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are checked against their expect clauses.
	Flow []Step `yaml:"flow"`

	// Assertions validate the emitted events and final records.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step applies one operation.
type Step struct {
	// Op is the operation name, e.g. "LikeVideo".
	Op string `yaml:"op"`

	// As is the caller identity.
	As string `yaml:"as"`

	// Args holds the operation inputs by field name.
	Args map[string]any `yaml:"args,omitempty"`

	// Repeat applies the step this many times (default once).
	Repeat int `yaml:"repeat,omitempty"`

	// Expect is the required outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies a step outcome.
type Expect struct {
	// Error is the required error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Kind optionally pins the error kind as well.
	Kind string `yaml:"kind,omitempty"`

	// Result is a subset of the returned record's fields.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates events or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is an event type (event_count, event_contains). Empty counts
	// every event.
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected relative order of event types (event_order).
	Events []string `yaml:"events,omitempty"`

	// Data is a payload subset (event_contains).
	Data map[string]any `yaml:"data,omitempty"`

	// Record is state, user, video or comment (final_state).
	Record string `yaml:"record,omitempty"`

	// Key locates the record: identity for users, video and comment
	// indices for videos and comments (final_state).
	Key map[string]any `yaml:"key,omitempty"`

	// Expect is a subset of the record's fields (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Missing asserts the record does not exist (final_state).
	Missing bool `yaml:"missing,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertEventContains = "event_contains"
	AssertFinalState    = "final_state"
)

var recordKinds = []string{
	string(ir.KindState),
	string(ir.KindUser),
	string(ir.KindVideo),
	string(ir.KindComment),
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Backend {
	case "", "sqlite", "badger":
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			return fmt.Errorf("setup[%d]: setup steps cannot expect an error", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if !slices.Contains(engine.Operations, step.Op) {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Repeat < 0 {
		return fmt.Errorf("repeat must be non-negative")
	}
	if step.Expect != nil && step.Expect.Kind != "" && step.Expect.Error == "" {
		return fmt.Errorf("expect.kind requires expect.error")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for event_count")
		}
		return validateEventType(a.Event, true)
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("events list is required for event_order")
		}
		for _, e := range a.Events {
			if err := validateEventType(e, false); err != nil {
				return err
			}
		}
	case AssertEventContains:
		if err := validateEventType(a.Event, false); err != nil {
			return err
		}
	case AssertFinalState:
		if !slices.Contains(recordKinds, a.Record) {
			return fmt.Errorf("record must be one of %v", recordKinds)
		}
		if len(a.Expect) == 0 && !a.Missing {
			return fmt.Errorf("expect or missing is required for final_state")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func validateEventType(t string, allowEmpty bool) error {
	if t == "" && allowEmpty {
		return nil
	}
	if !slices.Contains(ir.EventTypes, ir.EventType(t)) {
		return fmt.Errorf("unknown event type %q", t)
	}
	return nil
}
