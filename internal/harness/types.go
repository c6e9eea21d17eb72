package harness

import (
	"github.com/roach88/reel/internal/ir"
)

// StepResult records the outcome of one applied step.
type StepResult struct {
	Phase  string `json:"phase"` // "setup" or "flow"
	Index  int    `json:"index"`
	Op     string `json:"op"`
	Caller string `json:"caller"`
	// Code is the rejection code, empty on success.
	Code string `json:"code,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Steps lists every applied step in order, repeats included.
	Steps []StepResult `json:"steps"`

	// Trace contains the committed events in order.
	Trace []ir.Event `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Scenario: name,
		Pass:     true,
		Steps:    []StepResult{},
		Trace:    []ir.Event{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
