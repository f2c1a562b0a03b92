package saga

import (
	"errors"
	"fmt"
)

// OutcomeStatus classifies the result of a compensation attempt.
type OutcomeStatus int

const (
	// OutcomeSkipped means there was nothing to undo.
	OutcomeSkipped OutcomeStatus = iota
	// OutcomeSucceeded means the step's effect was undone.
	OutcomeSucceeded
	// OutcomeIrreversible means the step has no modeled compensation and only logged.
	OutcomeIrreversible
	// OutcomeFailed means the undo was attempted and failed.
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeIrreversible:
		return "irreversible"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeStatus(%d)", int(s))
	}
}

// Outcome is what a Step reports back from Rollback.
type Outcome struct {
	Step   string
	Status OutcomeStatus
	Reason error
}

func Compensated(step string) Outcome { return Outcome{Step: step, Status: OutcomeSucceeded} }

func Skipped(step string) Outcome { return Outcome{Step: step, Status: OutcomeSkipped} }

func Irreversible(step string, reason error) Outcome {
	return Outcome{Step: step, Status: OutcomeIrreversible, Reason: reason}
}

func Failed(step string, reason error) Outcome {
	return Outcome{Step: step, Status: OutcomeFailed, Reason: reason}
}

// IsFailure reports whether the compensation was attempted and did not succeed.
func (o Outcome) IsFailure() bool { return o.Status == OutcomeFailed }

// Report lists compensation outcomes in the order they were attempted.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Failures returns the outcomes whose compensation failed.
func (r Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.IsFailure() {
			failed = append(failed, o)
		}
	}
	return failed
}

func (r Report) HasFailures() bool {
	for _, o := range r.Outcomes {
		if o.IsFailure() {
			return true
		}
	}
	return false
}

// Err joins the reasons of every failed compensation, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Failures() {
		errs = append(errs, fmt.Errorf("compensate step %q: %w", o.Step, o.Reason))
	}
	return errors.Join(errs...)
}

// Outcome collapses the report into a single outcome attributed to name.
// Any failure wins; otherwise the composite counts as compensated if any inner step was.
func (r Report) Outcome(name string) Outcome {
	if err := r.Err(); err != nil {
		return Failed(name, err)
	}
	for _, o := range r.Outcomes {
		if o.Status == OutcomeSucceeded || o.Status == OutcomeIrreversible {
			return Compensated(name)
		}
	}
	return Skipped(name)
}
