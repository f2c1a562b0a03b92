package saga

import (
	"context"
	"errors"
)

// Step is a single unit of externally-effecting work paired with a best-effort undo.
//
// Rollback must tolerate being called when Execute never ran or already rolled back,
// in which case it does nothing and reports OutcomeSkipped. Compensation failures are
// returned as an Outcome and never as an error, so an unwinding coordinator is not
// aborted by a single step that cannot compensate.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Rollback(ctx context.Context) Outcome
}

// Producer is a Step that exposes a typed result once it has executed successfully.
type Producer[T any] interface {
	Step
	Result() (T, bool)
}

// Func adapts a pair of closures into a Step.
type Func struct {
	StepName string
	Do       func(ctx context.Context) error
	Undo     func(ctx context.Context) error

	done bool
}

var _ Step = (*Func)(nil)

func (f *Func) Name() string { return f.StepName }

func (f *Func) Execute(ctx context.Context) error {
	if f.Do != nil {
		if err := f.Do(ctx); err != nil {
			return err
		}
	}
	f.done = true
	return nil
}

func (f *Func) Rollback(ctx context.Context) Outcome {
	if !f.done || f.Undo == nil {
		return Skipped(f.StepName)
	}
	if err := f.Undo(ctx); err != nil {
		return Failed(f.StepName, err)
	}
	f.done = false
	return Compensated(f.StepName)
}

var (
	// ErrResultUnavailable is returned when a deferred input is resolved before its producer has a result.
	ErrResultUnavailable = errors.New("step result unavailable")
	// ErrNoInput is returned when a zero Input is resolved.
	ErrNoInput = errors.New("step input not bound")
)
