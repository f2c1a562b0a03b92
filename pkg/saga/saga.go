// Package saga implements sequential compensating transactions: steps are executed
// in order and, if one fails, the steps that already committed are compensated in
// reverse order. It gives no atomicity or isolation guarantees; it only fixes the
// compensation order and reports compensations that could not be carried out.
package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/cassiomorais/storefront/pkg/saga")

// State is the lifecycle state of a Saga.
type State int

const (
	StatePending State = iota
	StateExecuting
	StateCommitted
	StateUnwinding
	StateUnwound
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExecuting:
		return "executing"
	case StateCommitted:
		return "committed"
	case StateUnwinding:
		return "unwinding"
	case StateUnwound:
		return "unwound"
	case StateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Saga orchestrates an ordered list of steps with automatic compensation on failure.
// A Saga is single-use: Execute must not be called twice on the same instance.
type Saga struct {
	name   string
	steps  []Step
	state  State
	report Report
}

var _ Step = (*Saga)(nil)

// New creates a saga over steps. The steps are held by reference.
func New(name string, steps ...Step) *Saga {
	return &Saga{name: name, steps: steps}
}

// AddStep appends a step to the saga.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

func (s *Saga) Name() string { return s.name }

func (s *Saga) Len() int { return len(s.steps) }

func (s *Saga) State() State { return s.state }

// Report returns the compensation report of the last unwind or rollback.
func (s *Saga) Report() Report { return s.report }

// Execute runs all steps sequentially.
// If a step fails, every step before it is compensated in reverse order and an
// *ExecutionError wrapping the original failure is returned.
func (s *Saga) Execute(ctx context.Context) error {
	s.state = StateExecuting
	logger := zerolog.Ctx(ctx).With().Str("saga", s.name).Logger()

	for i, step := range s.steps {
		if err := s.executeStep(ctx, step); err != nil {
			s.state = StateUnwinding
			logger.Warn().Err(err).Str("step", step.Name()).Int("index", i).Msg("Step failed, compensating completed steps")

			s.report = s.unwind(ctx, i-1)
			s.state = StateUnwound

			if s.report.HasFailures() {
				logger.Error().
					Err(s.report.Err()).
					Str("step", step.Name()).
					Int("failed_compensations", len(s.report.Failures())).
					Msg("Saga unwound with compensation failures, manual recovery required")
			}
			return &ExecutionError{
				Saga:   s.name,
				Step:   step.Name(),
				Index:  i,
				Err:    err,
				Report: s.report,
			}
		}
	}

	s.state = StateCommitted
	return nil
}

// Rollback compensates every step in reverse order. Steps that never executed are no-ops.
// Compensation ignores cancellation of ctx, like the unwind in Execute.
func (s *Saga) Rollback(ctx context.Context) Outcome {
	s.report = s.unwind(ctx, len(s.steps)-1)
	s.state = StateRolledBack
	return s.report.Outcome(s.name)
}

func (s *Saga) executeStep(ctx context.Context, step Step) error {
	ctx, span := tracer.Start(ctx, "saga.execute "+step.Name(), trace.WithAttributes(
		attribute.String("saga.name", s.name),
		attribute.String("saga.step", step.Name()),
	))
	defer span.End()

	if err := step.Execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// unwind compensates steps[from] down to steps[0]. The failure being unwound is often ctx's
// own deadline or cancellation, so compensations run on a context that keeps its values
// but can no longer be cancelled.
func (s *Saga) unwind(ctx context.Context, from int) Report {
	ctx = context.WithoutCancel(ctx)
	var report Report
	for i := from; i >= 0; i-- {
		report.add(s.compensateStep(ctx, s.steps[i]))
	}
	return report
}

func (s *Saga) compensateStep(ctx context.Context, step Step) Outcome {
	ctx, span := tracer.Start(ctx, "saga.compensate "+step.Name(), trace.WithAttributes(
		attribute.String("saga.name", s.name),
		attribute.String("saga.step", step.Name()),
	))
	defer span.End()

	out := step.Rollback(ctx)
	if out.Step == "" {
		out.Step = step.Name()
	}
	span.SetAttributes(attribute.String("saga.compensation", out.Status.String()))
	if out.IsFailure() {
		span.RecordError(out.Reason)
		span.SetStatus(codes.Error, "compensation failed")
	}
	return out
}

// ExecutionError is returned by Saga.Execute. It unwraps to the error of the failed step.
type ExecutionError struct {
	Saga   string
	Step   string
	Index  int
	Err    error
	Report Report
}

func (e *ExecutionError) Error() string {
	if failures := e.Report.Failures(); len(failures) > 0 {
		return fmt.Sprintf("saga %s: step %q failed (%v), compensation also failed: %v", e.Saga, e.Step, e.Err, e.Report.Err())
	}
	return fmt.Sprintf("saga %s: step %q failed: %v", e.Saga, e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// FailedCompensations collects the failed compensations of err and of any nested sagas it wraps.
func FailedCompensations(err error) []Outcome {
	var failed []Outcome
	for err != nil {
		var ee *ExecutionError
		if !errors.As(err, &ee) {
			break
		}
		failed = append(failed, ee.Report.Failures()...)
		err = ee.Err
	}
	return failed
}
