package saga

import "fmt"

// Input is a step argument that is either known when the step is built or
// resolved from an earlier step's result when the step executes.
type Input[T any] struct {
	resolve func() (T, error)
}

// Value binds an input that is already known.
func Value[T any](v T) Input[T] {
	return Input[T]{resolve: func() (T, error) { return v, nil }}
}

// ResultOf binds an input to the result p holds at the time it is resolved.
func ResultOf[T any](p Producer[T]) Input[T] {
	return Input[T]{resolve: func() (T, error) {
		v, ok := p.Result()
		if !ok {
			var zero T
			return zero, fmt.Errorf("%w: %s", ErrResultUnavailable, p.Name())
		}
		return v, nil
	}}
}

// Map binds an input to a projection of p's result.
func Map[S, T any](p Producer[S], fn func(S) (T, error)) Input[T] {
	src := ResultOf(p)
	return Input[T]{resolve: func() (T, error) {
		s, err := src.Resolve()
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(s)
	}}
}

// Resolve returns the bound value. Steps call it once, from Execute.
func (in Input[T]) Resolve() (T, error) {
	if in.resolve == nil {
		var zero T
		return zero, ErrNoInput
	}
	return in.resolve()
}
