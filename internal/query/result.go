package query

import (
	"time"
)

// State is the lifecycle of one query.
type State int

const (
	Idle State = iota
	// Disabled means a precondition (an id, a session token) is missing and no
	// request was issued. It is not an error.
	Disabled
	Loading
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Disabled:
		return "disabled"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of a query at a point in time.
type Result[T any] struct {
	State     State
	Data      T
	Err       error
	UpdatedAt time.Time
	// Stale is set when a mutation invalidated the query after Data was read.
	Stale bool
}

func DisabledResult[T any]() Result[T] {
	return Result[T]{State: Disabled}
}

func Settled[T any](data T, err error) Result[T] {
	if err != nil {
		return Result[T]{State: Error, Err: err, UpdatedAt: time.Now()}
	}
	return Result[T]{State: Success, Data: data, UpdatedAt: time.Now()}
}

func (r Result[T]) IsDisabled() bool { return r.State == Disabled }

func (r Result[T]) IsLoading() bool { return r.State == Loading }

func (r Result[T]) IsSuccess() bool { return r.State == Success }

func (r Result[T]) IsError() bool { return r.State == Error }
