package view

import (
	"context"
	"fmt"
)

// Stage names the step of Bootstrap that failed.
type Stage string

const (
	StageLoad     Stage = "load"
	StagePath     Stage = "path"
	StagePickPath Stage = "pick-path"
)

// FlowError is returned by Bootstrap. The view keeps whatever state the
// earlier stages produced: a path failure leaves it loaded but unpathed.
type FlowError struct {
	Stage Stage
	Err   error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }

// Bootstrap loads the warehouse and then requests the route described by p:
// a pick path when p carries items, a point-to-point path otherwise. Each
// step waits for the previous one; the first failure stops the chain.
func (v *View) Bootstrap(ctx context.Context, p Params) error {
	if err := v.Load(ctx); err != nil {
		return &FlowError{Stage: StageLoad, Err: err}
	}

	if p.PickFlow() {
		if err := v.FindPickPath(ctx, p.Source, p.Destination, p.Items); err != nil {
			return &FlowError{Stage: StagePickPath, Err: err}
		}
		return nil
	}

	if p.Destination == nil {
		return &FlowError{Stage: StagePath, Err: fmt.Errorf("%w: destination is required", ErrInvalidParams)}
	}
	if err := v.FindPath(ctx, p.Source, *p.Destination); err != nil {
		return &FlowError{Stage: StagePath, Err: err}
	}
	return nil
}
