package workflow

import (
	"context"
	"fmt"

	"github.com/BaSui01/courtflow/types"
	"go.uber.org/zap"
)

// LoopState is the lifecycle of one BoundedLoop run.
type LoopState string

const (
	LoopRunning        LoopState = "running"
	LoopCompletedEarly LoopState = "completed_early"
	LoopCompletedByCap LoopState = "completed_by_cap"
	LoopFailed         LoopState = "failed"
)

// LoopResult is the final state of a loop run.
type LoopResult struct {
	State      LoopState `json:"state"`
	Iterations int       `json:"iterations"`
	RaisedBy   string    `json:"raised_by,omitempty"`
}

// BoundedLoop re-runs its child until a task raises termination or the
// iteration cap is reached. The signal is checked only between iterations,
// so an iteration always runs to completion.
type BoundedLoop struct {
	name          string
	maxIterations int
	child         Composer
}

// NewBoundedLoop creates a loop; maxIterations must be positive.
func NewBoundedLoop(name string, maxIterations int, child Composer) (*BoundedLoop, error) {
	if maxIterations <= 0 {
		return nil, types.Errorf(types.ErrInvalidConfig, "max iterations must be positive, got %d", maxIterations).
			WithComponent(name)
	}
	if child == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "loop body is nil").WithComponent(name)
	}
	return &BoundedLoop{name: name, maxIterations: maxIterations, child: child}, nil
}

func (l *BoundedLoop) Name() string { return l.name }

// MaxIterations returns the cap.
func (l *BoundedLoop) MaxIterations() int { return l.maxIterations }

func (l *BoundedLoop) Run(ctx context.Context, rc *RunContext) error {
	_, err := l.Execute(ctx, rc)
	return err
}

// Execute runs the loop and returns its final state. The result is also
// recorded on the run report under the loop's path.
func (l *BoundedLoop) Execute(ctx context.Context, rc *RunContext) (LoopResult, error) {
	var result LoopResult
	err := rc.track(ctx, NodeLoop, func(ctx context.Context) error {
		var err error
		result, err = l.iterate(ctx, rc)
		return err
	})

	rc.env.recordLoop(rc.path, result)
	rc.env.observer.LoopFinished(rc.path, result)
	emitEvent(ctx, WorkflowStreamEvent{
		Type:      WorkflowEventLoopFinished,
		NodeID:    rc.path,
		NodeType:  NodeLoop,
		Iteration: result.Iterations,
		Data:      result,
	})
	rc.Logger().Info("loop finished",
		zap.String("state", string(result.State)),
		zap.Int("iterations", result.Iterations),
		zap.String("raised_by", result.RaisedBy))
	return result, err
}

func (l *BoundedLoop) iterate(ctx context.Context, rc *RunContext) (LoopResult, error) {
	sig := newTerminationSignal()
	result := LoopResult{State: LoopRunning}

	for i := 0; i < l.maxIterations; i++ {
		select {
		case <-ctx.Done():
			result.State = LoopFailed
			return result, ctx.Err()
		default:
		}

		result.Iterations = i + 1
		rc.env.observer.LoopIteration(rc.path, i)

		if err := l.child.Run(ctx, rc.withLoop(sig, i).enter(l.child.Name())); err != nil {
			result.State = LoopFailed
			return result, types.Errorf(types.ErrCompositionFailure, "iteration %d failed", i+1).
				WithComponent(l.name).
				WithCause(err)
		}

		if sig.Raised() {
			by, _ := sig.RaisedBy()
			result.State = LoopCompletedEarly
			result.RaisedBy = by
			return result, nil
		}
	}

	result.State = LoopCompletedByCap
	return result, nil
}

func (r LoopResult) String() string {
	return fmt.Sprintf("%s after %d iterations", r.State, r.Iterations)
}
