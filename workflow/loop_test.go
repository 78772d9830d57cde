package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/courtflow/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// terminateAt raises termination in iteration stopAt (0-based); -1 never.
func terminateAt(stopAt int, calls *int) Task {
	return NewFuncTask("judge", Allow(OpRaiseTermination), func(ctx context.Context, tc *TaskContext) (Outcome, error) {
		*calls++
		if tc.Iteration() == stopAt {
			return Terminate(), nil
		}
		return Continue(), nil
	})
}

func mustLoop(t *testing.T, name string, limit int, child Composer) *BoundedLoop {
	t.Helper()
	loop, err := NewBoundedLoop(name, limit, child)
	require.NoError(t, err)
	return loop
}

func TestNewBoundedLoop_InvalidMax(t *testing.T) {
	for _, limit := range []int{0, -1} {
		_, err := NewBoundedLoop("trial", limit, Step(failingTask("x", nil)))
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
	}
}

func TestBoundedLoop_CompletedByCap(t *testing.T) {
	calls := 0
	loop := mustLoop(t, "trial", 6, Step(terminateAt(-1, &calls)))

	report, err := runTree(t, loop)
	require.NoError(t, err)
	assert.Equal(t, 6, calls)

	res, ok := report.Loop("trial")
	require.True(t, ok)
	assert.Equal(t, LoopCompletedByCap, res.State)
	assert.Equal(t, 6, res.Iterations)
}

func TestBoundedLoop_CompletedEarly(t *testing.T) {
	calls := 0
	loop := mustLoop(t, "trial", 6, Step(terminateAt(1, &calls)))

	report, err := runTree(t, loop)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	res, _ := report.Loop("trial")
	assert.Equal(t, LoopCompletedEarly, res.State)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, "trial/judge", res.RaisedBy)
}

func TestBoundedLoop_IterationFinishesAfterRaise(t *testing.T) {
	// The signal is only checked between iterations: a task that follows the
	// raising task in the same iteration still runs.
	calls := 0
	afterRan := 0
	after := NewFuncTask("after", Policy{}, func(ctx context.Context, tc *TaskContext) (Outcome, error) {
		afterRan++
		return Continue(), nil
	})
	body := NewSequential("round", Step(terminateAt(0, &calls)), Step(after))
	loop := mustLoop(t, "trial", 3, body)

	report, err := runTree(t, loop)
	require.NoError(t, err)
	assert.Equal(t, 1, afterRan)
	res, _ := report.Loop("trial")
	assert.Equal(t, LoopCompletedEarly, res.State)
	assert.Equal(t, "trial/round/judge", res.RaisedBy)
}

func TestBoundedLoop_DoubleRaiseIsViolation(t *testing.T) {
	raiser := func(name string) Composer {
		return Step(NewFuncTask(name, Allow(OpRaiseTermination), func(ctx context.Context, tc *TaskContext) (Outcome, error) {
			return Terminate(), nil
		}))
	}
	loop := mustLoop(t, "trial", 3, NewSequential("round", raiser("a"), raiser("b")))

	report, err := runTree(t, loop)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrTaskContractViolation))
	res, _ := report.Loop("trial")
	assert.Equal(t, LoopFailed, res.State)
}

func TestBoundedLoop_FailurePropagates(t *testing.T) {
	boom := errors.New("judge crashed")
	calls := 0
	body := NewSequential("round",
		Step(terminateAt(-1, &calls)),
		Step(NewFuncTask("flaky", Policy{}, func(ctx context.Context, tc *TaskContext) (Outcome, error) {
			if tc.Iteration() == 2 {
				return Continue(), boom
			}
			return Continue(), nil
		})),
	)
	loop := mustLoop(t, "trial", 6, body)

	report, err := runTree(t, loop)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "iteration 3 failed")

	res, _ := report.Loop("trial")
	assert.Equal(t, LoopFailed, res.State)
	assert.Equal(t, 3, res.Iterations)
}

func TestBoundedLoop_FreshSignalPerRun(t *testing.T) {
	calls := 0
	loop := mustLoop(t, "trial", 4, Step(terminateAt(0, &calls)))
	engine := NewEngine()

	for i := 0; i < 2; i++ {
		report, err := engine.Run(context.Background(), loop, "")
		require.NoError(t, err)
		res, _ := report.Loop("trial")
		assert.Equal(t, LoopCompletedEarly, res.State)
		assert.Equal(t, 1, res.Iterations)
	}
	assert.Equal(t, 2, calls)
}

func TestBoundedLoop_NestedSignalsAreIndependent(t *testing.T) {
	innerCalls, outerCalls := 0, 0
	inner := mustLoop(t, "inner", 5, Step(terminateAt(0, &innerCalls)))
	outer := mustLoop(t, "outer", 3, NewSequential("round", inner, Step(terminateAt(-1, &outerCalls))))

	report, err := runTree(t, outer)
	require.NoError(t, err)

	res, _ := report.Loop("outer")
	assert.Equal(t, LoopCompletedByCap, res.State)
	assert.Equal(t, 3, res.Iterations)
	innerRes, ok := report.Loop("outer/round/inner")
	require.True(t, ok)
	assert.Equal(t, LoopCompletedEarly, innerRes.State)
	assert.Equal(t, 3, innerCalls)
}

func TestBoundedLoop_ObserverSeesFinalState(t *testing.T) {
	obs := newRecordingObserver()
	calls := 0
	loop := mustLoop(t, "trial", 2, Step(terminateAt(-1, &calls)))

	_, err := runTree(t, loop, WithObserver(obs))
	require.NoError(t, err)
	assert.Equal(t, LoopResult{State: LoopCompletedByCap, Iterations: 2}, obs.loops["trial"])
}

func TestBoundedLoop_HistoryPerIteration(t *testing.T) {
	calls := 0
	loop := mustLoop(t, "trial", 3, Step(terminateAt(-1, &calls)))

	report, err := runTree(t, loop)
	require.NoError(t, err)

	nodes := report.History.GetNodesByID("trial/judge")
	require.Len(t, nodes, 3)
	for i, n := range nodes {
		assert.Equal(t, i, n.Iteration)
	}
}

// Iterations never exceed the cap; early completion happens exactly at the
// iteration that raised.
func TestProperty_LoopIterationBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("loop stops at the raising iteration or the cap", prop.ForAll(
		func(limit int, stopAt int) bool {
			calls := 0
			loop, err := NewBoundedLoop("trial", limit, Step(terminateAt(stopAt, &calls)))
			if err != nil {
				return false
			}
			report, err := NewEngine().Run(context.Background(), loop, "")
			if err != nil {
				return false
			}
			res, ok := report.Loop("trial")
			if !ok || res.Iterations > limit || calls != res.Iterations {
				return false
			}
			if stopAt < limit {
				return res.State == LoopCompletedEarly && res.Iterations == stopAt+1
			}
			return res.State == LoopCompletedByCap && res.Iterations == limit
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 12),
	))

	properties.TestingRun(t)
}
