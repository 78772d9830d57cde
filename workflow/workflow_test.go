package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/courtflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func appendTask(name string, field Field, value string) Task {
	return NewFuncTask(name, Allow(OpAppendField).Writing(field), func(ctx context.Context, tc *TaskContext) (Outcome, error) {
		_, err := tc.Do(ctx, AppendField{Field: field, Value: value})
		return Continue(), err
	})
}

func failingTask(name string, err error) Task {
	return NewFuncTask(name, Policy{}, func(ctx context.Context, tc *TaskContext) (Outcome, error) {
		return Continue(), err
	})
}

func runTree(t *testing.T, root Composer, opts ...Option) (*RunReport, error) {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewEngine(opts...).Run(context.Background(), root, "input")
}

func TestSequential_RunsInOrder(t *testing.T) {
	root := NewSequential("chain",
		Step(appendTask("step1", FieldPositiveEvidence, "a")),
		Step(appendTask("step2", FieldPositiveEvidence, "b")),
		Step(appendTask("step3", FieldPositiveEvidence, "c")),
	)

	report, err := runTree(t, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, report.State.PositiveEvidence)
	assert.Equal(t, "chain", report.Workflow)
	assert.NotEmpty(t, report.RunID)
}

func TestSequential_LaterStepSeesEarlierWrites(t *testing.T) {
	var seen []string
	reader := NewFuncTask("reader", Policy{}, func(ctx context.Context, tc *TaskContext) (Outcome, error) {
		seen = tc.State().Strings(FieldNegativeEvidence)
		return Continue(), nil
	})

	root := NewSequential("chain",
		Step(appendTask("writer", FieldNegativeEvidence, "x")),
		Step(reader),
	)

	_, err := runTree(t, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, seen)
}

func TestSequential_StepError(t *testing.T) {
	boom := errors.New("step2 failed")
	executed := false
	step3 := NewFuncTask("step3", Policy{}, func(ctx context.Context, tc *TaskContext) (Outcome, error) {
		executed = true
		return Continue(), nil
	})

	root := NewSequential("chain",
		Step(appendTask("step1", FieldPositiveEvidence, "a")),
		Step(failingTask("step2", boom)),
		Step(step3),
	)

	report, err := runTree(t, root)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, types.ErrCompositionFailure, types.GetErrorCode(err))
	assert.Equal(t, "[COMPOSITION_FAILURE] chain: step 2 (step2) failed: step2 failed", err.Error())
	assert.False(t, executed, "step3 must not run after a failure")

	// Writes before the failure stay visible.
	require.NotNil(t, report)
	assert.Equal(t, []string{"a"}, report.State.PositiveEvidence)
	assert.Equal(t, ExecutionStatusFailed, report.History.Status)
}

func TestSequential_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	step1 := NewFuncTask("step1", Policy{}, func(ctx context.Context, tc *TaskContext) (Outcome, error) {
		cancel()
		return Continue(), nil
	})
	step2Ran := false
	step2 := NewFuncTask("step2", Policy{}, func(ctx context.Context, tc *TaskContext) (Outcome, error) {
		step2Ran = true
		return Continue(), nil
	})

	_, err := NewEngine().Run(ctx, NewSequential("chain", Step(step1), Step(step2)), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, step2Ran)
}

func TestSequential_EmptyIsNoop(t *testing.T) {
	report, err := runTree(t, NewSequential("empty"))
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, report.History.Status)
}

func TestNestedPaths_RecordedInHistory(t *testing.T) {
	root := NewSequential("outer",
		NewSequential("inner", Step(appendTask("leaf", FieldPositiveEvidence, "a"))),
	)

	report, err := runTree(t, root)
	require.NoError(t, err)

	leaf := report.History.GetNodesByID("outer/inner/leaf")
	require.Len(t, leaf, 1)
	assert.Equal(t, NodeTask, leaf[0].NodeType)
	assert.Equal(t, ExecutionStatusCompleted, leaf[0].Status)
	assert.Equal(t, -1, leaf[0].Iteration)
	assert.Equal(t, 3, report.History.CountByStatus()[ExecutionStatusCompleted])

	var ids []string
	for _, n := range report.History.GetNodes() {
		ids = append(ids, n.NodeID)
	}
	assert.Equal(t, []string{"outer", "outer/inner", "outer/inner/leaf"}, ids)
}

func TestWorkflowStreamEmitter_ReceivesEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		events []WorkflowStreamEvent
	)
	ctx := WithWorkflowStreamEmitter(context.Background(), func(ev WorkflowStreamEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	root := NewSequential("chain", Step(appendTask("a", FieldPositiveEvidence, "x")))
	_, err := NewEngine().Run(ctx, root, "")
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, WorkflowEventNodeStart, events[0].Type)
	assert.Equal(t, "chain", events[0].NodeID)
	assert.Equal(t, WorkflowEventNodeStart, events[1].Type)
	assert.Equal(t, "chain/a", events[1].NodeID)
	assert.Equal(t, WorkflowEventNodeComplete, events[2].Type)
	assert.Equal(t, WorkflowEventNodeComplete, events[3].Type)
}

func TestWithWorkflowStreamEmitter_NilEmitter(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithWorkflowStreamEmitter(ctx, nil))
}

func TestEngine_NilRoot(t *testing.T) {
	_, err := NewEngine().Run(context.Background(), nil, "")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
}

type recordingObserver struct {
	NopObserver
	mu       sync.Mutex
	started  []string
	finished map[string]error
	loops    map[string]LoopResult
	runs     int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{finished: map[string]error{}, loops: map[string]LoopResult{}}
}

func (o *recordingObserver) TaskStarted(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, path)
}

func (o *recordingObserver) TaskFinished(path string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[path] = err
}

func (o *recordingObserver) LoopFinished(path string, result LoopResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loops[path] = result
}

func (o *recordingObserver) RunFinished(string, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
}

func TestEngine_ObserverCallbacks(t *testing.T) {
	obs := newRecordingObserver()
	boom := errors.New("boom")
	root := NewSequential("chain",
		Step(appendTask("ok", FieldPositiveEvidence, "a")),
		Step(failingTask("bad", boom)),
	)

	_, err := runTree(t, root, WithObserver(obs))
	require.Error(t, err)

	assert.Equal(t, []string{"chain/ok", "chain/bad"}, obs.started)
	assert.NoError(t, obs.finished["chain/ok"])
	assert.ErrorIs(t, obs.finished["chain/bad"], boom)
	assert.Equal(t, 1, obs.runs)
}
