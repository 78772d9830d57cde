package workflow

import (
	"context"
	"maps"
	"time"

	"github.com/BaSui01/courtflow/internal/ctxkeys"
	"github.com/BaSui01/courtflow/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/BaSui01/courtflow/workflow"

// Observer receives lifecycle callbacks. Implementations must be safe for
// concurrent use; task callbacks fire from parallel branches.
type Observer interface {
	TaskStarted(path string)
	TaskFinished(path string, d time.Duration, err error)
	LoopIteration(path string, iteration int)
	LoopFinished(path string, result LoopResult)
	RunFinished(workflow string, d time.Duration, err error)
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) TaskStarted(string)                        {}
func (NopObserver) TaskFinished(string, time.Duration, error) {}
func (NopObserver) LoopIteration(string, int)                 {}
func (NopObserver) LoopFinished(string, LoopResult)           {}
func (NopObserver) RunFinished(string, time.Duration, error)  {}

// Engine owns SessionState and runs a composition tree against it.
type Engine struct {
	logger          *zap.Logger
	observer        Observer
	researcher      Researcher
	artifacts       ArtifactWriter
	tracer          trace.Tracer
	detectConflicts bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers lifecycle callbacks.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithResearcher sets the collaborator that serves Query operations.
func WithResearcher(r Researcher) Option {
	return func(e *Engine) { e.researcher = r }
}

// WithArtifactWriter sets the collaborator that serves WriteArtifact operations.
func WithArtifactWriter(w ArtifactWriter) Option {
	return func(e *Engine) { e.artifacts = w }
}

// WithConflictDetection makes Parallel fail when two branches write the
// same field. Intended for debugging compositions.
func WithConflictDetection(enabled bool) Option {
	return func(e *Engine) { e.detectConflicts = enabled }
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:   zap.NewNop(),
		observer: NopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "workflow_engine"))
	return e
}

// RunReport summarizes one run. It is returned even when the run fails.
type RunReport struct {
	RunID    string                `json:"run_id"`
	Workflow string                `json:"workflow"`
	Input    string                `json:"input"`
	State    Snapshot              `json:"state"`
	Loops    map[string]LoopResult `json:"loops"`
	History  *ExecutionHistory     `json:"history"`
	Duration time.Duration         `json:"duration"`
}

// Loop returns the result of the loop at path.
func (r *RunReport) Loop(path string) (LoopResult, bool) {
	res, ok := r.Loops[path]
	return res, ok
}

// Run executes root with a fresh SessionState.
func (e *Engine) Run(ctx context.Context, root Composer, input string) (*RunReport, error) {
	if root == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "root composer is nil").WithComponent("workflow_engine")
	}

	runID := uuid.NewString()
	ctx = ctxkeys.WithRunID(ctx, runID)
	env := &runEnv{
		runID:           runID,
		input:           input,
		state:           NewSessionState(),
		logger:          e.logger.With(zap.String("run_id", runID)),
		observer:        e.observer,
		researcher:      e.researcher,
		artifacts:       e.artifacts,
		history:         NewExecutionHistory(runID, root.Name()),
		tracer:          e.tracer,
		detectConflicts: e.detectConflicts,
		loops:           make(map[string]LoopResult),
	}
	rc := (&RunContext{env: env, iteration: -1}).enter(root.Name())

	env.logger.Info("run started", zap.String("workflow", root.Name()))
	start := time.Now()

	err := root.Run(ctx, rc)

	elapsed := time.Since(start)
	env.history.Complete(err)
	e.observer.RunFinished(root.Name(), elapsed, err)

	env.mu.Lock()
	loops := maps.Clone(env.loops)
	env.mu.Unlock()

	report := &RunReport{
		RunID:    runID,
		Workflow: root.Name(),
		Input:    input,
		State:    env.state.Snapshot(),
		Loops:    loops,
		History:  env.history,
		Duration: elapsed,
	}

	if err != nil {
		env.logger.Error("run failed", zap.Duration("duration", elapsed), zap.Error(err))
		return report, err
	}
	env.logger.Info("run completed", zap.Duration("duration", elapsed))
	return report, nil
}
