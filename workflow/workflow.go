package workflow

import (
	"context"
	"sync"

	"github.com/BaSui01/courtflow/internal/ctxkeys"
	"github.com/BaSui01/courtflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Composer is a control-flow node: a task adapter or a combinator over
// other composers. Run executes against the run's shared SessionState.
type Composer interface {
	Name() string
	Run(ctx context.Context, rc *RunContext) error
}

// runEnv is shared by every RunContext of one run.
type runEnv struct {
	runID           string
	input           string
	state           *SessionState
	logger          *zap.Logger
	observer        Observer
	researcher      Researcher
	artifacts       ArtifactWriter
	history         *ExecutionHistory
	tracer          trace.Tracer
	detectConflicts bool

	mu    sync.Mutex
	loops map[string]LoopResult
}

func (e *runEnv) recordLoop(path string, result LoopResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loops[path] = result
}

// RunContext is the handle a composer receives: the shared run environment
// plus its position in the composition tree.
type RunContext struct {
	env       *runEnv
	path      string
	signal    *TerminationSignal
	iteration int
	writeSets []*writeSet
}

// enter returns the context for a child node named name.
func (rc *RunContext) enter(name string) *RunContext {
	child := *rc
	if rc.path == "" {
		child.path = name
	} else {
		child.path = rc.path + "/" + name
	}
	return &child
}

func (rc *RunContext) withWriteSet(ws *writeSet) *RunContext {
	child := *rc
	child.writeSets = append(append([]*writeSet(nil), rc.writeSets...), ws)
	return &child
}

func (rc *RunContext) withLoop(sig *TerminationSignal, iteration int) *RunContext {
	child := *rc
	child.signal = sig
	child.iteration = iteration
	return &child
}

// Path is the slash-separated position of the node, e.g.
// "historical_court/court_trial/trial_round/judge".
func (rc *RunContext) Path() string { return rc.path }

// RunID identifies the run.
func (rc *RunContext) RunID() string { return rc.env.runID }

// Iteration is the enclosing loop's iteration, or -1 outside any loop.
func (rc *RunContext) Iteration() int { return rc.iteration }

// State returns the read-only view of the run's SessionState.
func (rc *RunContext) State() StateReader { return rc.env.state }

// Logger returns the run logger scoped to this node.
func (rc *RunContext) Logger() *zap.Logger {
	return rc.env.logger.With(zap.String("node", rc.path))
}

func (rc *RunContext) recordWrite(field Field) {
	for _, ws := range rc.writeSets {
		ws.add(field)
	}
}

// track wraps a node execution with tracing, history and stream events.
func (rc *RunContext) track(ctx context.Context, kind NodeType, fn func(ctx context.Context) error) error {
	ctx, span := rc.env.tracer.Start(ctx, rc.path, trace.WithAttributes(
		attribute.String("courtflow.node_type", string(kind)),
		attribute.String("courtflow.run_id", rc.env.runID),
		attribute.Int("courtflow.iteration", rc.iteration),
	))
	defer span.End()
	ctx = ctxkeys.WithNode(ctx, rc.path)

	rec := rc.env.history.RecordNodeStart(rc.path, kind, rc.iteration)
	emitEvent(ctx, WorkflowStreamEvent{Type: WorkflowEventNodeStart, NodeID: rc.path, NodeType: kind, Iteration: rc.iteration})

	err := fn(ctx)

	rc.env.history.RecordNodeEnd(rec, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		emitEvent(ctx, WorkflowStreamEvent{Type: WorkflowEventNodeError, NodeID: rc.path, NodeType: kind, Iteration: rc.iteration, Error: err})
		return err
	}
	emitEvent(ctx, WorkflowStreamEvent{Type: WorkflowEventNodeComplete, NodeID: rc.path, NodeType: kind, Iteration: rc.iteration})
	return nil
}

// Sequential 顺序组合器
// 按列表顺序执行子节点，前一个子节点的状态修改对下一个可见；首个失败立即终止。
type Sequential struct {
	name     string
	children []Composer
}

// NewSequential 创建顺序组合器
func NewSequential(name string, children ...Composer) *Sequential {
	return &Sequential{
		name:     name,
		children: children,
	}
}

// Run executes children in order and fails fast.
func (s *Sequential) Run(ctx context.Context, rc *RunContext) error {
	return rc.track(ctx, NodeSequential, func(ctx context.Context) error {
		for i, child := range s.children {
			// 检查上下文是否已取消
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err := child.Run(ctx, rc.enter(child.Name())); err != nil {
				return types.Errorf(types.ErrCompositionFailure, "step %d (%s) failed", i+1, child.Name()).
					WithComponent(s.name).
					WithCause(err)
			}
		}
		return nil
	})
}

func (s *Sequential) Name() string {
	return s.name
}

// Children 返回所有子节点
func (s *Sequential) Children() []Composer {
	return s.children
}

// =============================================================================
// Workflow Streaming
// =============================================================================

// WorkflowStreamEventType defines the type of workflow stream event.
type WorkflowStreamEventType string

const (
	// WorkflowEventNodeStart is emitted before a node begins execution.
	WorkflowEventNodeStart WorkflowStreamEventType = "node_start"
	// WorkflowEventNodeComplete is emitted after a node finishes successfully.
	WorkflowEventNodeComplete WorkflowStreamEventType = "node_complete"
	// WorkflowEventNodeError is emitted when a node fails.
	WorkflowEventNodeError WorkflowStreamEventType = "node_error"
	// WorkflowEventLoopFinished is emitted when a bounded loop reaches a final state.
	WorkflowEventLoopFinished WorkflowStreamEventType = "loop_finished"
)

// WorkflowStreamEvent carries information about a workflow execution event.
type WorkflowStreamEvent struct {
	Type      WorkflowStreamEventType `json:"type"`
	NodeID    string                  `json:"node_id,omitempty"`
	NodeType  NodeType                `json:"node_type,omitempty"`
	Iteration int                     `json:"iteration"`
	Data      any                     `json:"data,omitempty"`
	Error     error                   `json:"-"`
}

// WorkflowStreamEmitter is a callback that receives workflow stream events.
// It may be called from several goroutines while a Parallel composer runs.
type WorkflowStreamEmitter func(WorkflowStreamEvent)

type workflowStreamEmitterKey struct{}

// WithWorkflowStreamEmitter stores a WorkflowStreamEmitter in the context.
func WithWorkflowStreamEmitter(ctx context.Context, emitter WorkflowStreamEmitter) context.Context {
	if emitter == nil {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, workflowStreamEmitterKey{}, emitter)
}

func workflowStreamEmitterFromContext(ctx context.Context) (WorkflowStreamEmitter, bool) {
	if ctx == nil {
		return nil, false
	}
	emit, ok := ctx.Value(workflowStreamEmitterKey{}).(WorkflowStreamEmitter)
	return emit, ok && emit != nil
}

func emitEvent(ctx context.Context, ev WorkflowStreamEvent) {
	if emit, ok := workflowStreamEmitterFromContext(ctx); ok {
		emit(ev)
	}
}
