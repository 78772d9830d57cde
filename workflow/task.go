package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/BaSui01/courtflow/types"
	"go.uber.org/zap"
)

// Task is a named unit of work. Tasks never touch SessionState directly:
// every mutation and side effect goes through TaskContext.Do, checked
// against the task's declared Policy.
type Task interface {
	Name() string
	Policy() Policy
	Execute(ctx context.Context, tc *TaskContext) (Outcome, error)
}

// Policy declares the operations a task may invoke and the fields it may write.
type Policy struct {
	Ops    []OpKind
	Writes []Field
}

// Allow builds a Policy permitting ops.
func Allow(ops ...OpKind) Policy {
	return Policy{Ops: ops}
}

// Writing returns a copy of p that may also write fields.
func (p Policy) Writing(fields ...Field) Policy {
	p.Writes = append(slices.Clone(p.Writes), fields...)
	return p
}

// Allows reports whether kind is declared.
func (p Policy) Allows(kind OpKind) bool {
	return slices.Contains(p.Ops, kind)
}

// CanWrite reports whether field is declared writable.
func (p Policy) CanWrite(field Field) bool {
	return slices.Contains(p.Writes, field)
}

// OutcomeKind is the typed result of a task.
type OutcomeKind int

const (
	OutcomeContinue OutcomeKind = iota
	OutcomeTerminate
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is returned by Task.Execute. Feedback, when present, is written to
// judge_feedback; Terminate raises the enclosing loop's signal.
type Outcome struct {
	Kind     OutcomeKind
	Feedback string
}

// Continue lets the enclosing composer proceed.
func Continue() Outcome { return Outcome{Kind: OutcomeContinue} }

// ContinueWithFeedback proceeds and records feedback for the next iteration.
func ContinueWithFeedback(feedback string) Outcome {
	return Outcome{Kind: OutcomeContinue, Feedback: feedback}
}

// Terminate ends the enclosing bounded loop after the current iteration.
func Terminate() Outcome { return Outcome{Kind: OutcomeTerminate} }

// TaskFunc 任务函数类型
type TaskFunc func(ctx context.Context, tc *TaskContext) (Outcome, error)

// FuncTask 函数任务
type FuncTask struct {
	name   string
	policy Policy
	fn     TaskFunc
}

// NewFuncTask 创建函数任务
func NewFuncTask(name string, policy Policy, fn TaskFunc) *FuncTask {
	return &FuncTask{
		name:   name,
		policy: policy,
		fn:     fn,
	}
}

func (t *FuncTask) Name() string   { return t.name }
func (t *FuncTask) Policy() Policy { return t.policy }

func (t *FuncTask) Execute(ctx context.Context, tc *TaskContext) (Outcome, error) {
	return t.fn(ctx, tc)
}

// Researcher answers Query operations.
type Researcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// ArtifactWriter persists WriteArtifact operations and returns the final path.
type ArtifactWriter interface {
	Write(ctx context.Context, directory, filename, content string) (string, error)
}

// TaskContext is the only handle a task gets on the run.
type TaskContext struct {
	rc     *RunContext
	name   string
	policy Policy
}

func newTaskContext(rc *RunContext, task Task) *TaskContext {
	return &TaskContext{rc: rc, name: task.Name(), policy: task.Policy()}
}

// State returns a read-only view of SessionState.
func (tc *TaskContext) State() StateReader { return tc.rc.env.state }

// Input is the user input the run was started with.
func (tc *TaskContext) Input() string { return tc.rc.env.input }

// Iteration is the enclosing loop iteration, or -1.
func (tc *TaskContext) Iteration() int { return tc.rc.iteration }

// Path is the task's position in the composition tree.
func (tc *TaskContext) Path() string { return tc.rc.path }

// Logger returns a logger scoped to the task.
func (tc *TaskContext) Logger() *zap.Logger { return tc.rc.Logger() }

func (tc *TaskContext) violation(format string, args ...any) error {
	return types.NewContractViolation(tc.name, format, args...)
}

// Do dispatches one operation. Undeclared operations, writes outside the
// declared field set and misuse of reset or termination fail with
// TASK_CONTRACT_VIOLATION before anything is mutated.
func (tc *TaskContext) Do(ctx context.Context, op Operation) (Result, error) {
	if op == nil {
		return Result{}, tc.violation("nil operation")
	}
	if !tc.policy.Allows(op.Kind()) {
		return Result{}, tc.violation("operation %s not declared", op.Kind())
	}

	state := tc.rc.env.state
	switch o := op.(type) {
	case SetField:
		if !tc.policy.CanWrite(o.Field) {
			return Result{}, tc.violation("field %s not declared writable", o.Field)
		}
		if IsAppendOnly(o.Field) {
			return Result{}, tc.violation("field %s is append-only", o.Field)
		}
		if err := checkValueType(o.Field, o.Value); err != nil {
			return Result{}, tc.violation("%v", err)
		}
		if o.Field == FieldTopic && state.String(FieldTopic) != "" {
			return Result{}, tc.violation("topic is already set")
		}
		state.Set(o.Field, o.Value)
		tc.rc.recordWrite(o.Field)
		return Result{Status: "success"}, nil

	case AppendField:
		if !tc.policy.CanWrite(o.Field) {
			return Result{}, tc.violation("field %s not declared writable", o.Field)
		}
		if !IsAppendOnly(o.Field) {
			return Result{}, tc.violation("field %s is not a list", o.Field)
		}
		n := state.Append(o.Field, o.Value)
		tc.rc.recordWrite(o.Field)
		return Result{Status: "success", Length: n}, nil

	case ResetState:
		alreadyReset, mutatedBefore := state.resetFirst()
		switch {
		case alreadyReset:
			return Result{}, tc.violation("state was already reset in this run")
		case mutatedBefore:
			return Result{}, tc.violation("reset must precede every other mutation")
		}
		for _, f := range SessionFields {
			tc.rc.recordWrite(f)
		}
		return Result{Status: "success"}, nil

	case RaiseTermination:
		sig := tc.rc.signal
		if sig == nil {
			return Result{}, tc.violation("termination raised outside a bounded loop")
		}
		if !sig.Raise(tc.rc.path, tc.rc.iteration) {
			by, iter := sig.RaisedBy()
			return Result{}, tc.violation("termination already raised by %s in iteration %d", by, iter)
		}
		return Result{Status: "terminated"}, nil

	case WriteArtifact:
		w := tc.rc.env.artifacts
		if w == nil {
			return Result{}, types.NewError(types.ErrPersistenceFailure, "no artifact writer configured").
				WithComponent(tc.name)
		}
		path, err := w.Write(ctx, o.Directory, o.Filename, o.Content)
		if err != nil {
			if types.HasCode(err, types.ErrPersistenceFailure) {
				return Result{}, err
			}
			return Result{}, types.Errorf(types.ErrPersistenceFailure, "write artifact %s", o.Filename).
				WithComponent(tc.name).
				WithCause(err)
		}
		return Result{Status: "success", Path: path}, nil

	case Query:
		r := tc.rc.env.researcher
		if r == nil {
			return Result{}, types.NewError(types.ErrBackendFailure, "no researcher configured").
				WithComponent(tc.name)
		}
		summary, err := r.Search(ctx, o.Text)
		if err != nil {
			return Result{}, err
		}
		return Result{Status: "success", Summary: summary}, nil

	default:
		return Result{}, tc.violation("unknown operation %T", op)
	}
}

// apply turns a typed Outcome into the equivalent guarded operations.
func (tc *TaskContext) apply(ctx context.Context, out Outcome) error {
	if out.Feedback != "" {
		if _, err := tc.Do(ctx, SetField{Field: FieldJudgeFeedback, Value: out.Feedback}); err != nil {
			return err
		}
	}
	switch out.Kind {
	case OutcomeContinue:
		return nil
	case OutcomeTerminate:
		_, err := tc.Do(ctx, RaiseTermination{})
		return err
	default:
		return tc.violation("unknown outcome %s", out.Kind)
	}
}

func checkValueType(field Field, value any) error {
	switch zeroValue(field).(type) {
	case int:
		if _, ok := value.(int); !ok {
			return fmt.Errorf("field %s expects an integer, got %T", field, value)
		}
	case string:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %s expects a string, got %T", field, value)
		}
	}
	return nil
}

// taskNode adapts a Task to a Composer.
type taskNode struct {
	task Task
}

// Step wraps a task so it can be placed in a composition.
func Step(task Task) Composer {
	return &taskNode{task: task}
}

func (n *taskNode) Name() string { return n.task.Name() }

func (n *taskNode) Run(ctx context.Context, rc *RunContext) error {
	return rc.track(ctx, NodeTask, func(ctx context.Context) error {
		start := time.Now()
		rc.env.observer.TaskStarted(rc.path)

		tc := newTaskContext(rc, n.task)
		out, err := n.task.Execute(ctx, tc)
		if err == nil {
			err = tc.apply(ctx, out)
		}

		elapsed := time.Since(start)
		rc.env.observer.TaskFinished(rc.path, elapsed, err)
		if err != nil {
			rc.Logger().Warn("task failed",
				zap.Int("iteration", rc.iteration),
				zap.Duration("duration", elapsed),
				zap.Error(err))
			return err
		}
		rc.Logger().Debug("task completed",
			zap.Int("iteration", rc.iteration),
			zap.String("outcome", out.Kind.String()),
			zap.Duration("duration", elapsed))
		return nil
	})
}
