package backend

import (
	"context"

	"github.com/BaSui01/courtflow/internal/ctxkeys"
	"github.com/BaSui01/courtflow/retry"
	"github.com/BaSui01/courtflow/workflow"
	"go.uber.org/zap"
)

// Invocation is one request to run a worker role. The backend acts only
// through Tools; the engine observes nothing but state side effects and
// termination raises.
type Invocation struct {
	Task         string
	Instructions string
	Input        string
	Tools        *workflow.TaskContext
}

// Backend executes worker roles.
type Backend interface {
	Name() string
	Invoke(ctx context.Context, inv *Invocation) error
}

// Func adapts a plain function to a Backend.
type Func func(ctx context.Context, inv *Invocation) error

func (f Func) Name() string { return "func" }

func (f Func) Invoke(ctx context.Context, inv *Invocation) error {
	return f(ctx, inv)
}

// RetryingBackend re-invokes the inner backend on transient failures.
type RetryingBackend struct {
	inner   Backend
	retryer retry.Retryer
	logger  *zap.Logger
}

// WithRetry wraps inner with the retryer.
func WithRetry(inner Backend, retryer retry.Retryer, logger *zap.Logger) *RetryingBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingBackend{
		inner:   inner,
		retryer: retryer,
		logger:  logger.With(zap.String("component", "retry_backend"), zap.String("backend", inner.Name())),
	}
}

// Compile-time interface check.
var _ Backend = (*RetryingBackend)(nil)

func (b *RetryingBackend) Name() string { return b.inner.Name() }

// Invoke runs the inner backend under the retry policy. Roles that mutate
// state must issue their queries before their first mutation so a retried
// invocation does not double-apply writes.
func (b *RetryingBackend) Invoke(ctx context.Context, inv *Invocation) error {
	err := b.retryer.Do(ctx, func(ctx context.Context) error {
		return b.inner.Invoke(ctx, inv)
	})
	if err != nil {
		b.logger.Warn("invocation failed", ctxkeys.LogFields(ctx, zap.String("task", inv.Task), zap.Error(err))...)
	}
	return err
}
