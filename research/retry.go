package research

import (
	"context"

	"github.com/BaSui01/courtflow/retry"
	"github.com/BaSui01/courtflow/workflow"
)

// RetryingResearcher 用重试器包装检索源，只重试瞬时故障。
type RetryingResearcher struct {
	inner   workflow.Researcher
	retryer retry.Retryer
}

// WithRetry 返回带重试的检索源。
func WithRetry(inner workflow.Researcher, retryer retry.Retryer) *RetryingResearcher {
	return &RetryingResearcher{inner: inner, retryer: retryer}
}

// Search 实现 workflow.Researcher。
func (r *RetryingResearcher) Search(ctx context.Context, query string) (string, error) {
	return retry.DoWithResultTyped(r.retryer, ctx, func(ctx context.Context) (string, error) {
		return r.inner.Search(ctx, query)
	})
}
