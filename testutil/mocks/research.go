// =============================================================================
// 🔎 Mock Researchers - 检索协作者模拟实现
// =============================================================================
// 用于测试的检索协作者，返回确定性的摘要并支持瞬时失败注入
//
// 使用方法:
//
//	corpus := mocks.NewCorpusResearcher().WithSilence("rivalry")
//	flaky := mocks.NewFlakyResearcher(corpus).FailFirst(3).OnlyMatching("controversy")
//	summary, err := flaky.Search(ctx, "Marie Curie controversy")
// =============================================================================
package mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/courtflow/types"
	"github.com/BaSui01/courtflow/workflow"
)

// =============================================================================
// 🎯 CorpusResearcher
// =============================================================================

// CorpusResearcher 为每个查询生成互不相同的确定性摘要
type CorpusResearcher struct {
	mu sync.Mutex

	sentences int
	summaries map[string]string
	silenced  []string
	err       error

	queries []string
}

// NewCorpusResearcher 创建新的 CorpusResearcher，默认每个查询 3 句
func NewCorpusResearcher() *CorpusResearcher {
	return &CorpusResearcher{
		sentences: 3,
		summaries: make(map[string]string),
	}
}

// WithSummary 为指定查询预设摘要
func (r *CorpusResearcher) WithSummary(query, summary string) *CorpusResearcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries[query] = summary
	return r
}

// WithSilence 让包含 substr 的查询返回空摘要
func (r *CorpusResearcher) WithSilence(substr string) *CorpusResearcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.silenced = append(r.silenced, substr)
	return r
}

// WithError 设置 Search 返回的错误
func (r *CorpusResearcher) WithError(err error) *CorpusResearcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	return r
}

// Search 实现 workflow.Researcher
func (r *CorpusResearcher) Search(ctx context.Context, query string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = append(r.queries, query)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.err != nil {
		return "", r.err
	}
	if s, ok := r.summaries[query]; ok {
		return s, nil
	}
	for _, substr := range r.silenced {
		if strings.Contains(query, substr) {
			return "", nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Page: %s\nSummary:", query)
	for i := 1; i <= r.sentences; i++ {
		fmt.Fprintf(&b, " Record %d concerning %s is documented in the archives.", i, query)
	}
	return b.String(), nil
}

// Queries 返回收到的全部查询
func (r *CorpusResearcher) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.queries...)
}

// Calls 返回 Search 调用次数
func (r *CorpusResearcher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

// =============================================================================
// ⚡ FlakyResearcher
// =============================================================================

// ErrServiceUnavailable 是注入的底层失败原因
var ErrServiceUnavailable = errors.New("503 service unavailable")

// FlakyResearcher 在前 N 次匹配的调用上返回瞬时错误
type FlakyResearcher struct {
	mu sync.Mutex

	inner     workflow.Researcher
	failures  int
	match     string
	permanent bool

	failed int
	calls  int
}

// NewFlakyResearcher 包装 inner
func NewFlakyResearcher(inner workflow.Researcher) *FlakyResearcher {
	return &FlakyResearcher{inner: inner}
}

// FailFirst 设置失败次数
func (r *FlakyResearcher) FailFirst(n int) *FlakyResearcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
	return r
}

// OnlyMatching 仅对包含 substr 的查询注入失败
func (r *FlakyResearcher) OnlyMatching(substr string) *FlakyResearcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.match = substr
	return r
}

// Permanent 注入不可重试的错误
func (r *FlakyResearcher) Permanent() *FlakyResearcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permanent = true
	return r
}

// Search 实现 workflow.Researcher
func (r *FlakyResearcher) Search(ctx context.Context, query string) (string, error) {
	r.mu.Lock()
	r.calls++
	if (r.match == "" || strings.Contains(query, r.match)) && r.failed < r.failures {
		r.failed++
		permanent := r.permanent
		r.mu.Unlock()
		if permanent {
			return "", types.NewError(types.ErrBackendFailure, "research rejected").WithCause(ErrServiceUnavailable)
		}
		return "", types.NewTransientError("research backend unavailable", ErrServiceUnavailable)
	}
	r.mu.Unlock()
	return r.inner.Search(ctx, query)
}

// Failed 返回已注入的失败次数
func (r *FlakyResearcher) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Calls 返回 Search 调用次数
func (r *FlakyResearcher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
