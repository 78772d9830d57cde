package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BaSui01/courtflow/types"
	"golang.org/x/sync/errgroup"
)

// Parallel 并行组合器
// 并发执行所有子节点并等待全部完成（不因单个失败而取消其他子节点）。
// 子节点共享同一个 SessionState，应写入互不相交的字段。
type Parallel struct {
	name     string
	children []Composer
}

// NewParallel 创建并行组合器
func NewParallel(name string, children ...Composer) *Parallel {
	return &Parallel{
		name:     name,
		children: children,
	}
}

func (p *Parallel) Name() string {
	return p.name
}

// Children 返回所有子节点
func (p *Parallel) Children() []Composer {
	return p.children
}

// Run starts every child, joins all of them and reports a combined failure
// naming each failed child in declaration order.
func (p *Parallel) Run(ctx context.Context, rc *RunContext) error {
	if len(p.children) == 0 {
		return types.NewError(types.ErrInvalidConfig, "no children to execute").WithComponent(p.name)
	}

	return rc.track(ctx, NodeParallel, func(ctx context.Context) error {
		errs := make([]error, len(p.children))
		sets := make([]*writeSet, len(p.children))

		// A plain Group: a failing child must not cancel its siblings.
		var g errgroup.Group
		for i, child := range p.children {
			i, child := i, child
			childRC := rc.enter(child.Name())
			if rc.env.detectConflicts {
				sets[i] = newWriteSet(childRC.path)
				childRC = childRC.withWriteSet(sets[i])
			}
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
						errs[i] = err
					}
				}()
				errs[i] = child.Run(ctx, childRC)
				return errs[i]
			})
		}
		_ = g.Wait()

		var (
			failed []string
			causes []error
		)
		for i, err := range errs {
			if err != nil {
				name := p.children[i].Name()
				failed = append(failed, name)
				causes = append(causes, fmt.Errorf("%s: %w", name, err))
			}
		}
		if len(failed) > 0 {
			return types.Errorf(types.ErrCompositionFailure,
				"parallel execution failed with %d errors: [%s]", len(failed), strings.Join(failed, ", ")).
				WithComponent(p.name).
				WithCause(errors.Join(causes...))
		}

		if rc.env.detectConflicts {
			return detectConflicts(p.name, sets)
		}
		return nil
	})
}

// detectConflicts fails when two branches wrote the same field.
func detectConflicts(component string, sets []*writeSet) error {
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			var shared []string
			for _, f := range sets[i].list() {
				if sets[j].has(f) {
					shared = append(shared, string(f))
				}
			}
			if len(shared) > 0 {
				slices.Sort(shared)
				return types.NewContractViolation(component,
					"parallel branches %s and %s both wrote %s",
					sets[i].owner, sets[j].owner, strings.Join(shared, ", "))
			}
		}
	}
	return nil
}
