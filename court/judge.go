package court

import (
	"context"
	"fmt"

	"github.com/BaSui01/courtflow/types"
	"github.com/BaSui01/courtflow/workflow"
	"go.uber.org/zap"
)

// DefaultBalanceThreshold is the number of items each side needs before the
// judge ends the trial. config.DefaultCourtConfig uses the same value.
const DefaultBalanceThreshold = 4

// Judge 是法官任务：检查正反两方证据是否都达到阈值。
// 反方先检查；证据不足时写入反馈让下一轮针对性补充，两方都满足时请求终止循环。
type Judge struct {
	name      string
	threshold int
}

// NewJudge creates the judge; threshold must be positive.
func NewJudge(name string, threshold int) (*Judge, error) {
	if threshold <= 0 {
		return nil, types.Errorf(types.ErrInvalidConfig, "balance threshold must be positive, got %d", threshold).
			WithComponent(name)
	}
	return &Judge{name: name, threshold: threshold}, nil
}

func (j *Judge) Name() string { return j.name }

func (j *Judge) Policy() workflow.Policy {
	return workflow.Allow(workflow.OpSetField, workflow.OpRaiseTermination).
		Writing(workflow.FieldJudgeFeedback)
}

// Threshold returns the per-side evidence count the judge requires.
func (j *Judge) Threshold() int { return j.threshold }

// Execute implements workflow.Task.
func (j *Judge) Execute(ctx context.Context, tc *workflow.TaskContext) (workflow.Outcome, error) {
	out := j.Decide(tc.State().Snapshot())
	tc.Logger().Info("judgment",
		zap.Int("iteration", tc.Iteration()+1),
		zap.String("outcome", out.Kind.String()),
		zap.String("feedback", out.Feedback))
	return out, nil
}

// Decide maps a snapshot to the judge's outcome without touching state.
func (j *Judge) Decide(snap workflow.Snapshot) workflow.Outcome {
	if n := len(snap.NegativeEvidence); n < j.threshold {
		return workflow.ContinueWithFeedback(fmt.Sprintf(
			"need more negative analysis: found only %d points. "+
				"Please find MORE specific controversies or failed projects.", n))
	}
	if n := len(snap.PositiveEvidence); n < j.threshold {
		return workflow.ContinueWithFeedback(fmt.Sprintf(
			"need more positive analysis: found only %d points. "+
				"Please find MORE diverse achievements in science, art, or engineering.", n))
	}
	return workflow.Terminate()
}
