package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/BaSui01/courtflow/workflow"
)

// AgentTask runs a worker role on a Backend.
type AgentTask struct {
	name         string
	instructions string
	policy       workflow.Policy
	backend      Backend
}

// NewAgentTask creates a task that hands instructions to b. Placeholders of
// the form {field} or {field?} are filled from SessionState before invoking.
func NewAgentTask(name, instructions string, policy workflow.Policy, b Backend) *AgentTask {
	return &AgentTask{
		name:         name,
		instructions: instructions,
		policy:       policy,
		backend:      b,
	}
}

func (t *AgentTask) Name() string            { return t.name }
func (t *AgentTask) Policy() workflow.Policy { return t.policy }

// Execute implements workflow.Task.
func (t *AgentTask) Execute(ctx context.Context, tc *workflow.TaskContext) (workflow.Outcome, error) {
	inv := &Invocation{
		Task:         t.name,
		Instructions: RenderInstructions(t.instructions, tc.State()),
		Input:        tc.Input(),
		Tools:        tc,
	}
	if err := t.backend.Invoke(ctx, inv); err != nil {
		return workflow.Continue(), fmt.Errorf("agent %s: %w", t.name, err)
	}
	return workflow.Continue(), nil
}

// RenderInstructions substitutes state placeholders in tmpl.
func RenderInstructions(tmpl string, state workflow.StateReader) string {
	pairs := make([]string, 0, len(workflow.SessionFields)*4)
	for _, f := range workflow.SessionFields {
		v := formatField(state, f)
		pairs = append(pairs, "{"+string(f)+"}", v, "{"+string(f)+"?}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func formatField(state workflow.StateReader, f workflow.Field) string {
	switch f {
	case workflow.FieldPositiveEvidence, workflow.FieldNegativeEvidence:
		items := state.Strings(f)
		if len(items) == 0 {
			return "(none)"
		}
		return "- " + strings.Join(items, "\n- ")
	case workflow.FieldPositiveRounds, workflow.FieldNegativeRounds:
		return strconv.Itoa(state.Int(f))
	default:
		return state.String(f)
	}
}
