package court

import (
	"github.com/BaSui01/courtflow/backend"
	"github.com/BaSui01/courtflow/config"
	"github.com/BaSui01/courtflow/workflow"
)

// Node names of the composition tree.
const (
	NodeRoot          = "historical_court"
	NodeTrial         = "court_trial"
	NodeRound         = "trial_round"
	NodeInvestigation = "investigation_team"
	NodeJudge         = "judge"
)

// TrialPath is the run-report key of the trial loop.
const TrialPath = NodeRoot + "/" + NodeTrial

// =============================================================================
// 📜 角色指令
// =============================================================================

const (
	resetterInstructions = `Reset the court session before anything else happens.
Call the reset operation exactly once and do nothing more.`

	clerkInstructions = `You are the court clerk. Read the user's request and identify the
historical figure or event to put on trial. Record it as the topic. Do not
research anything yourself.`

	admirerInstructions = `You are the admirer investigating {topic}.
Search for achievements, accomplishments and positive impact.
Judge feedback: {judge_feedback?}
Evidence already on record:
{pos_data?}
Add exactly two new, distinct items to the positive evidence and advance
your round counter (currently {pos_round}).`

	criticInstructions = `You are the critic investigating {topic}.
Search for controversies, criticism and failures.
Judge feedback: {judge_feedback?}
Evidence already on record:
{neg_data?}
Add exactly two new, distinct items to the negative evidence and advance
your round counter (currently {neg_round}).`

	scribeInstructions = `You are the verdict scribe for {topic}. Write a report with three
sections: achievements, controversies and criticism, and a neutral
conclusion. Positive evidence:
{pos_data?}
Negative evidence:
{neg_data?}`
)

// =============================================================================
// 🔐 角色权限
// =============================================================================

var (
	resetterPolicy = workflow.Allow(workflow.OpReset)
	clerkPolicy    = workflow.Allow(workflow.OpSetField).Writing(workflow.FieldTopic)
	admirerPolicy  = workflow.Allow(workflow.OpQuery, workflow.OpAppendField, workflow.OpSetField).
			Writing(workflow.FieldPositiveEvidence, workflow.FieldPositiveRounds)
	criticPolicy = workflow.Allow(workflow.OpQuery, workflow.OpAppendField, workflow.OpSetField).
			Writing(workflow.FieldNegativeEvidence, workflow.FieldNegativeRounds)
	scribePolicy = workflow.Allow(workflow.OpWriteArtifact)
)

// NewWorkflow builds the historical court:
//
//	historical_court (sequential)
//	├── resetter
//	├── clerk
//	├── court_trial (bounded loop, cfg.MaxIterations)
//	│   └── trial_round (sequential)
//	│       ├── investigation_team (parallel)
//	│       │   ├── admirer
//	│       │   └── critic
//	│       └── judge
//	└── verdict_scribe
func NewWorkflow(cfg config.CourtConfig, b backend.Backend) (workflow.Composer, error) {
	judge, err := NewJudge(NodeJudge, cfg.BalanceThreshold)
	if err != nil {
		return nil, err
	}
	trial, err := workflow.NewBoundedLoop(NodeTrial, cfg.MaxIterations,
		workflow.NewSequential(NodeRound,
			workflow.NewParallel(NodeInvestigation,
				workflow.Step(backend.NewAgentTask(backend.RoleAdmirer, admirerInstructions, admirerPolicy, b)),
				workflow.Step(backend.NewAgentTask(backend.RoleCritic, criticInstructions, criticPolicy, b)),
			),
			workflow.Step(judge),
		),
	)
	if err != nil {
		return nil, err
	}

	return workflow.NewSequential(NodeRoot,
		workflow.Step(backend.NewAgentTask(backend.RoleResetter, resetterInstructions, resetterPolicy, b)),
		workflow.Step(backend.NewAgentTask(backend.RoleClerk, clerkInstructions, clerkPolicy, b)),
		trial,
		workflow.Step(backend.NewAgentTask(backend.RoleScribe, scribeInstructions, scribePolicy, b)),
	), nil
}
