package backend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BaSui01/courtflow/retry"
	"github.com/BaSui01/courtflow/testutil"
	"github.com/BaSui01/courtflow/testutil/mocks"
	"github.com/BaSui01/courtflow/types"
	"github.com/BaSui01/courtflow/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var (
	resetPolicy   = workflow.Allow(workflow.OpReset)
	clerkPolicy   = workflow.Allow(workflow.OpSetField).Writing(workflow.FieldTopic)
	admirerPolicy = workflow.Allow(workflow.OpQuery, workflow.OpAppendField, workflow.OpSetField).
			Writing(workflow.FieldPositiveEvidence, workflow.FieldPositiveRounds)
	criticPolicy = workflow.Allow(workflow.OpQuery, workflow.OpAppendField, workflow.OpSetField).
			Writing(workflow.FieldNegativeEvidence, workflow.FieldNegativeRounds)
	scribePolicy = workflow.Allow(workflow.OpWriteArtifact)
)

func preamble(b Backend) []workflow.Composer {
	return []workflow.Composer{
		workflow.Step(NewAgentTask(RoleResetter, "Call reset once.", resetPolicy, b)),
		workflow.Step(NewAgentTask(RoleClerk, "Extract the topic.", clerkPolicy, b)),
	}
}

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Marie Curie", "Marie Curie"},
		{"Tell me about Marie Curie?", "Marie Curie"},
		{"  who was   Leonardo da Vinci.", "Leonardo da Vinci"},
		{"Analyze the Roman Empire!", "the Roman Empire"},
		{"Judge Dredd", "Judge Dredd"},
		{"About Schmidt", "About Schmidt"},
		{"Tell me about About Schmidt", "About Schmidt"},
		{"tell me about", ""},
		{"", ""},
		{"???", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTopic(tt.in), tt.in)
	}
}

func TestExtractStatements(t *testing.T) {
	summary := "Page: Marie Curie\nSummary: Marie Curie won two Nobel Prizes in different sciences. Short one. " +
		"She discovered polonium and radium with Pierre Curie!\n\nPage: Radium\nSummary: Radium is a chemical element with symbol Ra."
	got := ExtractStatements(summary, 280)
	assert.Equal(t, []string{
		"Marie Curie won two Nobel Prizes in different sciences.",
		"She discovered polonium and radium with Pierre Curie!",
		"Radium is a chemical element with symbol Ra.",
	}, got)
}

func TestExtractStatements_Truncates(t *testing.T) {
	got := ExtractStatements("Summary: "+strings.Repeat("word ", 40), 30)
	require.Len(t, got, 1)
	assert.Equal(t, 30, len([]rune(got[0])))
	assert.True(t, strings.HasSuffix(got[0], "…"))
}

func TestSearchQueries(t *testing.T) {
	q := searchQueries("Ada", 1, "", AdmirerStance)
	assert.Equal(t, "Ada accomplishments", q[0])
	assert.Len(t, q, len(AdmirerStance.Strategies))

	q = searchQueries("Ada", 0, "need more negative analysis: found only 2 points", CriticStance)
	assert.Equal(t, "Ada failed projects", q[0])
	assert.Equal(t, "Ada controversy", q[1])

	// Feedback aimed at the other side does not refine.
	q = searchQueries("Ada", 0, "need more negative analysis", AdmirerStance)
	assert.Equal(t, "Ada achievements", q[0])
}

func TestRuleBackend_InvestigationRound(t *testing.T) {
	corpus := mocks.NewCorpusResearcher()
	b := NewRuleBackend(DefaultRuleConfig(), zaptest.NewLogger(t))

	steps := append(preamble(b),
		workflow.NewParallel("investigation_team",
			workflow.Step(NewAgentTask(RoleAdmirer, "Collect achievements of {topic}.", admirerPolicy, b)),
			workflow.Step(NewAgentTask(RoleCritic, "Collect controversies of {topic}.", criticPolicy, b)),
		),
	)
	engine := workflow.NewEngine(workflow.WithResearcher(corpus), workflow.WithConflictDetection(true))

	report, err := engine.Run(testutil.TestContext(t), workflow.NewSequential("court", steps...), "Tell me about Marie Curie")
	require.NoError(t, err)

	assert.Equal(t, "Marie Curie", report.State.Topic)
	testutil.AssertEvidenceCounts(t, report.State, 2, 2)
	assert.Equal(t, 1, report.State.PositiveRoundCount)
	assert.Equal(t, 1, report.State.NegativeRoundCount)
	assert.Contains(t, report.State.PositiveEvidence[0], "Marie Curie achievements")
	assert.Contains(t, report.State.NegativeEvidence[0], "Marie Curie controversy")
}

func TestRuleBackend_SkipsDuplicates(t *testing.T) {
	// Every query returns the same two sentences: the second round finds nothing new.
	summary := "Summary: The same achievement is repeated everywhere. Another repeated achievement appears here."
	corpus := mocks.NewCorpusResearcher()
	for _, s := range AdmirerStance.Strategies {
		corpus.WithSummary(strings.ReplaceAll(s, "%s", "Ada Lovelace"), summary)
	}
	b := NewRuleBackend(DefaultRuleConfig(), zap.NewNop())
	admirer := workflow.Step(NewAgentTask(RoleAdmirer, "", admirerPolicy, b))

	steps := append(preamble(b), admirer, admirer)
	report, err := workflow.NewEngine(workflow.WithResearcher(corpus)).
		Run(context.Background(), workflow.NewSequential("court", steps...), "Ada Lovelace")
	require.NoError(t, err)

	assert.Len(t, report.State.PositiveEvidence, 2)
	assert.Equal(t, 2, report.State.PositiveRoundCount)
}

func TestRuleBackend_ClerkRejectsEmptyTopic(t *testing.T) {
	b := NewRuleBackend(DefaultRuleConfig(), nil)
	_, err := workflow.NewEngine().Run(context.Background(), workflow.NewSequential("court", preamble(b)...), "tell me about")
	testutil.AssertErrorCode(t, err, types.ErrTaskContractViolation)
}

func TestRuleBackend_InvestigateWithoutTopic(t *testing.T) {
	b := NewRuleBackend(DefaultRuleConfig(), nil)
	task := workflow.Step(NewAgentTask(RoleAdmirer, "", admirerPolicy, b))
	_, err := workflow.NewEngine(workflow.WithResearcher(mocks.NewCorpusResearcher())).
		Run(context.Background(), task, "")
	testutil.AssertErrorCode(t, err, types.ErrTaskContractViolation)
}

func TestRuleBackend_QueryFailureLeavesStateUntouched(t *testing.T) {
	corpus := mocks.NewCorpusResearcher().WithError(types.NewError(types.ErrBackendFailure, "search down"))
	b := NewRuleBackend(DefaultRuleConfig(), nil)

	steps := append(preamble(b), workflow.Step(NewAgentTask(RoleCritic, "", criticPolicy, b)))
	report, err := workflow.NewEngine(workflow.WithResearcher(corpus)).
		Run(context.Background(), workflow.NewSequential("court", steps...), "Napoleon")
	testutil.AssertErrorCode(t, err, types.ErrBackendFailure)
	assert.Empty(t, report.State.NegativeEvidence)
	assert.Equal(t, 0, report.State.NegativeRoundCount)
}

func TestRuleBackend_Scribe(t *testing.T) {
	writer := mocks.NewMemoryArtifactWriter()
	b := NewRuleBackend(RuleConfig{ReportDir: "reports"}, nil)

	steps := append(preamble(b),
		workflow.Step(NewAgentTask(RoleAdmirer, "", admirerPolicy, b)),
		workflow.Step(NewAgentTask(RoleScribe, "", scribePolicy, b)),
	)
	engine := workflow.NewEngine(
		workflow.WithResearcher(mocks.NewCorpusResearcher()),
		workflow.WithArtifactWriter(writer),
	)
	report, err := engine.Run(context.Background(), workflow.NewSequential("court", steps...), "Marie Curie")
	require.NoError(t, err)

	require.Equal(t, []string{"reports/Marie Curie_verdict.txt"}, writer.Paths())
	content, err := writer.Read(context.Background(), "reports/Marie Curie_verdict.txt")
	require.NoError(t, err)
	assert.Equal(t, RenderReport(report.State), content)
	assert.Contains(t, content, "1) Achievements")
	assert.Contains(t, content, "2) Controversies and Criticism\n- (no evidence recorded)")
	assert.Contains(t, content, "3) Neutral Conclusion")
}

func TestRuleBackend_UnknownRole(t *testing.T) {
	b := NewRuleBackend(DefaultRuleConfig(), nil)
	_, err := workflow.NewEngine().Run(context.Background(),
		workflow.Step(NewAgentTask("bailiff", "", workflow.Policy{}, b)), "")
	testutil.AssertErrorCode(t, err, types.ErrBackendFailure)
}

func TestRenderReport_NeverEmpty(t *testing.T) {
	out := RenderReport(workflow.Snapshot{Topic: "Nobody"})
	assert.Contains(t, out, "Historical Court Verdict: Nobody")
	assert.Contains(t, out, "inconclusive")
}

func TestRenderInstructions(t *testing.T) {
	state := workflow.NewSessionState()
	state.Reset()
	state.Set(workflow.FieldTopic, "Ada")
	state.Append(workflow.FieldPositiveEvidence, "first program")
	state.Set(workflow.FieldPositiveRounds, 1)

	out := RenderInstructions("About {topic}. Positive:\n{pos_data?}\nNegative:\n{neg_data}\nRound {pos_round}", state)
	assert.Equal(t, "About Ada. Positive:\n- first program\nNegative:\n(none)\nRound 1", out)
}

func TestRetryingBackend(t *testing.T) {
	policy := &retry.Policy{Attempts: 3, InitialDelay: 1, MaxDelay: 1, Multiplier: 1}
	calls := 0
	inner := Func(func(ctx context.Context, inv *Invocation) error {
		calls++
		if calls < 3 {
			return types.NewTransientError("busy", errors.New("429"))
		}
		return nil
	})

	b := WithRetry(inner, retry.NewBackoffRetryer(policy, nil), nil)
	require.NoError(t, b.Invoke(context.Background(), &Invocation{Task: "clerk"}))
	assert.Equal(t, 3, calls)

	calls = -10
	err := b.Invoke(context.Background(), &Invocation{Task: "clerk"})
	testutil.AssertErrorCode(t, err, types.ErrBackendFailure)
	assert.Equal(t, types.ErrBackendFailure, types.GetErrorCode(err))
}
