package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/courtflow/types"
	"github.com/BaSui01/courtflow/workflow"
	"go.uber.org/zap"
)

// Worker role names understood by RuleBackend.
const (
	RoleResetter = "resetter"
	RoleClerk    = "clerk"
	RoleAdmirer  = "admirer"
	RoleCritic   = "critic"
	RoleScribe   = "verdict_scribe"
)

// Stance describes one side of the investigation.
type Stance struct {
	Evidence   workflow.Field
	Rounds     workflow.Field
	Strategies []string
	// Refinements are tried first when the judge's feedback names this side.
	Refinements    []string
	FeedbackMarker string
}

var (
	AdmirerStance = Stance{
		Evidence: workflow.FieldPositiveEvidence,
		Rounds:   workflow.FieldPositiveRounds,
		Strategies: []string{
			"%s achievements",
			"%s accomplishments",
			"%s positive impact",
			"%s inventions",
			"%s scientific contributions",
		},
		Refinements: []string{
			"%s contributions to science",
			"%s contributions to art",
			"%s engineering",
		},
		FeedbackMarker: "positive analysis",
	}

	CriticStance = Stance{
		Evidence: workflow.FieldNegativeEvidence,
		Rounds:   workflow.FieldNegativeRounds,
		Strategies: []string{
			"%s controversy",
			"%s criticism",
			"%s failure",
			"%s unfinished works and failures",
			"%s historical rivalry",
		},
		Refinements: []string{
			"%s failed projects",
			"%s controversies",
		},
		FeedbackMarker: "negative analysis",
	}
)

// RuleConfig tunes the deterministic worker.
type RuleConfig struct {
	ReportDir     string
	ItemsPerRound int
	MaxItemChars  int
}

// DefaultRuleConfig returns the reference settings.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		ReportDir:     "court_reports",
		ItemsPerRound: 2,
		MaxItemChars:  280,
	}
}

// RuleBackend executes the court's worker roles with deterministic rules
// instead of a language model.
type RuleBackend struct {
	cfg    RuleConfig
	logger *zap.Logger
}

// NewRuleBackend creates a RuleBackend. Zero config fields take defaults.
func NewRuleBackend(cfg RuleConfig, logger *zap.Logger) *RuleBackend {
	def := DefaultRuleConfig()
	if cfg.ReportDir == "" {
		cfg.ReportDir = def.ReportDir
	}
	if cfg.ItemsPerRound <= 0 {
		cfg.ItemsPerRound = def.ItemsPerRound
	}
	if cfg.MaxItemChars <= 0 {
		cfg.MaxItemChars = def.MaxItemChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleBackend{cfg: cfg, logger: logger.With(zap.String("component", "rule_backend"))}
}

var _ Backend = (*RuleBackend)(nil)

func (b *RuleBackend) Name() string { return "rules" }

// Invoke dispatches on the invocation's task name.
func (b *RuleBackend) Invoke(ctx context.Context, inv *Invocation) error {
	if inv == nil || inv.Tools == nil {
		return types.NewError(types.ErrBackendFailure, "invocation without tools").WithComponent(b.Name())
	}
	switch inv.Task {
	case RoleResetter:
		_, err := inv.Tools.Do(ctx, workflow.ResetState{})
		return err
	case RoleClerk:
		return b.clerk(ctx, inv)
	case RoleAdmirer:
		return b.investigate(ctx, inv, AdmirerStance)
	case RoleCritic:
		return b.investigate(ctx, inv, CriticStance)
	case RoleScribe:
		return b.scribe(ctx, inv)
	default:
		return types.Errorf(types.ErrBackendFailure, "unknown role %q", inv.Task).WithComponent(b.Name())
	}
}

func (b *RuleBackend) clerk(ctx context.Context, inv *Invocation) error {
	topic := ExtractTopic(inv.Input)
	if topic == "" {
		return types.NewContractViolation(inv.Task, "input %q names no topic", inv.Input)
	}
	_, err := inv.Tools.Do(ctx, workflow.SetField{Field: workflow.FieldTopic, Value: topic})
	return err
}

// investigate queries first and mutates last, so a retried invocation
// starts from unchanged state.
func (b *RuleBackend) investigate(ctx context.Context, inv *Invocation, st Stance) error {
	tc := inv.Tools
	state := tc.State()

	topic := state.String(workflow.FieldTopic)
	if topic == "" {
		return types.NewContractViolation(inv.Task, "no topic to investigate")
	}
	round := state.Int(st.Rounds)

	seen := make(map[string]bool)
	for _, item := range state.Strings(st.Evidence) {
		seen[normalize(item)] = true
	}

	var picked []string
	for _, q := range searchQueries(topic, round, state.String(workflow.FieldJudgeFeedback), st) {
		if len(picked) >= b.cfg.ItemsPerRound {
			break
		}
		res, err := tc.Do(ctx, workflow.Query{Text: q})
		if err != nil {
			return err
		}
		for _, s := range ExtractStatements(res.Summary, b.cfg.MaxItemChars) {
			key := normalize(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			picked = append(picked, s)
			if len(picked) >= b.cfg.ItemsPerRound {
				break
			}
		}
	}

	for _, item := range picked {
		if _, err := tc.Do(ctx, workflow.AppendField{Field: st.Evidence, Value: item}); err != nil {
			return err
		}
	}
	if _, err := tc.Do(ctx, workflow.SetField{Field: st.Rounds, Value: round + 1}); err != nil {
		return err
	}

	b.logger.Debug("evidence gathered",
		zap.String("task", inv.Task),
		zap.Int("round", round+1),
		zap.Int("added", len(picked)))
	return nil
}

// searchQueries orders the keyword strategies for a round: refinements first
// when the feedback targets this side, then every strategy starting at the
// round's own.
func searchQueries(topic string, round int, feedback string, st Stance) []string {
	var out []string
	if feedback != "" && strings.Contains(feedback, st.FeedbackMarker) && len(st.Refinements) > 0 {
		out = append(out, fmt.Sprintf(st.Refinements[round%len(st.Refinements)], topic))
	}
	n := len(st.Strategies)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf(st.Strategies[(round+i)%n], topic))
	}
	return out
}

func (b *RuleBackend) scribe(ctx context.Context, inv *Invocation) error {
	snap := inv.Tools.State().Snapshot()
	if snap.Topic == "" {
		return types.NewContractViolation(inv.Task, "no topic to report on")
	}
	res, err := inv.Tools.Do(ctx, workflow.WriteArtifact{
		Directory: b.cfg.ReportDir,
		Filename:  ReportFilename(snap.Topic),
		Content:   RenderReport(snap),
	})
	if err != nil {
		return err
	}
	b.logger.Info("verdict written", zap.String("topic", snap.Topic), zap.String("path", res.Path))
	return nil
}

// ReportFilename is the artifact name for topic.
func ReportFilename(topic string) string {
	return topic + "_verdict.txt"
}
