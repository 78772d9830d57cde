package court

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/courtflow/artifacts"
	"github.com/BaSui01/courtflow/backend"
	"github.com/BaSui01/courtflow/config"
	"github.com/BaSui01/courtflow/internal/cache"
	"github.com/BaSui01/courtflow/internal/metrics"
	"github.com/BaSui01/courtflow/internal/tokenizer"
	"github.com/BaSui01/courtflow/persistence"
	"github.com/BaSui01/courtflow/research"
	"github.com/BaSui01/courtflow/retry"
	"github.com/BaSui01/courtflow/types"
	"github.com/BaSui01/courtflow/workflow"
	"go.uber.org/zap"
)

// ReportStore writes verdict reports and reads them back.
type ReportStore interface {
	workflow.ArtifactWriter
	Read(ctx context.Context, path string) (string, error)
}

// Verdict is the outcome of one court run.
type Verdict struct {
	RunID        string              `json:"run_id"`
	Input        string              `json:"input"`
	Topic        string              `json:"topic"`
	Trial        workflow.LoopResult `json:"trial"`
	State        workflow.Snapshot   `json:"state"`
	ReportPath   string              `json:"report_path,omitempty"`
	Report       string              `json:"report,omitempty"`
	ReportTokens int                 `json:"report_tokens,omitempty"`
	Duration     time.Duration       `json:"duration"`
}

// Service 审判服务：按配置组装检索源、执行后端、报告存储与审计存储，
// 每次 Run 构建一棵新的工作流并在独立的 SessionState 上执行。
type Service struct {
	cfg *config.Config

	backend    backend.Backend
	researcher workflow.Researcher
	reports    ReportStore
	runs       persistence.RunStore
	cache      *cache.Manager
	metrics    *metrics.Collector
	counter    tokenizer.Counter
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackend replaces the built-in rule backend. The retry wrapper is
// still applied.
func WithBackend(b backend.Backend) Option {
	return func(s *Service) { s.backend = b }
}

// WithResearcher replaces the Wikipedia source. Retry and cache wrappers
// are still applied.
func WithResearcher(r workflow.Researcher) Option {
	return func(s *Service) { s.researcher = r }
}

// WithReportStore sets where verdict reports go. Defaults to a FileStore
// rooted at the working directory.
func WithReportStore(r ReportStore) Option {
	return func(s *Service) { s.reports = r }
}

// WithRunStore enables the audit trail.
func WithRunStore(store persistence.RunStore) Option {
	return func(s *Service) { s.runs = store }
}

// WithCache caches research results in Redis.
func WithCache(m *cache.Manager) Option {
	return func(s *Service) { s.cache = m }
}

// WithMetrics records task, loop, retry and cache metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithTokenCounter sets the counter used for report metadata.
func WithTokenCounter(c tokenizer.Counter) Option {
	return func(s *Service) { s.counter = c }
}

// NewService validates cfg and wires the collaborators. A nil cfg selects
// the defaults.
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "invalid configuration").
			WithComponent("court").
			WithCause(err)
	}

	s := &Service{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "court"))

	if s.backend == nil {
		s.backend = backend.NewRuleBackend(backend.RuleConfig{ReportDir: cfg.Court.ReportDir}, s.logger)
	}
	s.backend = backend.WithRetry(s.backend, s.retryer("backend"), s.logger)

	if s.researcher == nil {
		s.researcher = defaultResearcher(cfg.Research, s.logger)
	}
	s.researcher = research.WithRetry(s.researcher, s.retryer("research"))
	if s.cache != nil {
		cached := research.WithCache(s.researcher, s.cache, cfg.Cache.TTL, s.logger)
		if s.metrics != nil {
			cached = cached.WithObserver(s.metrics)
		}
		s.researcher = cached
	}

	if s.reports == nil {
		store, err := artifacts.NewFileStore(".", s.logger)
		if err != nil {
			return nil, types.NewError(types.ErrPersistenceFailure, "open report store").
				WithComponent("court").
				WithCause(err)
		}
		s.reports = store
	}

	if s.counter == nil {
		s.counter = tokenizer.New(tokenizer.DefaultEncoding, s.logger)
	}
	return s, nil
}

func defaultResearcher(cfg config.ResearchConfig, logger *zap.Logger) workflow.Researcher {
	if !cfg.Enabled {
		logger.Warn("research disabled, queries return empty summaries")
		return research.Offline{}
	}
	return research.NewWikipediaSource(research.WikipediaConfig{
		BaseURL:           cfg.BaseURL,
		Language:          cfg.Language,
		TopK:              cfg.TopK,
		MaxChars:          cfg.MaxChars,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         cfg.UserAgent,
	}, logger)
}

func (s *Service) retryer(component string) retry.Retryer {
	rc := s.cfg.Retry
	policy := &retry.Policy{
		Attempts:     rc.Attempts,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.Multiplier,
		Jitter:       rc.Jitter,
	}
	if s.metrics != nil {
		policy.OnRetry = s.metrics.RetryHook(component)
	}
	return retry.NewBackoffRetryer(policy, s.logger)
}

func (s *Service) observer() workflow.Observer {
	if s.metrics == nil {
		return workflow.NopObserver{}
	}
	return s.metrics
}

// Run puts the subject named by input on trial. The verdict is returned
// together with any error so callers can inspect how far the run got; a
// failed run writes no report.
func (s *Service) Run(ctx context.Context, input string) (*Verdict, error) {
	root, err := NewWorkflow(s.cfg.Court, s.backend)
	if err != nil {
		return nil, err
	}

	writer := &recordingWriter{inner: s.reports}
	engine := workflow.NewEngine(
		workflow.WithLogger(s.logger),
		workflow.WithObserver(s.observer()),
		workflow.WithResearcher(s.researcher),
		workflow.WithArtifactWriter(writer),
		workflow.WithConflictDetection(s.cfg.Court.DetectWriteConflicts),
	)

	report, runErr := engine.Run(ctx, root, input)
	if report == nil {
		return nil, runErr
	}

	v := &Verdict{
		RunID:    report.RunID,
		Input:    input,
		Topic:    report.State.Topic,
		State:    report.State,
		Duration: report.Duration,
	}
	v.Trial, _ = report.Loop(TrialPath)

	if runErr == nil {
		runErr = s.readBack(ctx, v, writer.Path())
	}
	s.audit(ctx, v, runErr)
	return v, runErr
}

func (s *Service) readBack(ctx context.Context, v *Verdict, path string) error {
	if path == "" {
		return types.NewError(types.ErrPersistenceFailure, "run completed without a report").WithComponent("court")
	}
	content, err := s.reports.Read(ctx, path)
	if err != nil {
		return types.Errorf(types.ErrPersistenceFailure, "read back %s", path).
			WithComponent("court").
			WithCause(err)
	}
	v.ReportPath = path
	v.Report = content

	tokens, err := s.counter.CountTokens(content)
	if err != nil {
		s.logger.Warn("token count failed", zap.Error(err))
		return nil
	}
	v.ReportTokens = tokens
	if s.metrics != nil {
		s.metrics.RecordReport(tokens)
	}
	return nil
}

// audit records the run. Audit failures never fail the run.
func (s *Service) audit(ctx context.Context, v *Verdict, runErr error) {
	if s.runs == nil {
		return
	}
	record := &persistence.RunRecord{
		ID:               v.RunID,
		Topic:            v.Topic,
		Input:            v.Input,
		Status:           persistence.RunStatusCompleted,
		LoopState:        string(v.Trial.State),
		Iterations:       v.Trial.Iterations,
		RaisedBy:         v.Trial.RaisedBy,
		PositiveEvidence: v.State.PositiveEvidence,
		NegativeEvidence: v.State.NegativeEvidence,
		JudgeFeedback:    v.State.JudgeFeedback,
		PositiveRounds:   v.State.PositiveRoundCount,
		NegativeRounds:   v.State.NegativeRoundCount,
		ReportPath:       v.ReportPath,
		ReportTokens:     v.ReportTokens,
		Duration:         v.Duration,
		CreatedAt:        time.Now().UTC(),
	}
	if runErr != nil {
		record.Status = persistence.RunStatusFailed
		record.ErrorMessage = runErr.Error()
	}
	if err := s.runs.SaveRun(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Warn("audit record not saved", zap.String("run_id", v.RunID), zap.Error(err))
	}
}

// History lists audited runs, newest first.
func (s *Service) History(ctx context.Context, filter persistence.RunFilter) ([]*persistence.RunRecord, error) {
	if s.runs == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "audit trail is not configured").WithComponent("court")
	}
	return s.runs.ListRuns(ctx, filter)
}

// Report returns the audit record of runID and its report text.
func (s *Service) Report(ctx context.Context, runID string) (*persistence.RunRecord, string, error) {
	if s.runs == nil {
		return nil, "", types.NewError(types.ErrInvalidConfig, "audit trail is not configured").WithComponent("court")
	}
	record, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, "", err
	}
	if record.ReportPath == "" {
		return record, "", nil
	}
	content, err := s.reports.Read(ctx, record.ReportPath)
	if err != nil {
		return record, "", types.Errorf(types.ErrPersistenceFailure, "read %s", record.ReportPath).
			WithComponent("court").
			WithCause(err)
	}
	return record, content, nil
}

// recordingWriter remembers the last path written during one run.
type recordingWriter struct {
	inner workflow.ArtifactWriter

	mu   sync.Mutex
	path string
}

func (w *recordingWriter) Write(ctx context.Context, directory, filename, content string) (string, error) {
	path, err := w.inner.Write(ctx, directory, filename, content)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	w.path = path
	w.mu.Unlock()
	return path, nil
}

func (w *recordingWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}
