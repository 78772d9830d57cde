package metrics

import (
	"time"

	"github.com/BaSui01/courtflow/types"
	"github.com/BaSui01/courtflow/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。实现 workflow.Observer，同时作为研究缓存的
// 命中观察者和重试回调的落点。
type Collector struct {
	// 任务指标
	taskExecutionsTotal *prometheus.CounterVec
	taskDuration        *prometheus.HistogramVec
	tasksInFlight       prometheus.Gauge

	// 循环指标
	loopIterationsTotal *prometheus.CounterVec
	loopOutcomesTotal   *prometheus.CounterVec

	// 运行指标
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	reportTokens prometheus.Histogram

	// 重试指标
	retriesTotal *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

var _ workflow.Observer = (*Collector)(nil)

// NewCollector 创建指标收集器，reg 为空时注册到默认 Registry
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 任务指标
	c.taskExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_executions_total",
			Help:      "Total number of task executions by outcome and error code",
		},
		[]string{"task", "status", "code"},
	)

	c.taskDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"task"},
	)

	c.tasksInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_in_flight",
		Help:      "Number of tasks currently executing",
	})

	// 循环指标
	c.loopIterationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_iterations_total",
			Help:      "Total number of bounded loop iterations started",
		},
		[]string{"loop"},
	)

	c.loopOutcomesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_outcomes_total",
			Help:      "Bounded loop completions by final state",
		},
		[]string{"loop", "state"},
	)

	// 运行指标
	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of workflow runs by status",
		},
		[]string{"workflow", "status"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"workflow"},
	)

	c.reportTokens = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_tokens",
		Help:      "Token count of written verdict reports",
		Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
	})

	// 重试指标
	c.retriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retried transient failures",
		},
		[]string{"component"},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// 数据库指标
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎭 workflow.Observer
// =============================================================================

func (c *Collector) TaskStarted(path string) {
	c.tasksInFlight.Inc()
}

func (c *Collector) TaskFinished(path string, d time.Duration, err error) {
	c.tasksInFlight.Dec()
	status, code := outcome(err)
	c.taskExecutionsTotal.WithLabelValues(path, status, code).Inc()
	c.taskDuration.WithLabelValues(path).Observe(d.Seconds())
}

func (c *Collector) LoopIteration(path string, iteration int) {
	c.loopIterationsTotal.WithLabelValues(path).Inc()
}

func (c *Collector) LoopFinished(path string, result workflow.LoopResult) {
	c.loopOutcomesTotal.WithLabelValues(path, string(result.State)).Inc()
}

func (c *Collector) RunFinished(name string, d time.Duration, err error) {
	status, _ := outcome(err)
	c.runsTotal.WithLabelValues(name, status).Inc()
	c.runDuration.WithLabelValues(name).Observe(d.Seconds())
}

// =============================================================================
// 🔁 重试与缓存
// =============================================================================

// RetryHook 返回可挂到 retry.Policy.OnRetry 的回调
func (c *Collector) RetryHook(component string) func(attempt int, err error, delay time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		c.retriesTotal.WithLabelValues(component).Inc()
	}
}

// CacheHit 记录研究缓存命中
func (c *Collector) CacheHit() {
	c.RecordCacheHit("research")
}

// CacheMiss 记录研究缓存未命中
func (c *Collector) CacheMiss() {
	c.RecordCacheMiss("research")
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordReport 记录报告 token 数
func (c *Collector) RecordReport(tokens int) {
	c.reportTokens.Observe(float64(tokens))
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// outcome 把错误映射为 status 与错误码标签
func outcome(err error) (status, code string) {
	if err == nil {
		return "success", "none"
	}
	if c := types.GetErrorCode(err); c != "" {
		return "error", string(c)
	}
	return "error", "unknown"
}
