package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultCourtConfig(), cfg.Court)
	assert.Equal(t, DefaultRetryConfig(), cfg.Retry)
	assert.Equal(t, DefaultResearchConfig(), cfg.Research)
	assert.Equal(t, DefaultCacheConfig(), cfg.Cache)
	assert.Equal(t, DefaultAuditConfig(), cfg.Audit)
	assert.Equal(t, DefaultDatabaseConfig(), cfg.Database)
	assert.Equal(t, DefaultLogConfig(), cfg.Log)
	assert.Equal(t, DefaultTelemetryConfig(), cfg.Telemetry)
	assert.Equal(t, DefaultMetricsConfig(), cfg.Metrics)
}

func TestDefaultCourtConfig(t *testing.T) {
	c := DefaultCourtConfig()
	assert.Equal(t, 6, c.MaxIterations)
	assert.Equal(t, 4, c.BalanceThreshold)
	assert.Equal(t, "court_reports", c.ReportDir)
	assert.True(t, c.DetectWriteConflicts)
}

func TestDefaultRetryConfig(t *testing.T) {
	r := DefaultRetryConfig()
	assert.Equal(t, 6, r.Attempts)
	assert.Equal(t, time.Second, r.InitialDelay)
	assert.Equal(t, 2.0, r.Multiplier)
	assert.Equal(t, 30*time.Second, r.MaxDelay)
	assert.True(t, r.Jitter)
}

func TestDefaultResearchConfig(t *testing.T) {
	r := DefaultResearchConfig()
	assert.True(t, r.Enabled)
	assert.Equal(t, "en", r.Language)
	assert.Equal(t, 3, r.TopK)
	assert.Equal(t, 4000, r.MaxChars)
	assert.Empty(t, r.BaseURL)
}

func TestDefaultAuditConfig(t *testing.T) {
	a := DefaultAuditConfig()
	assert.Equal(t, "file", a.Type)
	assert.Equal(t, "courtflow:", a.Redis.KeyPrefix)
	assert.Equal(t, "run_records", a.Mongo.Collection)
}

func TestDefaultDatabaseConfig(t *testing.T) {
	d := DefaultDatabaseConfig()
	assert.Equal(t, "sqlite", d.Driver)
	assert.LessOrEqual(t, d.MaxIdleConns, d.MaxOpenConns)
	assert.Empty(t, d.MigrationsPath)
}

func TestDefaultObservabilityConfig(t *testing.T) {
	assert.False(t, DefaultTelemetryConfig().Enabled)
	assert.Equal(t, "courtflow", DefaultTelemetryConfig().ServiceName)
	assert.False(t, DefaultMetricsConfig().Enabled)
	assert.Equal(t, "courtflow", DefaultMetricsConfig().Namespace)
	assert.Equal(t, "info", DefaultLogConfig().Level)
}
