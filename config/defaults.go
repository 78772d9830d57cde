// =============================================================================
// 📦 courtflow 默认配置
// =============================================================================
// 审判默认 6 轮上限、每方 4 条证据；重试 6 次，首次延迟 1s
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Court:     DefaultCourtConfig(),
		Retry:     DefaultRetryConfig(),
		Research:  DefaultResearchConfig(),
		Cache:     DefaultCacheConfig(),
		Audit:     DefaultAuditConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultCourtConfig 返回默认审判配置
func DefaultCourtConfig() CourtConfig {
	return CourtConfig{
		MaxIterations:        6,
		BalanceThreshold:     4,
		ReportDir:            "court_reports",
		DetectWriteConflicts: true,
	}
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     6,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
		Jitter:       true,
	}
}

// DefaultResearchConfig 返回默认检索配置
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{
		Enabled:           true,
		Language:          "en",
		TopK:              3,
		MaxChars:          4000,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 5,
		UserAgent:         "courtflow/1.0 (historical court research)",
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:   false,
		Addr:      "localhost:6379",
		PoolSize:  10,
		TTL:       24 * time.Hour,
		KeyPrefix: "courtflow:",
	}
}

// DefaultAuditConfig 返回默认审计配置
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Type:    "file",
		BaseDir: "./data/audit",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "courtflow:",
		},
		Mongo: MongoConfig{
			Database:   "courtflow",
			Collection: "run_records",
			Timeout:    5 * time.Second,
		},
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "courtflow",
		Name:            "./data/courtflow.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        false,
		OTLPEndpoint:   "localhost:4317",
		Insecure:       true,
		ServiceName:    "courtflow",
		SampleRate:     1.0,
		ExportInterval: 30 * time.Second,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "courtflow",
	}
}
