// =============================================================================
// courtflow 主入口
// =============================================================================
// 历史法庭命令行入口：一次性运行审判、查看报告与审计记录、管理审计库迁移
//
// 使用方法:
//
//	courtflow run "Marie Curie"                # 运行一次审判
//	courtflow run --config config.yaml Napoleon # 指定配置文件
//	courtflow show <run-id>                    # 查看某次运行的报告
//	courtflow history --topic "Marie Curie"    # 列出审计记录
//	courtflow migrate up                       # 运行数据库迁移
//	courtflow cache show "Napoleon rivalry"    # 查看缓存的检索结果
//	courtflow version                          # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/courtflow/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCourt(os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "cache":
		err = runCache(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("courtflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`courtflow - Historical Court workflow engine

Usage:
  courtflow <command> [options]

Commands:
  run       Put a historical figure or event on trial
  show      Print the verdict report of a past run
  history   List audited runs
  migrate   Audit database migration commands
  cache     Inspect or drop cached research results
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>          Path to configuration file (YAML)
  --max-iterations <n>     Override court.max_iterations
  --json                   Print the verdict as JSON

Options for 'history':
  --topic <topic>          Only runs about topic
  --status <status>        completed or failed
  --limit <n>              Maximum number of runs (default 20)

Examples:
  courtflow run "Tell me about Marie Curie"
  courtflow run --config /etc/courtflow/config.yaml Napoleon
  courtflow show 2f6c1a5e-...
  courtflow history --topic "Marie Curie"
  courtflow migrate up
  courtflow version`)
}

// =============================================================================
// 🔧 配置与日志初始化
// =============================================================================

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.NewLoader().WithConfigPath(path).Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
