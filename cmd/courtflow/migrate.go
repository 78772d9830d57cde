package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/courtflow/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

// runMigrate handles the migrate command and its subcommands
func runMigrate(args []string) error {
	if len(args) < 1 {
		printMigrateUsage()
		return errors.New("missing migrate subcommand")
	}

	subcommand := args[0]
	subargs := args[1:]
	ctx := context.Background()

	switch subcommand {
	case "up":
		return withMigrator("migrate up", subargs, func(cli *migration.CLI) error {
			return cli.RunUp(ctx)
		})
	case "down":
		return withMigrator("migrate down", subargs, func(cli *migration.CLI) error {
			return cli.RunDown(ctx)
		})
	case "down-all", "reset":
		return withMigrator("migrate "+subcommand, subargs, func(cli *migration.CLI) error {
			return cli.RunDownAll(ctx)
		})
	case "status":
		return withMigrator("migrate status", subargs, func(cli *migration.CLI) error {
			return cli.RunStatus(ctx)
		})
	case "info":
		return withMigrator("migrate info", subargs, func(cli *migration.CLI) error {
			return cli.RunInfo(ctx)
		})
	case "version":
		return withMigrator("migrate version", subargs, func(cli *migration.CLI) error {
			return cli.RunVersion(ctx)
		})
	case "steps":
		n, rest, err := intArg("steps", subargs)
		if err != nil {
			return err
		}
		return withMigrator("migrate steps", rest, func(cli *migration.CLI) error {
			return cli.RunSteps(ctx, n)
		})
	case "goto":
		v, rest, err := intArg("goto", subargs)
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("invalid version number: %d", v)
		}
		return withMigrator("migrate goto", rest, func(cli *migration.CLI) error {
			return cli.RunGoto(ctx, uint(v))
		})
	case "force":
		v, rest, err := intArg("force", subargs)
		if err != nil {
			return err
		}
		return withMigrator("migrate force", rest, func(cli *migration.CLI) error {
			return cli.RunForce(ctx, v)
		})
	case "help", "-h", "--help":
		printMigrateUsage()
		return nil
	default:
		printMigrateUsage()
		return fmt.Errorf("unknown migrate subcommand: %s", subcommand)
	}
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Println(`Audit Database Migration Commands

Usage:
  courtflow migrate <subcommand> [options]

Subcommands:
  up          Apply all pending migrations
  down        Rollback the last migration
  down-all    Rollback all migrations (alias: reset)
  steps <n>   Apply n migrations, or roll back -n
  goto <v>    Migrate to a specific version
  force <v>   Force set migration version (use with caution)
  version     Show current migration version
  status      Show migration status
  info        Show migration summary
  help        Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  courtflow migrate up
  courtflow migrate up --config /etc/courtflow/config.yaml
  courtflow migrate steps -1
  courtflow migrate goto 1
  courtflow migrate status --db-type sqlite --db-url ./data/courtflow.db`)
}

func intArg(name string, args []string) (int, []string, error) {
	if len(args) < 1 {
		return 0, nil, fmt.Errorf("usage: courtflow migrate %s <n>", name)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid number: %s", args[0])
	}
	return n, args[1:], nil
}

// createMigrator creates a migrator from command line flags
func createMigrator(fs *flag.FlagSet, args []string) (*migration.DefaultMigrator, error) {
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// If db-type and db-url are provided, use them directly
	if *dbType != "" && *dbURL != "" {
		return migration.NewMigratorFromURL(*dbType, *dbURL)
	}

	// Otherwise, load from config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return nil, err
	}

	// Override database type if specified
	if *dbType != "" {
		cfg.Database.Driver = *dbType
	}

	logger := initLogger(cfg.Log)
	return migration.NewMigratorFromDatabaseConfig(cfg.Database, logger.With(zap.String("command", fs.Name())))
}

func withMigrator(name string, args []string, fn func(cli *migration.CLI) error) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	migrator, err := createMigrator(fs, args)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	cli.SetOutput(os.Stdout)
	return fn(cli)
}
