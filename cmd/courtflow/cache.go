package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BaSui01/courtflow/internal/cache"
	"github.com/BaSui01/courtflow/research"
)

// =============================================================================
// 💾 cache 命令
// =============================================================================

func runCache(args []string) error {
	if len(args) < 1 {
		printCacheUsage(os.Stdout)
		return errors.New("missing cache subcommand")
	}
	switch args[0] {
	case "help", "-h", "--help":
		printCacheUsage(os.Stdout)
		return nil
	}

	fs := flag.NewFlagSet("cache "+args[0], flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return errors.New("research cache is disabled (cache.enabled)")
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	manager, err := cache.NewManager(cacheConfig(cfg.Cache), logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	return cacheCommand(context.Background(), os.Stdout, manager, args[0], fs.Args())
}

// cacheCommand runs one cache subcommand against manager.
func cacheCommand(ctx context.Context, w io.Writer, manager *cache.Manager, sub string, args []string) error {
	switch sub {
	case "stats":
		stats, err := manager.GetStats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Keys:      %d\n", stats.Keys)
		return nil

	case "show":
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errors.New("usage: courtflow cache show <query>")
		}
		entry, ttl, err := research.LookupCached(ctx, manager, query)
		if cache.IsCacheMiss(err) {
			fmt.Fprintf(w, "%q is not cached.\n", query)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Query:     %s\n", entry.Query)
		fmt.Fprintf(w, "Fetched:   %s\n", entry.FetchedAt.Format(time.RFC3339))
		if ttl > 0 {
			fmt.Fprintf(w, "Expires:   in %s\n", ttl.Round(time.Second))
		}
		fmt.Fprintf(w, "\n%s\n", entry.Summary)
		return nil

	case "forget":
		if len(args) == 0 {
			return errors.New("usage: courtflow cache forget <query>...")
		}
		if err := research.ForgetCached(ctx, manager, args...); err != nil {
			return err
		}
		fmt.Fprintf(w, "Forgot %d cached queries.\n", len(args))
		return nil

	case "help", "-h", "--help":
		printCacheUsage(w)
		return nil

	default:
		printCacheUsage(w)
		return fmt.Errorf("unknown cache subcommand: %s", sub)
	}
}

func printCacheUsage(w io.Writer) {
	fmt.Fprintln(w, `Research Cache Commands

Usage:
  courtflow cache <subcommand> [--config <path>] [args]

Subcommands:
  stats              Show the number of keys in the cache database
  show <query>       Print the cached summary for a research query
  forget <query>...  Drop cached summaries so the next run refetches them
  help               Show this help message

Examples:
  courtflow cache show "Marie Curie controversy"
  courtflow cache forget "Marie Curie controversy" "Marie Curie achievements"`)
}
