package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/courtflow/court"
	"github.com/BaSui01/courtflow/persistence"
)

// =============================================================================
// ⚖️ run 命令
// =============================================================================

func runCourt(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	maxIterations := fs.Int("max-iterations", 0, "Override court.max_iterations")
	asJSON := fs.Bool("json", false, "Print the verdict as JSON")
	fs.Parse(args)

	input := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if input == "" {
		return errors.New("usage: courtflow run [options] <topic>")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *maxIterations > 0 {
		cfg.Court.MaxIterations = *maxIterations
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting courtflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	verdict, runErr := a.service.Run(ctx, input)
	if runErr != nil {
		if verdict != nil {
			fmt.Fprintf(os.Stderr, "Run %s about %q failed, trial %s\n", verdict.RunID, verdict.Topic, verdict.Trial)
		}
		return runErr
	}

	if *asJSON {
		return writeJSON(os.Stdout, verdict)
	}
	printVerdict(os.Stdout, verdict)
	return nil
}

func printVerdict(w io.Writer, v *court.Verdict) {
	fmt.Fprintf(w, "Run:       %s\n", v.RunID)
	fmt.Fprintf(w, "Topic:     %s\n", v.Topic)
	fmt.Fprintf(w, "Trial:     %s\n", v.Trial)
	if v.Trial.RaisedBy != "" {
		fmt.Fprintf(w, "Ended by:  %s\n", v.Trial.RaisedBy)
	}
	fmt.Fprintf(w, "Evidence:  %d positive, %d negative\n", len(v.State.PositiveEvidence), len(v.State.NegativeEvidence))
	fmt.Fprintf(w, "Report:    %s (%d tokens)\n", v.ReportPath, v.ReportTokens)
	fmt.Fprintf(w, "Duration:  %s\n\n", v.Duration.Round(time.Millisecond))
	fmt.Fprint(w, v.Report)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// 📄 show 命令
// =============================================================================

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: courtflow show [options] <run-id>")
	}

	return withApp(*configPath, func(ctx context.Context, a *app) error {
		record, report, err := a.service.Report(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		printRecord(os.Stdout, record)
		if report == "" {
			fmt.Println("\n(no report was written)")
			return nil
		}
		fmt.Println()
		fmt.Print(report)
		return nil
	})
}

func printRecord(w io.Writer, r *persistence.RunRecord) {
	fmt.Fprintf(w, "Run:       %s\n", r.ID)
	fmt.Fprintf(w, "Topic:     %s\n", r.Topic)
	fmt.Fprintf(w, "Status:    %s\n", r.Status)
	fmt.Fprintf(w, "Trial:     %s after %d iterations\n", r.LoopState, r.Iterations)
	fmt.Fprintf(w, "Created:   %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	if r.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:     %s\n", r.ErrorMessage)
	}
}

// =============================================================================
// 🗂️ history 命令
// =============================================================================

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	topic := fs.String("topic", "", "Only runs about topic")
	status := fs.String("status", "", "Only runs with status (completed, failed)")
	limit := fs.Int("limit", 20, "Maximum number of runs")
	fs.Parse(args)

	return withApp(*configPath, func(ctx context.Context, a *app) error {
		records, err := a.service.History(ctx, persistence.RunFilter{
			Topic:  *topic,
			Status: persistence.RunStatus(*status),
			Limit:  *limit,
		})
		if err != nil {
			return err
		}
		printHistory(os.Stdout, records)
		return nil
	})
}

func printHistory(w io.Writer, records []*persistence.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTOPIC\tSTATUS\tTRIAL\tITERATIONS\tCREATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Topic, r.Status, r.LoopState, r.Iterations, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

// withApp loads config, opens the app and closes it after fn.
func withApp(configPath string, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	return fn(ctx, a)
}
