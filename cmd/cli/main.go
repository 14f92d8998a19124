package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/application"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/pipeline"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/publisher"
)

func main() {
	os.Exit(run())
}

func run() int {
	dryRun := flag.Bool("dry-run", false, "fetch and summarize without publishing")
	testPost := flag.Bool("test-post", false, "publish a fixed test message to check the posting credentials")
	flag.Parse()

	if *testPost {
		return runTestPost()
	}

	// Load returns the parsed config even when validation fails, so the
	// logger honours LOG_LEVEL and LOG_FORMAT while reporting the error.
	cfg, err := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			logger.Error("invalid configuration", "error_kind", pipeline.KindName(err), "missing", cfgErr.Fields, "error", err)
		} else {
			logger.Error("failed to load configuration", "error", err)
		}
		return pipeline.ExitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting run", "pipeline", application.Describe(cfg), "dry_run", *dryRun)

	report, err := application.Run(ctx, cfg, logger, *dryRun)
	if err != nil {
		return pipeline.ExitCode(err)
	}

	if *dryRun {
		fmt.Println(report.Summary)
	}
	return pipeline.ExitOK
}

// runTestPost publishes a fixed message and prints every attempt's
// diagnostics when it fails.
func runTestPost() int {
	cfg := config.FromEnvFile()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := application.TestPost(ctx, cfg, logger)
	if err != nil {
		if attempts := publisher.ProviderErrors(err); len(attempts) > 0 {
			out, _ := json.MarshalIndent(attempts, "", "  ")
			fmt.Println(string(out))
		}
		return pipeline.ExitCode(err)
	}

	fmt.Printf("published %s post %s\n", result.Provider, result.ID)
	return pipeline.ExitOK
}
