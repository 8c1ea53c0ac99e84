package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/levinOo/go-telemetry-project/internal/agent"
	"github.com/levinOo/go-telemetry-project/internal/agent/config"
	"github.com/levinOo/go-telemetry-project/internal/logger"
)

var (
	buildVersion string = "N/A"
	buildDate    string = "N/A"
	buildCommit  string = "N/A"
)

func main() {
	printBuildInfo(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func printBuildInfo(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", buildVersion)
	fmt.Fprintf(w, "Build date: %s\n", buildDate)
	fmt.Fprintf(w, "Build commit: %s\n", buildCommit)
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	sugar := logger.NewLogger(cfg.LogLevel)
	defer sugar.Sync()

	sugar.Infow("Starting agent",
		"address", cfg.Addr,
		"poll_interval", cfg.PollInterval,
		"report_interval", cfg.ReportInterval,
		"telemetry_enabled", cfg.TelemetryEnabled,
	)

	a, err := agent.New(cfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	return a.Run(ctx)
}
