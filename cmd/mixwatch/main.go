package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spachava753/mixwatch/internal/config"
	"github.com/spachava753/mixwatch/internal/executor"
	"github.com/spachava753/mixwatch/internal/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var watch bool
	var poll bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "mixwatch <pipeline.yaml|pipeline.toml>",
		Short: "Build asset pipelines and rebuild them on file changes",
		Long: `mixwatch runs every task in a pipeline config once. With --watch it
keeps watching the tasks' source files and rebuilds a task whenever one of
its files changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPipelineConfig(args[0])
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)

			ctx, stop := signalContext()
			defer stop()

			result, err := executor.RunPipeline(ctx, cfg, executor.Options{
				Watch:        watch,
				ForcePolling: poll,
			})
			if err != nil {
				slog.Error("pipeline failed", "error", err)
				if result == nil {
					return err
				}
			}

			if jsonOut {
				out, _ := json.MarshalIndent(result, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			} else {
				printSummary(cmd, result)
			}

			if err != nil {
				return err
			}
			if result.FailedTasks > 0 {
				return fmt.Errorf("%d task(s) failed", result.FailedTasks)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Watch source files and rebuild on change")
	cmd.Flags().BoolVar(&poll, "poll", false, "Use polling instead of filesystem events when watching")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run result as JSON")

	return cmd
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("interrupt received, shutting down gracefully...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func printSummary(cmd *cobra.Command, result *models.PipelineResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nPipeline: %s\n", result.Name)
	fmt.Fprintf(out, "Total tasks: %d\n", result.TotalTasks)
	fmt.Fprintf(out, "Succeeded: %d\n", result.SucceededTasks)
	fmt.Fprintf(out, "Failed: %d\n", result.FailedTasks)
	fmt.Fprintf(out, "Duration: %.2fs\n", result.TotalDurationSec)
	for _, r := range result.Results {
		if r.Error != nil {
			fmt.Fprintf(out, "  %s: %s (%s)\n", r.Name, r.Error.Message, r.Error.Type)
		}
	}
}
