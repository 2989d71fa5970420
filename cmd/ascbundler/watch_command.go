package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ascbundler/internal/orchestrator"
	"ascbundler/internal/scanner"
	"ascbundler/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-bundle whenever the input directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			logger, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}
			out := ctx.newOutput(cmd)

			if err := orchestrator.EnsureDirectories(cfg); err != nil {
				return err
			}

			orch := orchestrator.NewOrchestrator(cfg, logger, out)
			handler := func() error {
				summary, err := orch.Run()
				if err != nil {
					out.Error("Run failed: %v", err)
					return err
				}
				out.Info("%s (run %s)", summary, summary.RunID)
				return nil
			}

			w := watcher.New(watcher.Options{
				Debounce:   cfg.Debounce(),
				Filter:     scanner.NewFilter(cfg.Extensions, cfg.IgnorePatterns),
				InitialRun: true,
				Logger:     logger,
			}, handler)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out.Info("Watching %s (Ctrl+C to stop)", cfg.InputDirectory)
			summary, err := w.Run(sigCtx, cfg.InputDirectory)
			if err != nil {
				return err
			}
			out.Info("Stopped after %s: %d runs, %d failed", summary.Duration.Round(time.Millisecond), summary.Runs, summary.Failures)
			return nil
		},
	}
}
