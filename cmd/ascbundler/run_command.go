package main

import (
	"errors"

	"github.com/spf13/cobra"

	"ascbundler/internal/orchestrator"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Bundle the input directory once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}
			out := ctx.newOutput(cmd)

			summary, err := orchestrator.NewOrchestrator(ctx.config, logger, out).Run()
			if err != nil {
				var created *orchestrator.DirectoriesCreatedError
				if errors.As(err, &created) {
					for _, dir := range created.Paths {
						out.Info("Created %s", dir)
					}
				}
				return err
			}

			out.Block(summary.Table())
			return nil
		},
	}
}
