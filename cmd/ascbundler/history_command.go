package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ascbundler/internal/output"
	"ascbundler/internal/runlog"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := runlog.NewReader(ctx.config.RunLogDirectory()).ListRuns()
			if err != nil {
				return err
			}
			out := ctx.newOutput(cmd)
			if len(runs) == 0 {
				out.Info("No runs recorded")
				return nil
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[len(runs)-limit:]
			}
			out.Block(renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show only the most recent runs (0 for all)")
	return cmd
}

func renderRuns(runs []runlog.RunInfo) string {
	headers := []string{"Run", "Started", "Status", "Files", "Wavelengths", "Duration", "Error"}
	aligns := []output.Alignment{
		output.AlignLeft, output.AlignLeft, output.AlignLeft,
		output.AlignRight, output.AlignRight, output.AlignRight, output.AlignLeft,
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if run.EndTime != nil {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(run.RunID),
			run.StartTime.Local().Format("2006-01-02 15:04:05"),
			string(run.Status),
			strconv.Itoa(run.Files),
			strconv.Itoa(run.Wavelengths),
			duration,
			run.Error,
		})
	}
	return output.RenderTable(headers, rows, aligns)
}

func shortID(id runlog.RunID) string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
