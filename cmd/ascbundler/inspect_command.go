package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ascbundler/internal/output"
	"ascbundler/internal/report"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "inspect <raw-table>",
		Short:       "Show the shape of a written raw table",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := report.ReadRawTableFile(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(table.FileNames))
			for j, name := range table.FileNames {
				rows = append(rows, []string{strconv.Itoa(j + 1), name, table.ExposureTimes[j]})
			}

			out := output.New(output.Config{Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()})
			out.Block(output.RenderKeyValues([][2]string{
				{"Table", args[0]},
				{"Files", strconv.Itoa(len(table.FileNames))},
				{"Wavelengths", strconv.Itoa(len(table.Wavelengths))},
				{"Range", wavelengthRange(table.Wavelengths)},
			}))
			out.Block(output.RenderTable(
				[]string{"Column", "File", "Exposure Time"},
				rows,
				[]output.Alignment{output.AlignRight, output.AlignLeft, output.AlignRight},
			))
			return nil
		},
	}
}

func wavelengthRange(wavelengths []string) string {
	if len(wavelengths) == 0 {
		return ""
	}
	return strings.TrimSpace(wavelengths[0]) + " .. " + strings.TrimSpace(wavelengths[len(wavelengths)-1])
}
