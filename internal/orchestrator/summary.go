package orchestrator

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"ascbundler/internal/output"
	"ascbundler/internal/runlog"
)

// Summary describes a finished run.
type Summary struct {
	RunID       runlog.RunID
	Reference   string
	AppendMode  string
	Files       int
	Wavelengths int
	Outputs     []string
	Duration    time.Duration
}

// Table renders the summary for the terminal.
func (s *Summary) Table() string {
	pairs := [][2]string{
		{"Run ID", string(s.RunID)},
		{"Reference", s.Reference},
		{"Append mode", s.AppendMode},
		{"Files", strconv.Itoa(s.Files)},
		{"Wavelengths", strconv.Itoa(s.Wavelengths)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}
	for _, path := range s.Outputs {
		pairs = append(pairs, [2]string{"Output", filepath.Base(path)})
	}
	return output.RenderKeyValues(pairs)
}

// String is a one-line form used by watch mode.
func (s *Summary) String() string {
	return fmt.Sprintf("bundled %d files x %d wavelengths into %d outputs",
		s.Files, s.Wavelengths, len(s.Outputs))
}
