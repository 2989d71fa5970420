package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ascbundler/internal/bundle"
	"ascbundler/internal/config"
	"ascbundler/internal/logging"
	"ascbundler/internal/runlog"
)

func TestEnsureDirectoriesCreatesMissing(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDirectory = filepath.Join(root, "input")
	cfg.OutputDirectory = filepath.Join(root, "output")

	err := EnsureDirectories(cfg)
	if !errors.Is(err, ErrDirectoriesCreated) {
		t.Fatalf("expected ErrDirectoriesCreated, got %v", err)
	}
	var created *DirectoriesCreatedError
	if !errors.As(err, &created) || len(created.Paths) != 2 {
		t.Fatalf("expected both directories listed, got %v", err)
	}
	for _, dir := range []string{cfg.InputDirectory, cfg.OutputDirectory} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s was not created", dir)
		}
	}

	if err := EnsureDirectories(cfg); err != nil {
		t.Errorf("second call should succeed, got %v", err)
	}
}

func TestEnsureDirectoriesOnlyOutputMissing(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(cfg.OutputDirectory); err != nil {
		t.Fatal(err)
	}

	var created *DirectoriesCreatedError
	if err := EnsureDirectories(cfg); !errors.As(err, &created) {
		t.Fatalf("expected DirectoriesCreatedError, got %v", err)
	}
	if len(created.Paths) != 1 || created.Paths[0] != cfg.OutputDirectory {
		t.Errorf("created = %v", created.Paths)
	}
}

func TestEnsureDirectoriesRejectsFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(cfg.InputDirectory); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Dir(cfg.InputDirectory), "input", "not a dir")

	err := EnsureDirectories(cfg)
	if err == nil || errors.Is(err, ErrDirectoriesCreated) {
		t.Fatalf("expected a plain error, got %v", err)
	}
}

func TestRunStopsAfterCreatingDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDirectory = filepath.Join(root, "in")
	cfg.OutputDirectory = filepath.Join(root, "out")

	summary, err := NewOrchestrator(cfg, nil, nil).Run()
	if !errors.Is(err, ErrDirectoriesCreated) {
		t.Fatalf("expected ErrDirectoriesCreated, got %v", err)
	}
	if summary != nil {
		t.Error("no summary expected when directories were created")
	}
}

func TestRunMergesInputs(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(11, 1, "1", "Integration: 10"))
	writeFile(t, cfg.InputDirectory, "b.asc", measurement(11, 2, "1"))
	writeFile(t, cfg.InputDirectory, "c.asc", measurement(11, 3, "1"))

	summary, err := NewOrchestrator(cfg, nil, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Files != 3 || summary.Wavelengths != 11 || summary.Reference != "a.asc" {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(summary.Outputs) != 3 {
		t.Errorf("expected 3 outputs, got %v", summary.Outputs)
	}

	raw := readFile(t, cfg.RawTablePath())
	lines := strings.Split(strings.TrimSuffix(raw, "\n"), "\n")
	if len(lines) != 13 {
		t.Fatalf("expected 13 raw lines, got %d", len(lines))
	}
	if lines[0] != "Wave Length (nm),a,b,c" || lines[1] != "Exposure Time (sec),1,1,1" {
		t.Errorf("unexpected header rows: %q %q", lines[0], lines[1])
	}
	if lines[2] != "0,0,0,0" || lines[3] != "1,1,2,3" || lines[12] != "10,10,20,30" {
		t.Errorf("unexpected data rows: %q %q %q", lines[2], lines[3], lines[12])
	}

	normalized := readFile(t, cfg.NormalizedTablePath())
	if !strings.HasPrefix(normalized, "Wave Length (nm),a,b,c\n0,0,0,0\n1,1,2,3\n") {
		t.Errorf("unexpected normalized table:\n%s", normalized)
	}

	if got := readFile(t, cfg.MetadataReportPath()); got != "Exposure Time (sec): 1\nIntegration: 10\n" {
		t.Errorf("unexpected metadata report: %q", got)
	}
}

func TestRunUsesConfiguredReference(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReferenceFile = "b.asc"
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(4, 1, "1", "from a"))
	writeFile(t, cfg.InputDirectory, "b.asc", measurement(4, 2, "2", "from b"))

	summary, err := NewOrchestrator(cfg, nil, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Reference != "b.asc" {
		t.Errorf("reference = %q", summary.Reference)
	}
	if got := readFile(t, cfg.MetadataReportPath()); !strings.Contains(got, "from b") || strings.Contains(got, "from a") {
		t.Errorf("metadata should come from b.asc: %q", got)
	}
	// Column order still follows the listing.
	if raw := readFile(t, cfg.RawTablePath()); !strings.HasPrefix(raw, "Wave Length (nm),a,b\n") {
		t.Errorf("unexpected raw header: %q", raw)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		ref     string
		check   func(error) bool
		wantMsg string
	}{
		{
			name:  "empty input",
			files: nil,
			check: func(err error) bool { return errors.Is(err, ErrNoInputFiles) },
		},
		{
			name:  "unknown reference",
			files: map[string]string{"a.asc": measurement(3, 1, "1")},
			ref:   "zzz.asc",
			check: func(err error) bool { return err != nil && strings.Contains(err.Error(), "zzz.asc") },
		},
		{
			name: "alignment",
			files: map[string]string{
				"a.asc": measurement(5, 1, "1"),
				"b.asc": measurement(4, 1, "1"),
			},
			check: func(err error) bool { return bundle.IsType(err, bundle.AlignmentError) },
		},
		{
			name:  "missing exposure",
			files: map[string]string{"a.asc": "1,2\n3,4\n"},
			check: func(err error) bool { return bundle.IsType(err, bundle.MetadataMissingError) },
		},
		{
			name:  "zero exposure",
			files: map[string]string{"a.asc": measurement(3, 1, "0")},
			check: func(err error) bool { return bundle.IsType(err, bundle.DivideByZeroError) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.ReferenceFile = tt.ref
			for name, content := range tt.files {
				writeFile(t, cfg.InputDirectory, name, content)
			}

			_, err := NewOrchestrator(cfg, nil, nil).Run()
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(6, 1, "2"))
	writeFile(t, cfg.InputDirectory, "b.asc", measurement(6, 2, "4"))

	summary, err := NewOrchestrator(cfg, nil, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	reader := runlog.NewReader(cfg.RunLogDirectory())
	events, err := reader.GetRun(summary.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	counts := make(map[runlog.EventType]int)
	for _, e := range events {
		counts[e.EventType]++
	}
	if counts[runlog.EventRunStart] != 1 || counts[runlog.EventFileAppended] != 2 ||
		counts[runlog.EventOutputWritten] != 3 || counts[runlog.EventRunEnd] != 1 {
		t.Errorf("unexpected event counts: %v", counts)
	}
	if events[1].FileIdentity == nil || events[1].FileIdentity.ContentHash == "" {
		t.Errorf("appended file identity missing: %+v", events[1])
	}

	// Break the second file and run again: the failure is recorded.
	writeFile(t, cfg.InputDirectory, "b.asc", measurement(3, 2, "4"))
	if _, err := NewOrchestrator(cfg, nil, nil).Run(); err == nil {
		t.Fatal("expected alignment failure")
	}

	runs, err := reader.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Status != runlog.RunStatusSuccess || runs[0].Files != 2 {
		t.Errorf("first run = %+v", runs[0])
	}
	if runs[1].Status != runlog.RunStatusFailure || !strings.Contains(runs[1].Error, "ALIGNMENT_ERROR") {
		t.Errorf("second run = %+v", runs[1])
	}
	if runs[1].Files != 1 {
		t.Errorf("failed run appended %d files, want 1", runs[1].Files)
	}
}

func TestRunWithHistoryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.RunLog.Disabled = true
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(3, 1, "1"))

	summary, err := NewOrchestrator(cfg, nil, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.RunID == "" {
		t.Error("run ID should be assigned even without history")
	}
	if _, err := os.Stat(filepath.Join(cfg.RunLogDirectory(), runlog.LogFileName)); !os.IsNotExist(err) {
		t.Errorf("history file should not exist, stat err = %v", err)
	}
}

func TestRunRawModeSkipsNormalizedOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppendMode = config.AppendRaw
	cfg.Outputs.Plot = "spectra.png"
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(4, 1, "1"))
	writeFile(t, cfg.InputDirectory, "b.csv", "0,5\n1,6\n")

	summary, err := NewOrchestrator(cfg, nil, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(summary.Outputs) != 2 {
		t.Errorf("expected raw table and metadata only, got %v", summary.Outputs)
	}
	for _, path := range []string{cfg.NormalizedTablePath(), cfg.PlotPath()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should not be written in raw mode", path)
		}
	}

	want := "Wave Length (nm),,\nExposure Time (sec),,\n0,0,5\n1,1,6\n2,2,\n3,3,\n"
	if got := readFile(t, cfg.RawTablePath()); got != want {
		t.Errorf("raw table = %q, want %q", got, want)
	}
}

func TestRunWritesPlot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Outputs.Plot = "spectra.png"
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(8, 1, "1"))
	writeFile(t, cfg.InputDirectory, "b.asc", measurement(8, 3, "2"))

	summary, err := NewOrchestrator(cfg, nil, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(summary.Outputs) != 4 || summary.Outputs[3] != cfg.PlotPath() {
		t.Errorf("plot should be the last output: %v", summary.Outputs)
	}
	data, err := os.ReadFile(cfg.PlotPath())
	if err != nil {
		t.Fatalf("plot not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("plot is not a PNG")
	}
}

func TestRunHonoursFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extensions = []string{".asc"}
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(3, 1, "1"))
	writeFile(t, cfg.InputDirectory, "notes.txt", "not a measurement")
	writeFile(t, cfg.InputDirectory, "b.asc.tmp", "partial")

	summary, err := NewOrchestrator(cfg, nil, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Files != 1 {
		t.Errorf("expected only a.asc to be bundled, got %d files", summary.Files)
	}
}

func TestRunRejectsLockedOutput(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(3, 1, "1"))

	held := flock.New(filepath.Join(cfg.OutputDirectory, LockFileName))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to take lock: %v", err)
	}
	defer held.Unlock()

	_, err = NewOrchestrator(cfg, nil, nil).Run()
	if !errors.Is(err, ErrOutputLocked) {
		t.Fatalf("expected ErrOutputLocked, got %v", err)
	}
	if _, statErr := os.Stat(cfg.RawTablePath()); !os.IsNotExist(statErr) {
		t.Error("no output should be written while locked")
	}
}

func TestRunLogsWithRunID(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.InputDirectory, "a.asc", measurement(3, 1, "1"))

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	summary, err := NewOrchestrator(cfg, logger, nil).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		t.Fatal("no log output")
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		if entry["run_id"] != string(summary.RunID) {
			t.Errorf("log line missing run_id: %s", line)
		}
	}
}

// Bundling M aligned files always yields M columns in every raw row.
func TestRunRowLengthProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("raw table has M+1 fields per row", prop.ForAll(
		func(n, m int) bool {
			root, err := os.MkdirTemp("", "orchestrator-prop-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(root)

			cfg := config.Default()
			cfg.InputDirectory = filepath.Join(root, "input")
			cfg.OutputDirectory = filepath.Join(root, "output")
			cfg.RunLog.Disabled = true
			os.MkdirAll(cfg.InputDirectory, 0755)
			os.MkdirAll(cfg.OutputDirectory, 0755)
			for j := 0; j < m; j++ {
				name := filepath.Join(cfg.InputDirectory, string(rune('a'+j))+".asc")
				if err := os.WriteFile(name, []byte(measurement(n, j+1, "1")), 0644); err != nil {
					return false
				}
			}

			summary, err := NewOrchestrator(cfg, nil, nil).Run()
			if err != nil || summary.Files != m || summary.Wavelengths != n {
				return false
			}
			data, err := os.ReadFile(cfg.RawTablePath())
			if err != nil {
				return false
			}
			rows := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			if len(rows) != n+2 {
				return false
			}
			for _, row := range rows {
				if len(strings.Split(row, ",")) != m+1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
