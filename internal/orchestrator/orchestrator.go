// Package orchestrator runs one bundling pass: it prepares the input and
// output directories, enumerates the measurement files, merges them into a
// bundle and writes the configured outputs.
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"ascbundler/internal/config"
	"ascbundler/internal/logging"
	"ascbundler/internal/output"
	"ascbundler/internal/runlog"
	"ascbundler/internal/scanner"
)

// LockFileName is created in the output directory while a run writes to it.
const LockFileName = ".ascbundler.lock"

var (
	// ErrDirectoriesCreated reports that missing directories were created and
	// the run stopped so the operator can populate them.
	ErrDirectoriesCreated = errors.New("directories created")
	// ErrNoInputFiles is returned when the input directory holds no measurements.
	ErrNoInputFiles = errors.New("no input files")
	// ErrOutputLocked is returned when another run holds the output directory.
	ErrOutputLocked = errors.New("output directory is in use by another run")
)

// DirectoriesCreatedError lists the directories a run had to create.
type DirectoriesCreatedError struct {
	Paths []string
}

func (e *DirectoriesCreatedError) Error() string {
	return fmt.Sprintf("created missing directories %s; add measurement files and run again",
		strings.Join(e.Paths, ", "))
}

func (e *DirectoriesCreatedError) Unwrap() error {
	return ErrDirectoriesCreated
}

// Orchestrator executes runs for one configuration.
type Orchestrator struct {
	config *config.Configuration
	logger *slog.Logger
	out    *output.Output
}

// NewOrchestrator creates an Orchestrator. A nil logger or output discards
// what would have been written to it.
func NewOrchestrator(cfg *config.Configuration, logger *slog.Logger, out *output.Output) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if out == nil {
		out = output.Discard()
	}
	return &Orchestrator{config: cfg, logger: logger, out: out}
}

// Config returns the configuration the orchestrator runs with.
func (o *Orchestrator) Config() *config.Configuration {
	return o.config
}

// EnsureDirectories creates the input and output directories when missing.
// If anything was created it returns a *DirectoriesCreatedError.
func EnsureDirectories(cfg *config.Configuration) error {
	var created []string
	for _, dir := range []string{cfg.InputDirectory, cfg.OutputDirectory} {
		info, err := os.Stat(dir)
		switch {
		case err == nil:
			if !info.IsDir() {
				return fmt.Errorf("%s exists and is not a directory", dir)
			}
		case errors.Is(err, os.ErrNotExist):
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
			created = append(created, dir)
		default:
			return fmt.Errorf("failed to stat %s: %w", dir, err)
		}
	}
	if len(created) > 0 {
		return &DirectoriesCreatedError{Paths: created}
	}
	return nil
}

// Run performs one complete bundling pass. It stops at the first error;
// outputs written before the error are not valid.
func (o *Orchestrator) Run() (*Summary, error) {
	start := time.Now()
	cfg := o.config

	if err := EnsureDirectories(cfg); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(cfg.OutputDirectory, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", cfg.OutputDirectory, ErrOutputLocked)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			o.logger.Warn("failed to release output lock", slog.String("path", lock.Path()), slog.Any("error", err))
		}
	}()

	files, err := scanner.Scan(cfg.InputDirectory, scanner.NewFilter(cfg.Extensions, cfg.IgnorePatterns))
	if err != nil {
		return nil, fmt.Errorf("scan input directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", cfg.InputDirectory, ErrNoInputFiles)
	}

	reference, err := chooseReference(files, cfg.ReferenceFile)
	if err != nil {
		return nil, err
	}

	history, err := o.openHistory()
	if err != nil {
		return nil, err
	}
	if history != nil {
		defer history.Close()
	}

	r := &run{
		orchestrator: o,
		history:      history,
		summary: &Summary{
			Reference:  reference.Name,
			AppendMode: cfg.AppendMode,
		},
	}
	if err := r.start(cfg.InputDirectory); err != nil {
		return nil, err
	}

	logger := o.logger.With(slog.String("run_id", string(r.summary.RunID)))
	r.logger = logger
	logger.Info("run started",
		slog.String("input", cfg.InputDirectory),
		slog.String("reference", reference.Name),
		slog.Int("files", len(files)),
		slog.String("append_mode", cfg.AppendMode))

	err = r.execute(reference, files)
	r.summary.Duration = time.Since(start)
	if endErr := r.finish(err); endErr != nil && err == nil {
		err = endErr
	}
	if err != nil {
		logger.Error("run failed", slog.Any("error", err))
		return r.summary, err
	}

	logger.Info("run completed",
		slog.Int("files", r.summary.Files),
		slog.Int("wavelengths", r.summary.Wavelengths),
		slog.Duration("duration", r.summary.Duration))
	return r.summary, nil
}

func (o *Orchestrator) openHistory() (*runlog.Writer, error) {
	if o.config.RunLog.Disabled {
		return nil, nil
	}
	w, err := runlog.NewWriter(runlog.Config{
		Directory: o.config.RunLogDirectory(),
		MaxSize:   o.config.RunLog.MaxSizeBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return w, nil
}

// chooseReference returns the configured reference file, or the first file
// in listing order when none is configured.
func chooseReference(files []scanner.FileEntry, name string) (scanner.FileEntry, error) {
	if name == "" {
		return files[0], nil
	}
	for _, f := range files {
		if f.Name == name {
			return f, nil
		}
	}
	return scanner.FileEntry{}, fmt.Errorf("reference file %q not found among input files", name)
}
