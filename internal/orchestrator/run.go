package orchestrator

import (
	"fmt"
	"log/slog"

	"ascbundler/internal/bundle"
	"ascbundler/internal/config"
	"ascbundler/internal/report"
	"ascbundler/internal/runlog"
	"ascbundler/internal/scanner"
)

// run carries the state of a single pass.
type run struct {
	orchestrator *Orchestrator
	history      *runlog.Writer
	summary      *Summary
	logger       *slog.Logger
}

func (r *run) start(inputDir string) error {
	if r.history == nil {
		r.summary.RunID = runlog.NewRunID()
		return nil
	}
	runID, err := r.history.StartRun(runlog.RunStart{
		InputDirectory: inputDir,
		Reference:      r.summary.Reference,
		AppendMode:     r.summary.AppendMode,
	})
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	r.summary.RunID = runID
	return nil
}

func (r *run) finish(runErr error) error {
	if r.history == nil {
		return nil
	}
	status := runlog.RunStatusSuccess
	summary := runlog.RunSummary{
		Files:       r.summary.Files,
		Wavelengths: r.summary.Wavelengths,
		Outputs:     len(r.summary.Outputs),
	}
	if runErr != nil {
		status = runlog.RunStatusFailure
		summary.Error = runErr.Error()
	}
	if err := r.history.EndRun(r.summary.RunID, status, summary); err != nil {
		return fmt.Errorf("record run end: %w", err)
	}
	return nil
}

func (r *run) execute(reference scanner.FileEntry, files []scanner.FileEntry) error {
	cfg := r.orchestrator.config
	out := r.orchestrator.out
	logger := r.logger

	b, err := bundle.New(reference.FullPath)
	if err != nil {
		return err
	}
	r.summary.Wavelengths = b.Len()
	logger.Debug("reference loaded",
		slog.String("path", reference.FullPath),
		slog.Int("wavelengths", b.Len()),
		slog.Int("metadata_lines", len(b.Metadata())))

	out.StartProgress(len(files))
	for i, f := range files {
		if err := r.appendFile(b, f, cfg.AppendMode); err != nil {
			out.EndProgress()
			return err
		}
		r.summary.Files++
		out.UpdateProgress(i + 1)
		out.Verbose("appended %s", f.Name)
		logger.Debug("file appended", slog.String("file", f.Name), slog.Int("column", i))
	}
	out.EndProgress()

	for _, w := range r.writers(cfg) {
		if err := w.write(w.path, b); err != nil {
			return err
		}
		r.summary.Outputs = append(r.summary.Outputs, w.path)
		if r.history != nil {
			if err := r.history.RecordOutput(w.path); err != nil {
				return fmt.Errorf("record output: %w", err)
			}
		}
		logger.Info("output written", slog.String("path", w.path))
	}
	return nil
}

func (r *run) appendFile(b *bundle.Bundle, f scanner.FileEntry, mode string) error {
	var err error
	if mode == config.AppendRaw {
		err = b.AppendRawColumn(f.FullPath)
	} else {
		err = b.AppendColumn(f.FullPath)
	}
	if err != nil {
		return err
	}

	if r.history == nil {
		return nil
	}
	identity, err := runlog.CaptureIdentity(f.FullPath)
	if err != nil {
		r.logger.Warn("failed to hash input", slog.String("file", f.Name), slog.Any("error", err))
		identity = nil
	}
	if err := r.history.RecordFileAppended(f.FullPath, b.Width()-1, identity); err != nil {
		return fmt.Errorf("record append: %w", err)
	}
	return nil
}

type outputWriter struct {
	path  string
	write func(path string, b *bundle.Bundle) error
}

// writers lists the outputs of a run in write order. Raw mode has no
// exposure times, so the normalized table and the plot are skipped.
func (r *run) writers(cfg *config.Configuration) []outputWriter {
	writers := []outputWriter{
		{path: cfg.RawTablePath(), write: report.WriteRawTableFile},
	}
	if cfg.AppendMode != config.AppendRaw {
		writers = append(writers, outputWriter{path: cfg.NormalizedTablePath(), write: report.WriteNormalizedTableFile})
	}
	writers = append(writers, outputWriter{path: cfg.MetadataReportPath(), write: report.WriteMetadataReportFile})
	if plotPath := cfg.PlotPath(); plotPath != "" && cfg.AppendMode != config.AppendRaw {
		writers = append(writers, outputWriter{path: plotPath, write: report.WritePlotFile})
	}
	return writers
}
