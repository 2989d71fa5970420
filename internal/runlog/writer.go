package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoActiveRun is returned when an event is recorded outside StartRun/EndRun.
var ErrNoActiveRun = errors.New("no active run")

// RunStart describes the run being started.
type RunStart struct {
	InputDirectory string
	Reference      string
	AppendMode     string
}

// DefaultMaxSize is the history file size that triggers rotation.
const DefaultMaxSize int64 = 10 * 1024 * 1024

// Config configures a Writer.
type Config struct {
	Directory string
	MaxSize   int64 // Rotate after a run once the file reaches this size; <= 0 never rotates
}

// Writer appends events to the history file. Every event is flushed and
// synced before the call returns.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	writer     *bufio.Writer
	logPath    string
	maxSize    int64
	currentRun *RunID
	now        func() time.Time
}

// NewRunID returns a fresh random run identifier.
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// NewWriter opens (creating if needed) the history file in cfg.Directory.
func NewWriter(cfg Config) (*Writer, error) {
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}

	logPath := filepath.Join(cfg.Directory, LogFileName)
	file, err := openLog(logPath)
	if err != nil {
		return nil, err
	}

	return &Writer{
		file:    file,
		writer:  bufio.NewWriter(file),
		logPath: logPath,
		maxSize: cfg.MaxSize,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func openLog(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	return file, nil
}

// StartRun writes RUN_START under a new run ID and makes it the active run.
func (w *Writer) StartRun(start RunStart) (RunID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := NewRunID()
	event := Event{
		Timestamp: w.now(),
		RunID:     runID,
		EventType: EventRunStart,
		Status:    RunStatusInProgress,
		Path:      start.InputDirectory,
		Metadata: map[string]string{
			"reference":  start.Reference,
			"appendMode": start.AppendMode,
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	return runID, nil
}

// RecordFileAppended records that path became column of the active run.
// identity may be nil.
func (w *Writer) RecordFileAppended(path string, column int, identity *FileIdentity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}
	return w.writeEventLocked(Event{
		Timestamp:    w.now(),
		RunID:        *w.currentRun,
		EventType:    EventFileAppended,
		Path:         path,
		Column:       column,
		FileIdentity: identity,
	})
}

// RecordOutput records a file written by the active run.
func (w *Writer) RecordOutput(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}
	return w.writeEventLocked(Event{
		Timestamp: w.now(),
		RunID:     *w.currentRun,
		EventType: EventOutputWritten,
		Path:      path,
	})
}

// EndRun writes RUN_END with the final status and clears the active run.
func (w *Writer) EndRun(runID RunID, status RunStatus, summary RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event := Event{
		Timestamp:    w.now(),
		RunID:        runID,
		EventType:    EventRunEnd,
		Status:       status,
		ErrorMessage: summary.Error,
		Metadata: map[string]string{
			"files":       strconv.Itoa(summary.Files),
			"wavelengths": strconv.Itoa(summary.Wavelengths),
			"outputs":     strconv.Itoa(summary.Outputs),
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write RUN_END event: %w", err)
	}

	w.currentRun = nil
	return w.rotateIfNeededLocked()
}

// rotateIfNeededLocked starts a fresh history file once the active one is
// full. It only runs between runs so a run never spans two files.
func (w *Writer) rotateIfNeededLocked() error {
	full, err := needsRotation(w.logPath, w.maxSize)
	if err != nil || !full {
		return err
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close run log for rotation: %w", err)
	}
	if _, err := rotate(w.logPath, w.now()); err != nil {
		return err
	}
	file, err := openLog(w.logPath)
	if err != nil {
		return err
	}
	w.file = file
	w.writer = bufio.NewWriter(file)
	return nil
}

func (w *Writer) writeEventLocked(event Event) error {
	data, err := event.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event to disk: %w", err)
	}
	return nil
}

// CurrentRunID returns the active run, or nil.
func (w *Writer) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentRun
}

// LogPath returns the history file path.
func (w *Writer) LogPath() string {
	return w.logPath
}

// Close flushes and closes the history file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close run log: %w", err)
	}
	return nil
}
