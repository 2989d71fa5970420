// Package watcher re-runs the bundle whenever the input directory changes.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ascbundler/internal/logging"
	"ascbundler/internal/scanner"
)

// relevantOps are the fsnotify operations that can change a bundle.
const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove

// ErrAlreadyStarted is returned by Start on a running watcher.
var ErrAlreadyStarted = errors.New("watcher already started")

// Options configures a Watcher.
type Options struct {
	Debounce   time.Duration   // Quiet period before a run
	Filter     *scanner.Filter // Files whose changes trigger a run; nil accepts all
	InitialRun bool            // Schedule one run as soon as watching starts
	Logger     *slog.Logger
}

// RunHandler performs one bundling pass.
type RunHandler func() error

// Summary contains statistics from a watch session.
type Summary struct {
	Events   int // Relevant filesystem events seen
	Runs     int // Runs started
	Failures int // Runs that returned an error
	Duration time.Duration
}

// Watcher monitors one directory and calls the handler after activity
// settles. Runs never overlap.
type Watcher struct {
	options   Options
	handler   RunHandler
	logger    *slog.Logger
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	dir       string
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	runMu sync.Mutex // serializes handler calls
	runWG sync.WaitGroup

	mu       sync.Mutex
	running  bool
	stopped  bool
	events   int
	runs     int
	failures int
}

// New creates a Watcher.
func New(options Options, handler RunHandler) *Watcher {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Watcher{
		options: options,
		handler: handler,
		logger:  logger,
	}
	w.debouncer = NewDebouncer(options.Debounce, w.trigger)
	return w
}

// Start begins watching dir. It returns once the watch is established.
func (w *Watcher) Start(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyStarted
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatcher.Add(absDir); err != nil {
		fsWatcher.Close()
		return err
	}

	w.fsWatcher = fsWatcher
	w.dir = absDir
	w.done = make(chan struct{})
	w.startTime = time.Now()
	w.running = true
	w.stopped = false

	w.wg.Add(1)
	go w.processEvents()

	w.logger.Info("watching input directory",
		slog.String("path", absDir),
		slog.Duration("debounce", w.options.Debounce))
	if w.options.InitialRun {
		w.debouncer.Add(absDir)
	}
	return nil
}

// Stop ends the session, waits for an in-flight run and returns the statistics.
func (w *Watcher) Stop() *Summary {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.stopped = true
	w.mu.Unlock()

	if wasRunning {
		close(w.done)
		w.wg.Wait()
		w.fsWatcher.Close()
	}
	w.debouncer.CancelAll()
	w.runWG.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	summary := &Summary{
		Events:   w.events,
		Runs:     w.runs,
		Failures: w.failures,
	}
	if !w.startTime.IsZero() {
		summary.Duration = time.Since(w.startTime)
	}
	return summary
}

// Run watches dir until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, dir string) (*Summary, error) {
	if err := w.Start(dir); err != nil {
		return nil, err
	}
	<-ctx.Done()
	return w.Stop(), nil
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&relevantOps == 0 {
		return
	}
	if !w.options.Filter.Accept(event.Name) {
		return
	}

	w.mu.Lock()
	w.events++
	w.mu.Unlock()

	w.logger.Debug("input changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
	w.debouncer.Add(w.dir)
}

// trigger runs the handler once activity in dir has settled.
func (w *Watcher) trigger(string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.runWG.Add(1)
	w.mu.Unlock()
	defer w.runWG.Done()

	w.runMu.Lock()
	defer w.runMu.Unlock()

	var err error
	if w.handler != nil {
		err = w.handler()
	}

	w.mu.Lock()
	w.runs++
	if err != nil {
		w.failures++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("run failed", slog.Any("error", err))
	}
}
