// Package output writes human-facing command output: messages, a TTY
// progress line while files are appended, and summary tables.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// progressWidth is the number of columns cleared when the progress line is removed.
const progressWidth = 60

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output handles formatted output with verbose and progress support.
// It is safe for concurrent use; watch mode reports from its debounce goroutine.
type Output struct {
	config Config

	mu              sync.Mutex
	progressActive  bool
	progressTotal   int
	progressCurrent int
}

// New creates an Output, filling in default writers.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{config: config}
}

// DefaultConfig detects whether stdout is a terminal.
func DefaultConfig() Config {
	return Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     IsTerminal(os.Stdout),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Discard returns an Output that writes nothing.
func Discard() *Output {
	return New(Config{Writer: io.Discard, ErrWriter: io.Discard})
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...any) {
	if !o.config.Verbose {
		return
	}
	o.println(o.config.Writer, format, args...)
}

// Info prints an informational message.
func (o *Output) Info(format string, args ...any) {
	o.println(o.config.Writer, format, args...)
}

// Error prints a message to the error writer.
func (o *Output) Error(format string, args ...any) {
	o.println(o.config.ErrWriter, format, args...)
}

// Block prints pre-rendered text such as a table, ensuring a trailing newline.
func (o *Output) Block(text string) {
	if text == "" {
		return
	}
	o.println(o.config.Writer, "%s", text)
}

func (o *Output) println(w io.Writer, format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.clearProgressLocked()
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(w, msg)
	o.redrawProgressLocked()
}

func (o *Output) progressEnabled() bool {
	return o.config.IsTTY && !o.config.Verbose
}

func (o *Output) clearProgressLocked() {
	if o.progressActive && o.progressEnabled() {
		fmt.Fprint(o.config.Writer, "\r"+strings.Repeat(" ", progressWidth)+"\r")
	}
}

func (o *Output) redrawProgressLocked() {
	if o.progressActive && o.progressEnabled() && o.progressCurrent > 0 {
		fmt.Fprintf(o.config.Writer, "\rAppending file %d/%d...", o.progressCurrent, o.progressTotal)
	}
}

// StartProgress begins a progress line for total files. Progress is only
// drawn on a terminal and never in verbose mode.
func (o *Output) StartProgress(total int) {
	if !o.progressEnabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progressActive = true
	o.progressTotal = total
	o.progressCurrent = 0
}

// UpdateProgress redraws the progress line in place.
func (o *Output) UpdateProgress(current int) {
	if !o.progressEnabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.progressActive {
		return
	}
	o.progressCurrent = current
	o.redrawProgressLocked()
}

// EndProgress clears the progress line.
func (o *Output) EndProgress() {
	if !o.progressEnabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.progressActive {
		return
	}
	o.clearProgressLocked()
	o.progressActive = false
}

// IsVerbose reports whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY reports whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}
