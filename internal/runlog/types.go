// Package runlog keeps an append-only JSON-lines history of bundle runs.
package runlog

import "time"

// LogFileName is the name of the history file inside the run log directory.
const LogFileName = "ascbundler-runs.jsonl"

// RunID uniquely identifies a run.
type RunID string

// EventType identifies the kind of history record.
type EventType string

const (
	EventRunStart      EventType = "RUN_START"
	EventFileAppended  EventType = "FILE_APPENDED"
	EventOutputWritten EventType = "OUTPUT_WRITTEN"
	EventRunEnd        EventType = "RUN_END"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunStatusInProgress RunStatus = "IN_PROGRESS"
	RunStatusSuccess    RunStatus = "SUCCESS"
	RunStatusFailure    RunStatus = "FAILURE"
)

// FileIdentity records what an appended file looked like when it was read.
type FileIdentity struct {
	ContentHash string `json:"contentHash"` // SHA-256 hex string
	Size        int64  `json:"size"`
}

// Event is a single history record.
type Event struct {
	Timestamp    time.Time
	RunID        RunID
	EventType    EventType
	Status       RunStatus
	Path         string
	Column       int
	FileIdentity *FileIdentity
	ErrorMessage string
	Metadata     map[string]string
}

// RunSummary is written with RUN_END.
type RunSummary struct {
	Files       int
	Wavelengths int
	Outputs     int
	Error       string
}

// RunInfo is a run reconstructed from its events.
type RunInfo struct {
	RunID          RunID
	StartTime      time.Time
	EndTime        *time.Time
	Status         RunStatus
	InputDirectory string
	Reference      string
	AppendMode     string
	Files          int
	Wavelengths    int
	Outputs        []string
	Error          string
}

// Duration is the wall time of a finished run, or zero while in progress.
func (r RunInfo) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
