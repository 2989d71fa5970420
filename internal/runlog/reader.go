package runlog

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Reader reads the history file written by Writer.
type Reader struct {
	logDir string
}

// NewReader returns a Reader for the history in logDir.
func NewReader(logDir string) *Reader {
	return &Reader{logDir: logDir}
}

// ListRuns returns every recorded run, oldest first. A missing history file
// yields no runs.
func (r *Reader) ListRuns() ([]RunInfo, error) {
	events, err := r.readEvents()
	if err != nil {
		return nil, err
	}

	byRun := make(map[RunID][]Event)
	var order []RunID
	for _, event := range events {
		if event.RunID == "" {
			continue
		}
		if _, seen := byRun[event.RunID]; !seen {
			order = append(order, event.RunID)
		}
		byRun[event.RunID] = append(byRun[event.RunID], event)
	}

	runs := make([]RunInfo, 0, len(order))
	for _, runID := range order {
		runs = append(runs, buildRunInfo(runID, byRun[runID]))
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})
	return runs, nil
}

// GetRun returns all events of one run in file order.
func (r *Reader) GetRun(runID RunID) ([]Event, error) {
	events, err := r.readEvents()
	if err != nil {
		return nil, err
	}

	var runEvents []Event
	for _, event := range events {
		if event.RunID == runID {
			runEvents = append(runEvents, event)
		}
	}
	if len(runEvents) == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return runEvents, nil
}

// LatestRun returns the run with the most recent start time.
func (r *Reader) LatestRun() (*RunInfo, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found")
	}
	return &runs[len(runs)-1], nil
}

func (r *Reader) readEvents() ([]Event, error) {
	files, err := LogFiles(r.logDir)
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, path := range files {
		fileEvents, err := readEventsFromFile(path)
		if err != nil {
			return nil, err
		}
		events = append(events, fileEvents...)
	}
	return events, nil
}

func readEventsFromFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer file.Close()

	const maxScanTokenSize = 1024 * 1024
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	var events []Event
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		event, err := UnmarshalJSONLine(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s line %d: %w", path, lineNum, err)
		}
		events = append(events, *event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading run log: %w", err)
	}
	return events, nil
}

func buildRunInfo(runID RunID, events []Event) RunInfo {
	info := RunInfo{
		RunID:  runID,
		Status: RunStatusInProgress,
	}

	appended := 0
	for _, event := range events {
		switch event.EventType {
		case EventRunStart:
			info.StartTime = event.Timestamp
			info.InputDirectory = event.Path
			info.Reference = event.Metadata["reference"]
			info.AppendMode = event.Metadata["appendMode"]

		case EventFileAppended:
			appended++

		case EventOutputWritten:
			info.Outputs = append(info.Outputs, event.Path)

		case EventRunEnd:
			endTime := event.Timestamp
			info.EndTime = &endTime
			info.Status = event.Status
			info.Error = event.ErrorMessage
			if v, err := strconv.Atoi(event.Metadata["files"]); err == nil {
				info.Files = v
			}
			if v, err := strconv.Atoi(event.Metadata["wavelengths"]); err == nil {
				info.Wavelengths = v
			}
		}
	}

	// Runs that never reached RUN_END still report what they appended.
	if info.EndTime == nil {
		info.Files = appended
	}
	return info
}
