package runlog

import (
	"encoding/json"
	"time"
)

// TimestampFormat is the layout of event timestamps.
const TimestampFormat = time.RFC3339Nano

type eventJSON struct {
	Timestamp    string            `json:"timestamp"`
	RunID        RunID             `json:"runId"`
	EventType    EventType         `json:"eventType"`
	Status       RunStatus         `json:"status,omitempty"`
	Path         *string           `json:"path,omitempty"`
	Column       *int              `json:"column,omitempty"`
	FileIdentity *FileIdentity     `json:"fileIdentity,omitempty"`
	ErrorMessage *string           `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON writes the event with optional fields omitted when empty.
func (e Event) MarshalJSON() ([]byte, error) {
	ej := eventJSON{
		Timestamp:    e.Timestamp.UTC().Format(TimestampFormat),
		RunID:        e.RunID,
		EventType:    e.EventType,
		Status:       e.Status,
		FileIdentity: e.FileIdentity,
		Metadata:     e.Metadata,
	}
	if e.Path != "" {
		ej.Path = &e.Path
	}
	if e.EventType == EventFileAppended {
		column := e.Column
		ej.Column = &column
	}
	if e.ErrorMessage != "" {
		ej.ErrorMessage = &e.ErrorMessage
	}
	return json.Marshal(ej)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	t, err := time.Parse(TimestampFormat, ej.Timestamp)
	if err != nil {
		return err
	}

	*e = Event{
		Timestamp:    t,
		RunID:        ej.RunID,
		EventType:    ej.EventType,
		Status:       ej.Status,
		FileIdentity: ej.FileIdentity,
		Metadata:     ej.Metadata,
	}
	if ej.Path != nil {
		e.Path = *ej.Path
	}
	if ej.Column != nil {
		e.Column = *ej.Column
	}
	if ej.ErrorMessage != nil {
		e.ErrorMessage = *ej.ErrorMessage
	}
	return nil
}

// UnmarshalJSONLine parses one line of the history file.
func UnmarshalJSONLine(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
