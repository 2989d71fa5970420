package bundle

import (
	"io"
	"os"
	"strings"
)

// ExposureTimeKey is the substring that marks the exposure-time metadata line.
const ExposureTimeKey = "Exposure Time"

// Measurement is the parsed content of one spectrometer output file.
// Rows holds the comma-split data block; Metadata holds the raw lines that
// follow the first blank line, with blank lines removed.
type Measurement struct {
	Path     string
	Rows     [][]string
	Metadata []string
}

// Parse reads the file at path and splits it into data rows and metadata lines.
func Parse(path string) (*Measurement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Type: IOError, Path: path, Err: err}
	}
	m := parseText(string(data))
	m.Path = path
	return m, nil
}

// ParseReader is like Parse but reads from r. name is recorded as the
// measurement path and used in error messages.
func ParseReader(r io.Reader, name string) (*Measurement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Type: IOError, Path: name, Err: err}
	}
	m := parseText(string(data))
	m.Path = name
	return m, nil
}

func parseText(text string) *Measurement {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	// Data ends at the first blank line; without one the whole file is data.
	limit := len(lines)
	for i, line := range lines {
		if line == "" {
			limit = i
			break
		}
	}

	m := &Measurement{
		Rows:     make([][]string, 0, limit),
		Metadata: make([]string, 0),
	}
	for _, line := range lines[:limit] {
		m.Rows = append(m.Rows, strings.Split(line, ","))
	}
	for _, line := range lines[limit:] {
		if line != "" {
			m.Metadata = append(m.Metadata, line)
		}
	}
	return m
}

// Field returns column idx of every data row in file order. A row with too
// few fields yields a FormatError whose Line is the 1-based data row.
func (m *Measurement) Field(idx int) ([]string, error) {
	values := make([]string, len(m.Rows))
	for i, row := range m.Rows {
		if len(row) <= idx {
			err := newError(FormatError, m.Path, "data row has %d field(s), need at least %d", len(row), idx+1)
			err.Line = i + 1
			return nil, err
		}
		values[i] = row[idx]
	}
	return values, nil
}

// FieldOrEmpty returns column idx of every data row, using "" for rows that
// are too short.
func (m *Measurement) FieldOrEmpty(idx int) []string {
	values := make([]string, len(m.Rows))
	for i, row := range m.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values
}

// ExposureTime returns the value of the first metadata line containing
// ExposureTimeKey: the trimmed text after its first colon.
func (m *Measurement) ExposureTime() (string, error) {
	for _, line := range m.Metadata {
		if !strings.Contains(line, ExposureTimeKey) {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			return "", newError(FormatError, m.Path, "exposure time line has no colon: %q", line)
		}
		return strings.TrimSpace(value), nil
	}
	return "", newError(MetadataMissingError, m.Path, "no %q line in metadata", ExposureTimeKey)
}
