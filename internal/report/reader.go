package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"ascbundler/internal/bundle"
)

// RawTable is the parsed content of a raw table written by WriteRawTable.
type RawTable struct {
	FileNames     []string
	ExposureTimes []string
	Wavelengths   []string
	Columns       [][]string // One row per wavelength
}

// ReadRawTable parses a raw table: newline-terminated rows of
// comma-separated cells, taken verbatim. Every row must have the same number
// of cells and the two header rows must carry their labels.
func ReadRawTable(r io.Reader) (*RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &bundle.Error{Type: bundle.IOError, Message: "raw table", Err: err}
	}
	records, err := splitRecords(string(data))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, &bundle.Error{Type: bundle.FormatError, Message: fmt.Sprintf("raw table has %d row(s), need both header rows", len(records))}
	}
	if records[0][0] != WavelengthHeader {
		return nil, &bundle.Error{Type: bundle.FormatError, Message: fmt.Sprintf("first header is %q, want %q", records[0][0], WavelengthHeader)}
	}
	if records[1][0] != ExposureHeader {
		return nil, &bundle.Error{Type: bundle.FormatError, Message: fmt.Sprintf("second header is %q, want %q", records[1][0], ExposureHeader)}
	}

	table := &RawTable{
		FileNames:     records[0][1:],
		ExposureTimes: records[1][1:],
		Wavelengths:   make([]string, 0, len(records)-2),
		Columns:       make([][]string, 0, len(records)-2),
	}
	for _, rec := range records[2:] {
		table.Wavelengths = append(table.Wavelengths, rec[0])
		table.Columns = append(table.Columns, rec[1:])
	}
	return table, nil
}

func splitRecords(text string) ([][]string, error) {
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	records := make([][]string, len(lines))
	for i, line := range lines {
		records[i] = strings.Split(line, ",")
		if len(records[i]) != len(records[0]) {
			return nil, &bundle.Error{
				Type:    bundle.FormatError,
				Line:    i + 1,
				Message: fmt.Sprintf("row has %d cell(s), header has %d", len(records[i]), len(records[0])),
			}
		}
	}
	return records, nil
}

// ReadRawTableFile opens path and parses it with ReadRawTable.
func ReadRawTableFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &bundle.Error{Type: bundle.IOError, Path: path, Err: err}
	}
	defer f.Close()

	table, err := ReadRawTable(f)
	if err != nil {
		var be *bundle.Error
		if errors.As(err, &be) && be.Path == "" {
			be.Path = path
		}
		return nil, err
	}
	return table, nil
}
