// Package report serializes a bundle into the raw table, the normalized
// table, the metadata report and an optional spectrum plot.
package report

import (
	"bufio"
	"io"
	"os"
	"strings"

	"ascbundler/internal/bundle"
)

const (
	// WavelengthHeader labels the first column and the file-name header row.
	WavelengthHeader = "Wave Length (nm)"
	// ExposureHeader labels the exposure-time header row of the raw table.
	ExposureHeader = "Exposure Time (sec)"
)

// WriteRawTable writes the file-name header, the exposure-time header and one
// row per wavelength with every appended intensity. Cells are written
// verbatim, joined by commas, one line per row.
func WriteRawTable(w io.Writer, b *bundle.Bundle) error {
	bw := bufio.NewWriter(w)
	if err := writeLine(bw, headerRow(WavelengthHeader, b.FileNames())); err != nil {
		return err
	}
	if err := writeLine(bw, headerRow(ExposureHeader, b.ExposureTimes())); err != nil {
		return err
	}
	if err := writeRows(bw, b.Wavelengths(), b.Columns()); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteNormalizedTable writes the file-name header and one row per
// wavelength of intensity divided by exposure time. Nothing is written when
// normalization fails.
func WriteNormalizedTable(w io.Writer, b *bundle.Bundle) error {
	table, err := bundle.Normalize(b)
	if err != nil {
		return err
	}
	return writeNormalized(w, b, table)
}

func writeNormalized(w io.Writer, b *bundle.Bundle, table [][]string) error {
	bw := bufio.NewWriter(w)
	if err := writeLine(bw, headerRow(WavelengthHeader, b.FileNames())); err != nil {
		return err
	}
	if err := writeRows(bw, b.Wavelengths(), table); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteMetadataReport writes the reference file's metadata lines, one per
// line, followed by a trailing newline.
func WriteMetadataReport(w io.Writer, b *bundle.Bundle) error {
	_, err := io.WriteString(w, strings.Join(b.Metadata(), "\n")+"\n")
	return err
}

// WriteRawTableFile writes the raw table to path, replacing any existing file.
func WriteRawTableFile(path string, b *bundle.Bundle) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteRawTable(w, b)
	})
}

// WriteNormalizedTableFile writes the normalized table to path. The file is
// only created once normalization has succeeded.
func WriteNormalizedTableFile(path string, b *bundle.Bundle) error {
	table, err := bundle.Normalize(b)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		return writeNormalized(w, b, table)
	})
}

// WriteMetadataReportFile writes the metadata report to path.
func WriteMetadataReportFile(path string, b *bundle.Bundle) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteMetadataReport(w, b)
	})
}

// writeFile creates path, hands a buffered writer to fn and closes the file
// on every path. Failures are reported as IO errors.
func writeFile(path string, fn func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &bundle.Error{Type: bundle.IOError, Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &bundle.Error{Type: bundle.IOError, Path: path, Err: cerr}
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return &bundle.Error{Type: bundle.IOError, Path: path, Err: err}
	}
	if err := bw.Flush(); err != nil {
		return &bundle.Error{Type: bundle.IOError, Path: path, Err: err}
	}
	return nil
}

func headerRow(label string, values []string) []string {
	return append([]string{label}, values...)
}

func writeRows(w io.Writer, wavelengths []string, table [][]string) error {
	for i, wl := range wavelengths {
		if err := writeLine(w, headerRow(wl, table[i])); err != nil {
			return err
		}
	}
	return nil
}

func writeLine(w io.Writer, fields []string) error {
	_, err := io.WriteString(w, strings.Join(fields, ",")+"\n")
	return err
}
