package bundle

import (
	"path/filepath"
	"strings"
)

// Bundle is the merged table of a run: one row per wavelength of the
// reference file and one column per appended file.
//
// Every row of columns always has the same length, equal to the number of
// appended files, and exposureTimes and fileNames are indexed in parallel.
type Bundle struct {
	wavelengths   []string
	columns       [][]string
	exposureTimes []string
	fileNames     []string
	metadata      []string
}

// New builds a Bundle from the reference file at path. The file's first
// column fixes the wavelength axis and its metadata block becomes the
// bundle's metadata report. No column is appended yet.
func New(referencePath string) (*Bundle, error) {
	m, err := Parse(referencePath)
	if err != nil {
		return nil, err
	}
	return FromReference(m)
}

// FromReference builds a Bundle from an already parsed reference measurement.
func FromReference(m *Measurement) (*Bundle, error) {
	if len(m.Rows) == 0 {
		return nil, newError(FormatError, m.Path, "reference file has no data rows")
	}

	// strings.Split never returns an empty slice, so field 0 always exists.
	wavelengths, err := m.Field(0)
	if err != nil {
		return nil, err
	}

	columns := make([][]string, len(wavelengths))
	for i := range columns {
		columns[i] = make([]string, 0)
	}

	metadata := make([]string, len(m.Metadata))
	copy(metadata, m.Metadata)

	return &Bundle{
		wavelengths:   wavelengths,
		columns:       columns,
		exposureTimes: make([]string, 0),
		fileNames:     make([]string, 0),
		metadata:      metadata,
	}, nil
}

// AppendColumn parses the file at path and appends its intensity column,
// exposure time and file name. Every check runs before the bundle is
// touched, so on error the bundle is left exactly as it was.
func (b *Bundle) AppendColumn(path string) error {
	m, err := Parse(path)
	if err != nil {
		return err
	}
	return b.AppendMeasurement(m)
}

// AppendMeasurement is AppendColumn for an already parsed file.
func (b *Bundle) AppendMeasurement(m *Measurement) error {
	intensities, err := m.Field(1)
	if err != nil {
		return err
	}
	if len(intensities) != len(b.wavelengths) {
		return newError(AlignmentError, m.Path,
			"intensity column has %d rows, wavelength axis has %d", len(intensities), len(b.wavelengths))
	}

	exposure, err := m.ExposureTime()
	if err != nil {
		return err
	}

	b.push(intensities, exposure, FileName(m.Path))
	return nil
}

// AppendRawColumn appends the second column of a plain two-column file
// without reading its metadata. Unlike AppendColumn it is lenient: missing
// cells and short files are padded with "" and rows past the wavelength
// axis are ignored. The column gets empty exposure-time and file-name
// entries so the parallel slices stay aligned.
func (b *Bundle) AppendRawColumn(path string) error {
	m, err := Parse(path)
	if err != nil {
		return err
	}
	b.AppendRawMeasurement(m)
	return nil
}

// AppendRawMeasurement is AppendRawColumn for an already parsed file.
func (b *Bundle) AppendRawMeasurement(m *Measurement) {
	values := m.FieldOrEmpty(1)
	column := make([]string, len(b.wavelengths))
	copy(column, values)
	b.push(column, "", "")
}

func (b *Bundle) push(column []string, exposure, name string) {
	for i := range b.columns {
		b.columns[i] = append(b.columns[i], column[i])
	}
	b.exposureTimes = append(b.exposureTimes, exposure)
	b.fileNames = append(b.fileNames, name)
}

// Len returns the number of wavelengths.
func (b *Bundle) Len() int {
	return len(b.wavelengths)
}

// Width returns the number of appended files.
func (b *Bundle) Width() int {
	return len(b.fileNames)
}

// Wavelengths returns a copy of the wavelength axis.
func (b *Bundle) Wavelengths() []string {
	return cloneStrings(b.wavelengths)
}

// Row returns a copy of the intensities recorded for wavelength i.
func (b *Bundle) Row(i int) []string {
	return cloneStrings(b.columns[i])
}

// Columns returns a copy of the intensity table, one row per wavelength.
func (b *Bundle) Columns() [][]string {
	rows := make([][]string, len(b.columns))
	for i, row := range b.columns {
		rows[i] = cloneStrings(row)
	}
	return rows
}

// ExposureTimes returns a copy of the per-file exposure times.
func (b *Bundle) ExposureTimes() []string {
	return cloneStrings(b.exposureTimes)
}

// FileNames returns a copy of the per-file names.
func (b *Bundle) FileNames() []string {
	return cloneStrings(b.fileNames)
}

// Metadata returns a copy of the reference file's metadata lines.
func (b *Bundle) Metadata() []string {
	return cloneStrings(b.metadata)
}

// FileName returns the base name of path without directory or extension.
// Dot files such as ".asc" keep their full name.
func FileName(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
