package bundle

import (
	"math"
	"strconv"
	"strings"
)

// Normalize divides every intensity by its file's exposure time and returns
// a table with the same shape as the bundle's columns. Values are formatted
// with the shortest decimal representation that parses back to the same
// float64.
func Normalize(b *Bundle) ([][]string, error) {
	values, err := NormalizeValues(b)
	if err != nil {
		return nil, err
	}

	table := make([][]string, len(values))
	for i, row := range values {
		table[i] = make([]string, len(row))
		for j, v := range row {
			table[i][j] = FormatValue(v)
		}
	}
	return table, nil
}

// NormalizeValues is Normalize without the string formatting.
func NormalizeValues(b *Bundle) ([][]float64, error) {
	divisors := make([]float64, len(b.exposureTimes))
	for j, raw := range b.exposureTimes {
		t, err := ParseExposureTime(raw)
		if err != nil {
			return nil, columnError(b, j, NumericParseError, "exposure time %q is not a decimal number", raw)
		}
		if t == 0 {
			return nil, columnError(b, j, DivideByZeroError, "exposure time is zero")
		}
		divisors[j] = t
	}

	table := make([][]float64, len(b.columns))
	for i, row := range b.columns {
		table[i] = make([]float64, len(row))
		for j, raw := range row {
			v, err := ParseDecimal(raw)
			if err != nil {
				e := columnError(b, j, NumericParseError, "intensity %q at wavelength %s is not a decimal number", raw, b.wavelengths[i])
				e.Line = i + 1
				return nil, e
			}
			table[i][j] = v / divisors[j]
		}
	}
	return table, nil
}

// ParseDecimal parses the whole of s, less surrounding whitespace, as a
// decimal number. NaN and infinities are rejected.
func ParseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// ParseExposureTime parses an exposure-time value. A unit separated from
// the number by whitespace, as in "1.5 sec", is ignored.
func ParseExposureTime(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, strconv.ErrSyntax
	}
	return ParseDecimal(fields[0])
}

// FormatValue renders v in its shortest round-trip decimal form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func columnError(b *Bundle, j int, t ErrorType, format string, args ...interface{}) *Error {
	name := ""
	if j < len(b.fileNames) {
		name = b.fileNames[j]
	}
	return newError(t, name, format, args...)
}
