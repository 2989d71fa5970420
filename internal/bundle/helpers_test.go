package bundle

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// ascText renders a measurement file: data rows, a blank separator and the
// metadata lines.
func ascText(wavelengths, intensities []string, metadata ...string) string {
	var sb strings.Builder
	for i := range wavelengths {
		sb.WriteString(wavelengths[i])
		sb.WriteString(",")
		sb.WriteString(intensities[i])
		sb.WriteString("\n")
	}
	if len(metadata) > 0 {
		sb.WriteString("\n")
		for _, line := range metadata {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// writeASC writes a measurement file into dir and returns its path.
func writeASC(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// mustParse parses text as a measurement named name.
func mustParse(t *testing.T, text, name string) *Measurement {
	t.Helper()
	m, err := ParseReader(strings.NewReader(text), name)
	if err != nil {
		t.Fatalf("ParseReader(%s) failed: %v", name, err)
	}
	return m
}

// scaled returns strconv'd values k*i for i in [from, to].
func scaled(from, to, k int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, strconv.Itoa(k*i))
	}
	return out
}

// sequence returns the decimal strings from..to inclusive.
func sequence(from, to int) []string {
	return scaled(from, to, 1)
}
