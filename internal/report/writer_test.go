package report

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ascbundler/internal/bundle"
)

// buildBundle creates a bundle over wavelengths 1..n and appends one file
// per exposure time; file j has intensity (j+1)*i*exposure at wavelength i.
func buildBundle(t *testing.T, n int, exposures []string, metadata ...string) *bundle.Bundle {
	t.Helper()
	ref := measurement(t, "ref.asc", n, 1, append([]string{"Exposure Time(sec): 1"}, metadata...)...)
	b, err := bundle.FromReference(ref)
	if err != nil {
		t.Fatalf("FromReference failed: %v", err)
	}
	for j, exp := range exposures {
		k, _ := strconv.Atoi(exp)
		m := measurement(t, "file"+strconv.Itoa(j+1)+".asc", n, (j+1)*k, "Exposure Time(sec): "+exp)
		if err := b.AppendMeasurement(m); err != nil {
			t.Fatalf("AppendMeasurement failed: %v", err)
		}
	}
	return b
}

func measurement(t *testing.T, name string, n, k int, metadata ...string) *bundle.Measurement {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		sb.WriteString(strconv.Itoa(i) + "," + strconv.Itoa(k*i) + "\n")
	}
	sb.WriteString("\n" + strings.Join(metadata, "\n") + "\n")
	m, err := bundle.ParseReader(strings.NewReader(sb.String()), name)
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}
	return m
}

func TestWriteRawTable(t *testing.T) {
	b := buildBundle(t, 3, []string{"1", "2"})

	var buf bytes.Buffer
	if err := WriteRawTable(&buf, b); err != nil {
		t.Fatalf("WriteRawTable failed: %v", err)
	}

	want := "Wave Length (nm),file1,file2\n" +
		"Exposure Time (sec),1,2\n" +
		"1,1,4\n" +
		"2,2,8\n" +
		"3,3,12\n"
	if buf.String() != want {
		t.Errorf("raw table =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteRawTableKeepsCellsVerbatim(t *testing.T) {
	ref, err := bundle.ParseReader(strings.NewReader("200.1, 15\n200.2,\"16\"\n\nExposure Time: 2 sec\n"), "dark \"a\".asc")
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}
	b, err := bundle.FromReference(ref)
	if err != nil {
		t.Fatalf("FromReference failed: %v", err)
	}
	if err := b.AppendMeasurement(ref); err != nil {
		t.Fatalf("AppendMeasurement failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteRawTable(&buf, b); err != nil {
		t.Fatalf("WriteRawTable failed: %v", err)
	}

	want := "Wave Length (nm),dark \"a\"\n" +
		"Exposure Time (sec),2 sec\n" +
		"200.1, 15\n" +
		"200.2,\"16\"\n"
	if buf.String() != want {
		t.Errorf("raw table = %q, want %q", buf.String(), want)
	}

	table, err := ReadRawTable(&buf)
	if err != nil {
		t.Fatalf("ReadRawTable failed: %v", err)
	}
	if !reflect.DeepEqual(table.FileNames, []string{`dark "a"`}) {
		t.Errorf("file names = %q", table.FileNames)
	}
	if !reflect.DeepEqual(table.Columns, [][]string{{" 15"}, {`"16"`}}) {
		t.Errorf("columns = %q", table.Columns)
	}
}

func TestWriteRawTableWithoutFiles(t *testing.T) {
	b, err := bundle.FromReference(measurement(t, "ref.asc", 2, 1, "Exposure Time: 1"))
	if err != nil {
		t.Fatalf("FromReference failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteRawTable(&buf, b); err != nil {
		t.Fatalf("WriteRawTable failed: %v", err)
	}
	want := "Wave Length (nm)\nExposure Time (sec)\n1\n2\n"
	if buf.String() != want {
		t.Errorf("raw table = %q, want %q", buf.String(), want)
	}
}

func TestWriteNormalizedTable(t *testing.T) {
	b := buildBundle(t, 3, []string{"1", "2"})

	var buf bytes.Buffer
	if err := WriteNormalizedTable(&buf, b); err != nil {
		t.Fatalf("WriteNormalizedTable failed: %v", err)
	}

	want := "Wave Length (nm),file1,file2\n" +
		"1,1,2\n" +
		"2,2,4\n" +
		"3,3,6\n"
	if buf.String() != want {
		t.Errorf("normalized table =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteMetadataReport(t *testing.T) {
	b := buildBundle(t, 2, []string{"5"}, "Serial: 1234", "Gain: 3")

	var buf bytes.Buffer
	if err := WriteMetadataReport(&buf, b); err != nil {
		t.Fatalf("WriteMetadataReport failed: %v", err)
	}

	want := "Exposure Time(sec): 1\nSerial: 1234\nGain: 3\n"
	if buf.String() != want {
		t.Errorf("metadata report = %q, want %q", buf.String(), want)
	}
}

func TestWritersAreIdempotent(t *testing.T) {
	b := buildBundle(t, 5, []string{"1", "3", "7"})

	writers := map[string]func(*bytes.Buffer) error{
		"raw":        func(w *bytes.Buffer) error { return WriteRawTable(w, b) },
		"normalized": func(w *bytes.Buffer) error { return WriteNormalizedTable(w, b) },
		"metadata":   func(w *bytes.Buffer) error { return WriteMetadataReport(w, b) },
	}
	for name, write := range writers {
		var first, second bytes.Buffer
		if err := write(&first); err != nil {
			t.Fatalf("%s: first write failed: %v", name, err)
		}
		if err := write(&second); err != nil {
			t.Fatalf("%s: second write failed: %v", name, err)
		}
		if !bytes.Equal(first.Bytes(), second.Bytes()) {
			t.Errorf("%s: output differs between writes", name)
		}
	}
}

func TestFileWriters(t *testing.T) {
	dir := t.TempDir()
	b := buildBundle(t, 4, []string{"2"})

	raw := filepath.Join(dir, "bundle.csv")
	norm := filepath.Join(dir, "bundle_normalized.csv")
	meta := filepath.Join(dir, "metadata.txt")

	if err := WriteRawTableFile(raw, b); err != nil {
		t.Fatalf("WriteRawTableFile failed: %v", err)
	}
	if err := WriteNormalizedTableFile(norm, b); err != nil {
		t.Fatalf("WriteNormalizedTableFile failed: %v", err)
	}
	if err := WriteMetadataReportFile(meta, b); err != nil {
		t.Fatalf("WriteMetadataReportFile failed: %v", err)
	}

	for _, p := range []string{raw, norm, meta} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", p, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", p)
		}
	}

	table, err := ReadRawTableFile(raw)
	if err != nil {
		t.Fatalf("ReadRawTableFile failed: %v", err)
	}
	if !reflect.DeepEqual(table.FileNames, []string{"file1"}) {
		t.Errorf("file names = %v", table.FileNames)
	}
}

func TestFileWriterReportsIOError(t *testing.T) {
	b := buildBundle(t, 2, []string{"1"})
	path := filepath.Join(t.TempDir(), "missing", "bundle.csv")

	if err := WriteRawTableFile(path, b); !bundle.IsType(err, bundle.IOError) {
		t.Fatalf("expected IO_ERROR, got %v", err)
	}
}

func TestNormalizedFileNotCreatedOnFailure(t *testing.T) {
	b := buildBundle(t, 2, []string{"0"})
	path := filepath.Join(t.TempDir(), "bundle_normalized.csv")

	if err := WriteNormalizedTableFile(path, b); !bundle.IsType(err, bundle.DivideByZeroError) {
		t.Fatalf("expected DIVIDE_BY_ZERO, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("normalized table should not exist after a failed normalization")
	}
}

func TestReadRawTableRejectsForeignInput(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"single header":  "Wave Length (nm),a\n",
		"wrong header":   "Wavelength,a\nExposure Time (sec),1\n1,2\n",
		"wrong exposure": "Wave Length (nm),a\nExposure,1\n1,2\n",
		"ragged":         "Wave Length (nm),a\nExposure Time (sec),1\n1,2,3\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadRawTable(strings.NewReader(text)); !bundle.IsType(err, bundle.FormatError) {
				t.Errorf("expected FORMAT_ERROR, got %v", err)
			}
		})
	}
}

func TestRawTableRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("reading the raw table recovers the bundle", prop.ForAll(
		func(n int, exposures []int) bool {
			times := make([]string, len(exposures))
			for i, e := range exposures {
				times[i] = strconv.Itoa(e)
			}
			b := buildBundle(t, n, times)

			var buf bytes.Buffer
			if err := WriteRawTable(&buf, b); err != nil {
				t.Logf("WriteRawTable failed: %v", err)
				return false
			}
			table, err := ReadRawTable(&buf)
			if err != nil {
				t.Logf("ReadRawTable failed: %v", err)
				return false
			}

			return reflect.DeepEqual(table.Wavelengths, b.Wavelengths()) &&
				reflect.DeepEqual(table.FileNames, b.FileNames()) &&
				reflect.DeepEqual(table.ExposureTimes, b.ExposureTimes()) &&
				reflect.DeepEqual(table.Columns, b.Columns())
		},
		gen.IntRange(1, 40),
		gen.SliceOf(gen.IntRange(1, 100)).SuchThat(func(v []int) bool { return len(v) > 0 }),
	))

	properties.TestingRun(t)
}
