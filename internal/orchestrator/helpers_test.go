package orchestrator

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"ascbundler/internal/config"
)

// measurement renders a file of wavelengths 0..n-1 with intensity k*i and
// the given exposure time.
func measurement(n, k int, exposure string, extra ...string) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(",")
		sb.WriteString(strconv.Itoa(k * i))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString("Exposure Time (sec): " + exposure + "\n")
	for _, line := range extra {
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// testConfig returns a configuration rooted in a fresh temp directory with
// existing input and output directories.
func testConfig(t *testing.T) *config.Configuration {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.InputDirectory = filepath.Join(root, "input")
	cfg.OutputDirectory = filepath.Join(root, "output")
	for _, dir := range []string{cfg.InputDirectory, cfg.OutputDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}
