package runlog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	segmentPrefix = "ascbundler-runs-"
	segmentSuffix = ".jsonl"
)

// needsRotation reports whether the file at logPath has reached maxSize.
// A non-positive maxSize disables rotation.
func needsRotation(logPath string, maxSize int64) (bool, error) {
	if maxSize <= 0 {
		return false, nil
	}
	info, err := os.Stat(logPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat run log: %w", err)
	}
	return info.Size() >= maxSize, nil
}

// segmentName names a rotated segment; names sort chronologically.
// Format: ascbundler-runs-YYYYMMDD-HHMMSS-NNN.jsonl
func segmentName(t time.Time) string {
	return fmt.Sprintf("%s%s-%03d%s", segmentPrefix, t.Format("20060102-150405"), t.Nanosecond()/int(time.Millisecond), segmentSuffix)
}

// rotate renames the active history file to a segment name.
func rotate(logPath string, now time.Time) (string, error) {
	rotatedPath := filepath.Join(filepath.Dir(logPath), segmentName(now))
	if _, err := os.Stat(rotatedPath); err == nil {
		return "", fmt.Errorf("rotated segment %s already exists", rotatedPath)
	}
	if err := os.Rename(logPath, rotatedPath); err != nil {
		return "", fmt.Errorf("failed to rename run log during rotation: %w", err)
	}
	return rotatedPath, nil
}

// DiscoverSegments returns the rotated segments in logDir, oldest first.
func DiscoverSegments(logDir string) ([]string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run log directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == LogFileName {
			continue
		}
		if strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			segments = append(segments, name)
		}
	}
	sort.Strings(segments)
	return segments, nil
}

// LogFiles returns every history file in logDir in chronological order:
// rotated segments first, then the active file if present.
func LogFiles(logDir string) ([]string, error) {
	segments, err := DiscoverSegments(logDir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(segments)+1)
	for _, seg := range segments {
		files = append(files, filepath.Join(logDir, seg))
	}
	active := filepath.Join(logDir, LogFileName)
	if _, err := os.Stat(active); err == nil {
		files = append(files, active)
	}
	return files, nil
}
