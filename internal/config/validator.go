package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "outputs.rawTable")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// PlotExtensions lists the plot file extensions the renderer supports.
var PlotExtensions = []string{".png", ".svg", ".pdf", ".jpg", ".jpeg", ".tif", ".tiff", ".eps"}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"console": true, "json": true}
)

// ValidateConfig checks the configuration and the directories it names and
// returns all findings. Missing directories are warnings because a run
// creates them.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
	}

	issues := append(ValidateFields(cfg), ValidatePaths(cfg)...)
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			result.Errors = append(result.Errors, issue)
		} else {
			result.Warnings = append(result.Warnings, issue)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateFields checks field values without touching the filesystem.
func ValidateFields(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError
	add := func(field, message string) {
		errors = append(errors, ConfigValidationError{Field: field, Message: message, Severity: SeverityError})
	}

	if strings.TrimSpace(cfg.InputDirectory) == "" {
		add("inputDirectory", "must not be empty")
	}
	if strings.TrimSpace(cfg.OutputDirectory) == "" {
		add("outputDirectory", "must not be empty")
	}
	if cfg.InputDirectory != "" && cfg.OutputDirectory != "" && sameDirectory(cfg.InputDirectory, cfg.OutputDirectory) {
		add("outputDirectory", "must differ from inputDirectory: \""+cfg.OutputDirectory+"\"")
	}

	if cfg.ReferenceFile != "" && filepath.Base(cfg.ReferenceFile) != cfg.ReferenceFile {
		add("referenceFile", "must be a file name inside inputDirectory, not a path: "+cfg.ReferenceFile)
	}

	switch cfg.AppendMode {
	case AppendStrict, AppendRaw:
	default:
		add("appendMode", "invalid append mode: \""+cfg.AppendMode+"\". Must be \"strict\" or \"raw\"")
	}

	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			add(formatField("extensions", i), "extension must start with a dot: \""+ext+"\"")
		}
	}
	for i, pattern := range cfg.IgnorePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			add(formatField("ignorePatterns", i), "invalid glob pattern: \""+pattern+"\"")
		}
	}

	errors = append(errors, validateOutputs(cfg)...)

	if !validLogLevels[cfg.Logging.Level] {
		add("logging.level", "invalid log level: \""+cfg.Logging.Level+"\". Must be debug, info, warn or error")
	}
	if !validLogFormats[cfg.Logging.Format] {
		add("logging.format", "invalid log format: \""+cfg.Logging.Format+"\". Must be \"console\" or \"json\"")
	}
	if !cfg.RunLog.Disabled && cfg.RunLog.Directory != "" && cfg.InputDirectory != "" &&
		sameDirectory(cfg.RunLog.Directory, cfg.InputDirectory) {
		add("runLog.directory", "must differ from inputDirectory: \""+cfg.RunLog.Directory+"\"")
	}
	if cfg.RunLog.MaxSizeBytes < 0 {
		add("runLog.maxSizeBytes", "must be a non-negative integer")
	}
	if cfg.Watch.DebounceMs < 0 {
		add("watch.debounceMs", "must be a non-negative integer")
	}

	return errors
}

// validateOutputs checks that output names are plain, distinct file names.
func validateOutputs(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	names := []struct {
		field    string
		value    string
		optional bool
	}{
		{"outputs.rawTable", cfg.Outputs.RawTable, false},
		{"outputs.normalizedTable", cfg.Outputs.NormalizedTable, false},
		{"outputs.metadataReport", cfg.Outputs.MetadataReport, false},
		{"outputs.plot", cfg.Outputs.Plot, true},
	}

	seen := make(map[string]string)
	for _, n := range names {
		if n.value == "" {
			if !n.optional {
				errors = append(errors, ConfigValidationError{Field: n.field, Message: "must not be empty", Severity: SeverityError})
			}
			continue
		}
		if filepath.Base(n.value) != n.value || n.value == "." || n.value == ".." {
			errors = append(errors, ConfigValidationError{Field: n.field, Message: "must be a file name, not a path: " + n.value, Severity: SeverityError})
			continue
		}
		key := strings.ToLower(n.value)
		if other, exists := seen[key]; exists {
			errors = append(errors, ConfigValidationError{Field: n.field, Message: "duplicate output name \"" + n.value + "\" also used by " + other, Severity: SeverityError})
			continue
		}
		seen[key] = n.field
	}

	if cfg.Outputs.Plot != "" && !isPlotExtension(filepath.Ext(cfg.Outputs.Plot)) {
		errors = append(errors, ConfigValidationError{
			Field:    "outputs.plot",
			Message:  "unsupported plot format \"" + filepath.Ext(cfg.Outputs.Plot) + "\". Must be one of " + strings.Join(PlotExtensions, ", "),
			Severity: SeverityError,
		})
	}

	return errors
}

// ValidatePaths checks the input and output directories.
func ValidatePaths(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	dirs := []struct {
		field string
		path  string
	}{
		{"inputDirectory", cfg.InputDirectory},
		{"outputDirectory", cfg.OutputDirectory},
	}
	for _, d := range dirs {
		if d.path == "" {
			continue
		}
		info, err := os.Stat(d.path)
		if err != nil {
			if os.IsNotExist(err) {
				errors = append(errors, ConfigValidationError{
					Field:    d.field,
					Message:  "directory does not exist and will be created: " + d.path,
					Severity: SeverityWarning,
				})
			} else {
				errors = append(errors, ConfigValidationError{
					Field:    d.field,
					Message:  "error accessing directory: " + err.Error(),
					Severity: SeverityError,
				})
			}
			continue
		}
		if !info.IsDir() {
			errors = append(errors, ConfigValidationError{
				Field:    d.field,
				Message:  "path is not a directory: " + d.path,
				Severity: SeverityError,
			})
		}
	}

	if cfg.ReferenceFile != "" && cfg.InputDirectory != "" {
		ref := filepath.Join(cfg.InputDirectory, cfg.ReferenceFile)
		if _, err := os.Stat(ref); err != nil {
			errors = append(errors, ConfigValidationError{
				Field:    "referenceFile",
				Message:  "reference file not found: " + ref,
				Severity: SeverityWarning,
			})
		}
	}

	return errors
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}

// sameDirectory reports whether two paths name the same directory once
// cleaned and made absolute.
func sameDirectory(dir1, dir2 string) bool {
	abs1, err1 := filepath.Abs(dir1)
	abs2, err2 := filepath.Abs(dir2)
	if err1 != nil || err2 != nil {
		return filepath.Clean(dir1) == filepath.Clean(dir2)
	}
	return abs1 == abs2
}

func isPlotExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range PlotExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
