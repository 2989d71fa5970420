// Package config handles configuration loading and validation for ascbundler.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidSyntax   ConfigErrorType = "INVALID_SYNTAX"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
	WriteFailed     ConfigErrorType = "WRITE_FAILED"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		if e.Message != "" {
			return fmt.Sprintf("configuration file not readable: %s: %s", e.Path, e.Message)
		}
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidSyntax:
		return fmt.Sprintf("invalid configuration file %s: %s", e.Path, e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	case WriteFailed:
		return fmt.Sprintf("failed to write configuration file %s: %s", e.Path, e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// Append modes.
const (
	// AppendStrict reads exposure times and rejects misaligned files.
	AppendStrict = "strict"
	// AppendRaw copies the second column of plain two-column files, padding
	// short files and ignoring metadata.
	AppendRaw = "raw"
)

// Default values.
const (
	DefaultInputDirectory  = "input"
	DefaultOutputDirectory = "output"
	DefaultRawTable        = "bundle.csv"
	DefaultNormalizedTable = "bundle_normalized.csv"
	DefaultMetadataReport  = "metadata.txt"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultDebounceMs      = 2000
	DefaultRunLogMaxSize   = 10 * 1024 * 1024
)

// Outputs names the files a run writes into the output directory.
type Outputs struct {
	RawTable        string `json:"rawTable" toml:"rawTable"`
	NormalizedTable string `json:"normalizedTable" toml:"normalizedTable"`
	MetadataReport  string `json:"metadataReport" toml:"metadataReport"`
	Plot            string `json:"plot,omitempty" toml:"plot,omitempty"` // Empty disables the plot
}

// LoggingConfig selects the structured log level and format.
type LoggingConfig struct {
	Level  string `json:"level" toml:"level"`   // debug, info, warn, error
	Format string `json:"format" toml:"format"` // console or json
}

// RunLogConfig controls the run history log.
type RunLogConfig struct {
	Directory    string `json:"directory,omitempty" toml:"directory,omitempty"` // Defaults to the output directory
	Disabled     bool   `json:"disabled,omitempty" toml:"disabled,omitempty"`
	MaxSizeBytes int64  `json:"maxSizeBytes" toml:"maxSizeBytes"` // Rotate the history file at this size
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	DebounceMs int `json:"debounceMs" toml:"debounceMs"`
}

// Configuration holds all settings for a bundling run. It is built once at
// startup and passed to the orchestrator.
type Configuration struct {
	InputDirectory  string        `json:"inputDirectory" toml:"inputDirectory"`
	OutputDirectory string        `json:"outputDirectory" toml:"outputDirectory"`
	ReferenceFile   string        `json:"referenceFile,omitempty" toml:"referenceFile,omitempty"`
	Extensions      []string      `json:"extensions,omitempty" toml:"extensions,omitempty"`
	IgnorePatterns  []string      `json:"ignorePatterns,omitempty" toml:"ignorePatterns,omitempty"`
	AppendMode      string        `json:"appendMode" toml:"appendMode"`
	Outputs         Outputs       `json:"outputs" toml:"outputs"`
	Logging         LoggingConfig `json:"logging" toml:"logging"`
	RunLog          RunLogConfig  `json:"runLog" toml:"runLog"`
	Watch           WatchConfig   `json:"watch" toml:"watch"`
}

// Default returns a complete configuration with every default applied.
func Default() *Configuration {
	cfg := &Configuration{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. The plot,
// reference file, extension list and run log directory stay empty because
// empty is meaningful for them.
func (c *Configuration) ApplyDefaults() {
	if c.InputDirectory == "" {
		c.InputDirectory = DefaultInputDirectory
	}
	if c.OutputDirectory == "" {
		c.OutputDirectory = DefaultOutputDirectory
	}
	if c.AppendMode == "" {
		c.AppendMode = AppendStrict
	}
	if c.IgnorePatterns == nil {
		c.IgnorePatterns = DefaultIgnorePatterns()
	}
	if c.Outputs.RawTable == "" {
		c.Outputs.RawTable = DefaultRawTable
	}
	if c.Outputs.NormalizedTable == "" {
		c.Outputs.NormalizedTable = DefaultNormalizedTable
	}
	if c.Outputs.MetadataReport == "" {
		c.Outputs.MetadataReport = DefaultMetadataReport
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.RunLog.MaxSizeBytes == 0 {
		c.RunLog.MaxSizeBytes = DefaultRunLogMaxSize
	}
	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = DefaultDebounceMs
	}
}

// DefaultIgnorePatterns returns the glob patterns of temporary files that
// are never treated as measurements.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.swp",
		"*~",
		".~*",
		".DS_Store",
		".ascbundler.lock",
	}
}

// Validate checks the configuration for structural problems and returns the
// first one found. Filesystem state is not consulted; see ValidateConfig.
func (c *Configuration) Validate() error {
	for _, issue := range ValidateFields(c) {
		if issue.Severity == SeverityError {
			return &ConfigError{
				Type:    ValidationError,
				Message: issue.Field + ": " + issue.Message,
			}
		}
	}
	return nil
}

// RawTablePath returns the path of the raw table.
func (c *Configuration) RawTablePath() string {
	return filepath.Join(c.OutputDirectory, c.Outputs.RawTable)
}

// NormalizedTablePath returns the path of the normalized table.
func (c *Configuration) NormalizedTablePath() string {
	return filepath.Join(c.OutputDirectory, c.Outputs.NormalizedTable)
}

// MetadataReportPath returns the path of the metadata report.
func (c *Configuration) MetadataReportPath() string {
	return filepath.Join(c.OutputDirectory, c.Outputs.MetadataReport)
}

// PlotPath returns the path of the spectrum plot, or "" when disabled.
func (c *Configuration) PlotPath() string {
	if c.Outputs.Plot == "" {
		return ""
	}
	return filepath.Join(c.OutputDirectory, c.Outputs.Plot)
}

// RunLogDirectory returns where the run history is kept.
func (c *Configuration) RunLogDirectory() string {
	if c.RunLog.Directory != "" {
		return c.RunLog.Directory
	}
	return c.OutputDirectory
}

// Debounce returns the watch-mode debounce delay.
func (c *Configuration) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// IsTOML reports whether path is decoded as TOML rather than JSON.
func IsTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads, decodes and validates a configuration file. Files ending in
// .toml are decoded as TOML, everything else as JSON.
func Load(filePath string) (*Configuration, error) {
	config, err := Read(filePath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Read decodes a configuration file and applies defaults without
// validating it.
func Read(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{
				Type: FileNotFound,
				Path: filePath,
			}
		}
		return nil, &ConfigError{
			Type:    FileNotFound,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	var config Configuration
	if err := decode(filePath, data, &config); err != nil {
		return nil, &ConfigError{
			Type:    InvalidSyntax,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	config.ApplyDefaults()
	return &config, nil
}

// LoadOrDefault loads filePath, or returns Default() when filePath is empty.
func LoadOrDefault(filePath string) (*Configuration, error) {
	if filePath == "" {
		return Default(), nil
	}
	return Load(filePath)
}

// Save serializes a configuration to filePath in the format implied by its
// extension.
func Save(config *Configuration, filePath string) error {
	var (
		data []byte
		err  error
	)
	if IsTOML(filePath) {
		data, err = toml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return &ConfigError{
			Type:    InvalidSyntax,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return &ConfigError{
			Type:    WriteFailed,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	return nil
}

func decode(filePath string, data []byte, v *Configuration) error {
	if IsTOML(filePath) {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
