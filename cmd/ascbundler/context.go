package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"ascbundler/internal/config"
	"ascbundler/internal/logging"
	"ascbundler/internal/output"
)

// commandContext holds the persistent flags and the configuration they
// resolve to.
type commandContext struct {
	configPath string
	input      string
	output     string
	reference  string
	raw        bool
	plot       string
	verbose    bool
	logFormat  string
	logLevel   string

	config *config.Configuration
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) bindFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Configuration file (.json or .toml)")
	flags.StringVarP(&c.input, "input", "i", "", "Input directory of measurement files")
	flags.StringVarP(&c.output, "output", "o", "", "Output directory for the bundle")
	flags.StringVar(&c.reference, "reference", "", "Reference file name (default: first file in the input directory)")
	flags.BoolVar(&c.raw, "raw", false, "Append plain two-column files without exposure metadata")
	flags.StringVar(&c.plot, "plot", "", "Write a spectrum plot with this file name")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Print each appended file")
	flags.StringVar(&c.logFormat, "log-format", "", "Log format: console or json")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// ensureConfig loads the configuration once and applies flag overrides.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Configuration, error) {
	if c.config != nil {
		return c.config, nil
	}

	cfg, err := config.LoadOrDefault(strings.TrimSpace(c.configPath))
	if err != nil {
		return nil, err
	}
	c.applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c.config = cfg
	return cfg, nil
}

func (c *commandContext) applyOverrides(cmd *cobra.Command, cfg *config.Configuration) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputDirectory = c.input
	}
	if flags.Changed("output") {
		cfg.OutputDirectory = c.output
	}
	if flags.Changed("reference") {
		cfg.ReferenceFile = c.reference
	}
	if flags.Changed("raw") {
		if c.raw {
			cfg.AppendMode = config.AppendRaw
		} else {
			cfg.AppendMode = config.AppendStrict
		}
	}
	if flags.Changed("plot") {
		cfg.Outputs.Plot = c.plot
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = c.logFormat
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.logLevel
	}
}

func (c *commandContext) newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:  c.config.Logging.Level,
		Format: c.config.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) newOutput(cmd *cobra.Command) *output.Output {
	w := cmd.OutOrStdout()
	return output.New(output.Config{
		Verbose:   c.verbose,
		Writer:    w,
		ErrWriter: cmd.ErrOrStderr(),
		IsTTY:     output.IsTerminal(w),
	})
}
