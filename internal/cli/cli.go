package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/classweave/internal/app"
	"github.com/vk/classweave/internal/config"
)

// ExitError is an error that carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns the app configuration,
// whether the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("classweave", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
classweave - incremental class transform dispatcher.

Usage:
  classweave [options] -output DIR [MANIFEST]

Arguments:
  MANIFEST
    Path to the invocation manifest (.hcl).

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestFlag := flagSet.String("manifest", "", "Path to the invocation manifest.")
	configFlag := flagSet.String("config", "", "Path to a .hcl configuration file or directory.")
	outputFlag := flagSet.String("output", "", "Root directory for transform outputs.")
	nameFlag := flagSet.String("name", config.DefaultName, "Name of the transform block to use.")
	metricsPortFlag := flagSet.Int("metrics-port", 0, "Port for the /metrics and /health server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	manifest := *manifestFlag
	if manifest == "" && flagSet.NArg() > 0 {
		manifest = flagSet.Arg(0)
	}
	if manifest == "" {
		slog.Debug("No manifest provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg, err := app.NewConfig(app.Config{
		ConfigPath:   *configFlag,
		ManifestPath: manifest,
		OutputDir:    *outputFlag,
		PipelineName: *nameFlag,
		LogFormat:    strings.ToLower(*logFormatFlag),
		LogLevel:     strings.ToLower(*logLevelFlag),
		MetricsPort:  *metricsPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
