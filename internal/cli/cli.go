package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/compreg/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of the COMPREG_* environment
// described by environ (nil means the process environment); flags win. It
// returns a populated Config, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, environ map[string]string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	base, err := app.ConfigFromEnv(environ)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("compreg", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
compreg - Spawn entities from HCL definitions through a registry of Go component types.

Usage:
  compreg [options] [DEFINITIONS_PATH]

Arguments:
  DEFINITIONS_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Every option can also be set through a COMPREG_* environment variable
(for example COMPREG_WORKERS=4).

Options:
`)
		flagSet.PrintDefaults()
	}

	defsFlag := flagSet.String("definitions", "", "Path to the definitions file or directory.")
	dFlag := flagSet.String("d", "", "Path to the definitions file or directory (shorthand).")
	manifestsFlag := flagSet.String("manifests-path", base.ManifestsPath, "Path to the directory containing component manifests.")
	healthPortFlag := flagSet.Int("healthcheck-port", base.HealthcheckPort, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", base.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", base.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", base.WorkerCount, "Number of entities loaded concurrently.")
	policyFlag := flagSet.String("on-error", base.ErrorPolicy, "What to do when an entity fails to load. Options: 'abort' or 'skip'.")
	dumpFlag := flagSet.String("dump", base.Dump, "Print every spawned entity. Options: 'none', 'json' or 'yaml'.")
	describeFlag := flagSet.Bool("describe", base.Describe, "Print the registered components instead of spawning.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := base.DefinitionsPath
	switch {
	case *defsFlag != "":
		path = *defsFlag
	case *dFlag != "":
		path = *dFlag
	case flagSet.NArg() > 0:
		path = flagSet.Arg(0)
	}
	slog.Debug("Definitions path determined.", "path", path)

	if path == "" && !*describeFlag {
		slog.Debug("No definitions path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		DefinitionsPath: path,
		ManifestsPath:   *manifestsFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       strings.ToLower(*logFormatFlag),
		LogLevel:        strings.ToLower(*logLevelFlag),
		WorkerCount:     *workersFlag,
		ErrorPolicy:     strings.ToLower(*policyFlag),
		Dump:            strings.ToLower(*dumpFlag),
		Describe:        *describeFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
