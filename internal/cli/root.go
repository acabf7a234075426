package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"correlationcount/internal/config"
	"correlationcount/internal/logging"
	"correlationcount/internal/plugin"
	"correlationcount/internal/recordio"
)

// Exit codes returned by Execute.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// errInvalidRecord marks a validate run that found rule errors; the error map is already printed.
var errInvalidRecord = errors.New("record has validation errors")

// configError marks failures of the config source so Execute can pick ExitConfig.
type configError struct {
	err error
}

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

// app carries flags and per-run state shared by subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	configDir  string
	output     string
	color      bool

	cfg        config.Config
	logger     *slog.Logger
	cleanup    func()
	descriptor plugin.Descriptor
}

// Execute runs the CLI.
// Params: arguments without program name, and output writers.
// Returns: process exit code (2 for a bad config source, 1 for other failures).
func Execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if a.cleanup != nil {
		a.cleanup()
	}
	if err == nil {
		return ExitOK
	}
	if !errors.Is(err, errInvalidRecord) {
		_, _ = fmt.Fprintln(stderr, "error:", err.Error())
	}
	var cfgErr configError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	return ExitFailure
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "correlationcount",
		Short: "Edit, normalize, and summarize correlation-count alert rules",
		Long: `correlationcount works with the configuration records of the
"Correlation Count Alert Condition" event definition type.

Commands:
  describe   - Print the type descriptor and default config
  normalize  - Detect the record layout and print the canonical config
  validate   - Print rule validation errors (exit 1 when any)
  form       - Print the edit form model
  summary    - Render the read-only summary
  edit       - Apply edits through a change session
  duration   - Convert between milliseconds and readable pairs`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config-file", "", "path to one TOML config file")
	flags.StringVar(&a.configDir, "config-dir", "", "path to directory with TOML config fragments")
	flags.StringVarP(&a.output, "output", "o", recordio.FormatJSON, "output format: json|yaml")
	flags.BoolVar(&a.color, "color", false, "colorize line-format console logs")

	root.AddCommand(
		a.describeCommand(),
		a.normalizeCommand(),
		a.validateCommand(),
		a.formCommand(),
		a.summaryCommand(),
		a.editCommand(),
		a.durationCommand(),
	)
	return root
}

// setup loads config, builds the logger, and registers the descriptor.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch a.output {
	case recordio.FormatJSON, recordio.FormatYAML:
	default:
		return fmt.Errorf("--output has unsupported value %q", a.output)
	}
	source, err := config.FromCLI(a.configFile, a.configDir)
	if err != nil {
		return configError{err: err}
	}
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return configError{err: err}
	}
	a.cfg = cfg

	logger, cleanup, err := logging.New(cfg.Log, logging.Options{Console: a.stderr, Color: a.color})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	a.logger = logger.With("service", cfg.Service.Name)
	a.cleanup = cleanup

	descriptor, err := plugin.Register(cfg.Form, cfg.Defaults)
	if err != nil {
		return configError{err: err}
	}
	a.descriptor = descriptor
	a.logger.Debug("config loaded", "command", cmd.Name(), "file", source.File, "dir", source.Dir)
	return nil
}

func (a *app) write(v any) error {
	return recordio.Write(a.stdout, a.output, v)
}
