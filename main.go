// dupcheck reports methods duplicated across classes of the same Odoo model
// and record ids declared twice among the data files a module registers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/phobologic/dupcheck/internal/check"
	"github.com/phobologic/dupcheck/internal/config"
	"github.com/phobologic/dupcheck/internal/model"
	"github.com/phobologic/dupcheck/internal/report"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// run executes the command line in args. Findings and a clean run both
// print a report to stdout; a run with findings returns an *ExitError.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// flags shared by every analysis command.
type flags struct {
	configFile     string
	format         string
	strict         bool
	ignoreInherits []string
	excludeDirs    []string
	noGitignore    bool
	verbose        bool
}

// analysis is one of the Checker entry points.
type analysis func(*check.Checker, context.Context) (model.Result, error)

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "dupcheck [path]",
		Short: "Find duplicated model methods and record ids in Odoo addons",
		Long: `dupcheck scans an addon tree (default: the current directory) and reports,
per module:

  - methods defined with an identical body in two classes that extend the
    same model (_name / _inherit)
  - record ids declared in two or more data files registered by the module
    manifest

It exits 1 when anything is found, so it can run as a pre-commit hook.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, f, args, (*check.Checker).All)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetVersionTemplate("dupcheck {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "config file (default <path>/"+config.FileName+")")
	pf.StringVar(&f.format, "format", "", "output format: text or toon")
	pf.BoolVar(&f.strict, "strict", false, "exit 1 when a file cannot be parsed")
	pf.StringArrayVar(&f.ignoreInherits, "ignore-inherit", nil, "skip classes inheriting this model (repeatable)")
	pf.StringArrayVar(&f.excludeDirs, "exclude-dir", nil, "directory name to skip (repeatable)")
	pf.BoolVar(&f.noGitignore, "no-gitignore", false, "also scan files ignored by git")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "methods [path]",
			Short: "Report methods duplicated across classes of the same model",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAnalysis(cmd, f, args, (*check.Checker).Methods)
			},
		},
		&cobra.Command{
			Use:   "ids [path]",
			Short: "Report record ids declared in more than one registered data file",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAnalysis(cmd, f, args, (*check.Checker).RecordIDs)
			},
		},
		newInitCommand(),
		newConfigCommand(f),
	)

	return rootCmd
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func runAnalysis(cmd *cobra.Command, f *flags, args []string, fn analysis) error {
	root := rootArg(args)
	logger := newLogger(cmd.ErrOrStderr(), f.verbose)

	cfg, err := loadConfig(cmd, f, root, logger)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	checker, err := check.New(root, cfg, logger)
	if err != nil {
		return err
	}

	res, err := fn(checker, cmd.Context())
	if err != nil {
		return err
	}

	if err := report.Write(cmd.OutOrStdout(), &res, format); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if res.Failed(cfg.Strict) {
		return &ExitError{Code: 1}
	}
	return nil
}

// loadConfig resolves the configuration for root and applies command-line
// overrides on top of it.
func loadConfig(cmd *cobra.Command, f *flags, root string, logger *log.Logger) (*config.Config, error) {
	cfg, path, err := config.Load(config.LoadOptions{Root: root, File: f.configFile})
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("loaded config", "file", path)
	}

	fs := cmd.Flags()
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("strict") {
		cfg.Strict = f.strict
	}
	if f.noGitignore {
		cfg.RespectGitignore = false
	}
	cfg.IgnoredInherits = append(cfg.IgnoredInherits, f.ignoreInherits...)
	cfg.ExcludeDirs = append(cfg.ExcludeDirs, f.excludeDirs...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: "dupcheck",
		Level:  log.WarnLevel,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
