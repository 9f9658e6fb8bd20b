package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"krar/pkg/config"
	"krar/pkg/core"
	"krar/pkg/progress"
)

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	progress   bool
	quiet      bool
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "YAML config file (default $"+config.EnvVar+")")
	fs.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&g.logFormat, "log-format", "", "log format: text or json")
	fs.BoolVar(&g.progress, "progress", false, "print byte progress")
	fs.BoolVarP(&g.quiet, "quiet", "q", false, "print nothing on success")
}

// env is what every subcommand needs after flag parsing.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracker *progress.Tracker
	stdout  io.Writer
	quiet   bool
}

// setup loads the config file and applies the global flag overrides.
// Subcommand-specific overrides must already be applied through override.
func (g *globalFlags) setup(fs *pflag.FlagSet, stdout, stderr io.Writer, override func(*config.Config)) (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}
	if fs.Changed("progress") {
		cfg.Progress = g.progress
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := cfg.NewLogger(stderr)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger, stdout: stdout, quiet: g.quiet}
	if cfg.Progress && !g.quiet {
		e.tracker = progress.New(stdout)
	}
	return e, nil
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	return fs
}

// runCreate handles the create operation
func runCreate(args []string, stdout, stderr io.Writer) error {
	var g globalFlags
	var compression, level string
	fs := newFlagSet("create", stderr)
	fs.StringVarP(&compression, "compression", "c", "", "payload compression: zstd, lz4 or none")
	fs.StringVarP(&level, "level", "L", "", "compression level: fastest, default, better or best")
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: krar create archive.krar [file...]", errUsage)
	}

	e, err := g.setup(fs, stdout, stderr, func(cfg *config.Config) {
		if fs.Changed("compression") {
			cfg.Compression = compression
		}
		if fs.Changed("level") {
			cfg.Level = level
		}
	})
	if err != nil {
		return err
	}
	compressionOpt, err := e.cfg.CompressionOption()
	if err != nil {
		return err
	}

	archivePath, files := fs.Arg(0), fs.Args()[1:]
	w := core.NewWriter(compressionOpt, core.WithLogger(e.logger), core.WithProgress(e.tracker))
	res, err := w.Create(files, archivePath)
	if err != nil {
		return err
	}
	e.report("Added", res)
	return resultErr(res)
}

// runList handles the list operation
func runList(args []string, stdout, stderr io.Writer) error {
	var g globalFlags
	var format string
	var rawBytes bool
	fs := newFlagSet("list", stderr)
	fs.StringVarP(&format, "format", "f", "text", "output format: text, json or cbor")
	fs.BoolVarP(&rawBytes, "bytes", "b", false, "print sizes in bytes")
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: krar list archive.krar", errUsage)
	}
	if _, err := g.setup(fs, stdout, stderr, nil); err != nil {
		return err
	}

	entries, err := core.NewReader().List(fs.Arg(0))
	if err != nil {
		return err
	}
	return writeListing(stdout, format, entries, rawBytes)
}

// runExtract handles the extract operation
func runExtract(args []string, stdout, stderr io.Writer) error {
	var g globalFlags
	var names []string
	var noOverwrite bool
	fs := newFlagSet("extract", stderr)
	fs.StringArrayVarP(&names, "file", "f", nil, "extract only this entry (repeatable)")
	fs.BoolVar(&noOverwrite, "no-overwrite", false, "skip entries whose target already exists")
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("%w: krar extract archive.krar [destination]", errUsage)
	}
	destination := "."
	if fs.NArg() == 2 {
		destination = fs.Arg(1)
	}

	e, err := g.setup(fs, stdout, stderr, func(cfg *config.Config) {
		if noOverwrite {
			cfg.Overwrite = false
		}
	})
	if err != nil {
		return err
	}

	r := core.NewReader(
		core.WithLogger(e.logger),
		core.WithProgress(e.tracker),
		core.WithOverwrite(e.cfg.Overwrite),
	)
	var res core.Result
	if len(names) > 0 {
		res, err = r.ExtractFiles(fs.Arg(0), names, destination)
		if err == nil && res.Requested < len(names) {
			e.logger.Debug("some requested names are not in the archive",
				"requested", len(names), "matched", res.Requested)
		}
	} else {
		res, err = r.Extract(fs.Arg(0), destination)
	}
	if err != nil {
		return err
	}
	e.report("Extracted", res)
	return resultErr(res)
}

// runTest handles the test operation
func runTest(args []string, stdout, stderr io.Writer) error {
	var g globalFlags
	fs := newFlagSet("test", stderr)
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: krar test archive.krar", errUsage)
	}
	e, err := g.setup(fs, stdout, stderr, nil)
	if err != nil {
		return err
	}

	res, err := core.NewReader(core.WithLogger(e.logger), core.WithProgress(e.tracker)).Verify(fs.Arg(0))
	if err != nil {
		return err
	}
	e.report("Verified", res)
	return resultErr(res)
}

// report prints a one-line summary plus one line per failed item.
func (e *env) report(verb string, res core.Result) {
	if e.quiet && res.Complete() {
		return
	}
	fmt.Fprintf(e.stdout, "%s %d of %d files\n", verb, res.Succeeded, res.Requested)
	for _, f := range res.Failures {
		fmt.Fprintf(e.stdout, "  failed: %s: %v\n", f.Name, f.Err)
	}
}

func resultErr(res core.Result) error {
	if res.Complete() {
		return nil
	}
	return fmt.Errorf("%w: %d of %d items failed", errIncomplete, len(res.Failures), res.Requested)
}
