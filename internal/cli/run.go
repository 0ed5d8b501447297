package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"git-archive-all/internal/archive"
	"git-archive-all/internal/archiver"
	"git-archive-all/internal/config"
	"git-archive-all/internal/gitcli"
)

// options is the fully resolved run configuration: flags merged over the
// config file, format and level validated. Everything here is decided before
// the first git subprocess runs.
type options struct {
	output    string
	format    archive.Format
	level     archive.Level
	prefix    string
	directory string
	exclude   bool
	checkAttr bool
	force     bool
	extra     []string
	dryRun    bool
	verbose   bool
}

func run(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	opts, err := resolve(cmd, args[0], cfg)
	if err != nil {
		return err
	}
	return archiveRepository(cmd, opts)
}

// resolve merges the command line over the file-backed defaults. A flag the
// user typed always wins; the config only fills gaps.
func resolve(cmd *cobra.Command, output string, cfg config.Config) (options, error) {
	flags := cmd.Flags()

	exclude := cfg.Exclude
	if flags.Changed("exclude") {
		exclude = flagExclude
	}
	if flagNoExclude {
		exclude = false
	}

	opts := options{
		output:    output,
		directory: flagDirectory,
		exclude:   exclude,
		checkAttr: flagCheckAttr || cfg.CheckAttr,
		force:     flagForce || cfg.ForceSubmodules,
		extra:     append(append([]string{}, flagExtra...), flagInclude...),
		dryRun:    flagDryRun,
		verbose:   flagVerbose || cfg.Verbose,
	}

	var err error
	switch {
	case flags.Changed("format"):
		opts.format, err = archive.ParseFormat(flagFormat)
	case cfg.Format != "":
		opts.format, err = archive.ParseFormat(cfg.Format)
	default:
		opts.format, err = archive.DetectFormat(output)
	}
	if err != nil {
		return options{}, err
	}

	opts.level, err = resolveLevel(flags, cfg)
	if err != nil {
		return options{}, err
	}
	if err := archive.ValidateLevel(opts.format, opts.level); err != nil {
		return options{}, err
	}

	// Fires before any git subprocess and on dry runs, which never reach
	// the writer's own check.
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return options{}, fmt.Errorf("output path %q is a directory\nName a file to write the archive to", output)
	}

	if flags.Changed("prefix") {
		// An explicitly empty prefix is a request for no rooting at all.
		opts.prefix = flagPrefix
	} else {
		opts.prefix = archive.DerivePrefix(output)
	}

	return opts, nil
}

// resolveLevel picks the compression level from the digit flags, the
// --compression flag, or the config file, in that order of specificity.
// Asking for two different levels at once is an error, not a coin toss.
func resolveLevel(flags *pflag.FlagSet, cfg config.Config) (archive.Level, error) {
	var digits []int
	for digit := range flagDigits {
		if flagDigits[digit] {
			digits = append(digits, digit)
		}
	}

	if len(digits) > 1 {
		return archive.Level{}, errors.New("more than one compression level flag given\nPass a single level between -0 and -9")
	}
	if len(digits) == 1 && flags.Changed("compression") && flagCompression != digits[0] {
		return archive.Level{}, fmt.Errorf("conflicting compression levels %d and --compression=%d\nPass one or the other", digits[0], flagCompression)
	}

	switch {
	case len(digits) == 1:
		return archive.NewLevel(digits[0]), nil
	case flags.Changed("compression"):
		return archive.NewLevel(flagCompression), nil
	case cfg.Compression != nil:
		return archive.NewLevel(*cfg.Compression), nil
	}
	return archive.Level{}, nil
}

// archiveRepository wires the resolved options into an enumeration run and,
// unless this is a dry run, an archive on disk.
func archiveRepository(cmd *cobra.Command, opts options) error {
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{Prefix: "git-archive-all"})
	if opts.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	var reporter archiver.Reporter = archiver.NopReporter{}
	if opts.dryRun || opts.verbose {
		reporter = archiver.NewStreamReporter(cmd.OutOrStdout())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	walker, err := archiver.New(ctx, gitcli.NewDefaultClient(), opts.directory, archiver.Options{
		Prefix:          opts.prefix,
		Exclude:         opts.exclude,
		CheckAttr:       opts.checkAttr,
		ForceSubmodules: opts.force,
		Extra:           opts.extra,
		Reporter:        reporter,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	if opts.dryRun {
		return walker.Create(ctx, archiver.Discard)
	}

	writer, err := archive.Create(opts.output, opts.format, opts.level)
	if err != nil {
		return err
	}
	defer writer.Abort()

	if err := walker.Create(ctx, writer); err != nil {
		return err
	}
	return writer.Close()
}
