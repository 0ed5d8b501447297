package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Version is the release version (set via -ldflags).
var Version = "dev"

var (
	flagPrefix      string
	flagFormat      string
	flagExclude     bool
	flagNoExclude   bool
	flagCheckAttr   bool
	flagForce       bool
	flagExtra       []string
	flagInclude     []string
	flagDryRun      bool
	flagVerbose     bool
	flagCompression int
	flagDirectory   string
	flagDigits      [10]bool

	rootCmd = newRootCmd()
)

// newRootCmd builds the command and rebinds every flag variable to its
// default, so tests can start from a clean slate.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git-archive-all [flags] OUTPUT_FILE",
		Short: "Archive a git repository including all its submodules",
		Long: `Archive the tracked files of a git repository, its submodules, and their
submodules, into a single tar or zip archive. Files marked with the
export-ignore attribute are left out, and every entry is rooted under a
prefix derived from the output name so the archive never unpacks into a
file bomb.

The archive format follows the output file suffix: .tar, .tar.gz/.tgz,
.tar.bz2/.tbz2, .tar.xz/.txz, or .zip.

Examples:
  git-archive-all project-1.0.tar.gz
  git-archive-all --prefix=project/src/ project.zip
  git-archive-all -9 --dry-run project.tar.bz2
  git-archive-all -C /path/to/repo --force-submodules release.tar.xz`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}

	flags := cmd.Flags()
	flags.StringVar(&flagPrefix, "prefix", "", "archive path prefix (default: derived from OUTPUT_FILE)")
	flags.StringVar(&flagFormat, "format", "", "archive format, overriding the OUTPUT_FILE suffix (tar|tgz|tbz2|txz|zip)")
	flags.BoolVar(&flagExclude, "exclude", true, "apply export-ignore attributes, overriding a config file that disables them")
	flags.BoolVar(&flagNoExclude, "no-exclude", false, "archive files that export-ignore would exclude")
	flags.BoolVar(&flagNoExclude, "no-export-ignore", false, "alias for --no-exclude")
	flags.BoolVar(&flagCheckAttr, "check-attr", false, "resolve export-ignore through git check-attr instead of reading .gitattributes")
	flags.BoolVar(&flagForce, "force-submodules", false, "run git submodule init && update before archiving each level")
	flags.StringArrayVar(&flagExtra, "extra", nil, "extra file to archive; repeatable")
	flags.StringArrayVar(&flagInclude, "include", nil, "alias for --extra")
	flags.BoolVar(&flagDryRun, "dry-run", false, "list entries without writing an archive")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "log each archived entry")
	flags.IntVar(&flagCompression, "compression", 0, "compression level, 0 through 9")
	flags.StringVarP(&flagDirectory, "directory", "C", ".", "repository or directory inside it to archive")

	for digit := range flagDigits {
		name := fmt.Sprintf("%d", digit)
		flags.BoolVarP(&flagDigits[digit], name, name, false, fmt.Sprintf("compress at level %d", digit))
		mustHide(cmd, name)
	}
	mustHide(cmd, "no-export-ignore")
	mustHide(cmd, "include")

	return cmd
}

func mustHide(cmd *cobra.Command, name string) {
	if err := cmd.Flags().MarkHidden(name); err != nil {
		panic(err)
	}
}

// Execute runs the command with the process arguments. It is called once,
// by main, which owns the exit code.
func Execute() error {
	return fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	)
}
