package archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git-archive-all/internal/exclude"
	"git-archive-all/internal/gitcli"

	"github.com/charmbracelet/log"
)

// Options configure an Archiver.
type Options struct {
	// Prefix is prepended to every tracked-file target, "" for none.
	Prefix string
	// Exclude enables export-ignore processing.
	Exclude bool
	// CheckAttr resolves exclusions through a git check-attr coprocess
	// instead of reading .gitattributes files directly. git merges attribute
	// declarations across directories, so nested files extend rather than
	// replace their parents in this mode.
	CheckAttr bool
	// ForceSubmodules initializes and updates submodules at each level
	// before they are listed.
	ForceSubmodules bool
	// Extra paths are archived verbatim before the tracked files.
	Extra []string
	// Reporter receives entry lines; nil discards them.
	Reporter Reporter
	// Logger receives diagnostics; nil discards them.
	Logger *log.Logger
}

// Archiver enumerates the archive entries of one repository tree.
type Archiver struct {
	client *gitcli.Client
	root   string
	opts   Options
}

// New gates the installed git version, resolves the repository containing
// baseDir, and prepares an Archiver for it. A version banner that does not
// parse is tolerated and treated as a modern release.
func New(ctx context.Context, client *gitcli.Client, baseDir string, opts Options) (*Archiver, error) {
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	version, err := client.Version(ctx)
	switch {
	case errors.Is(err, gitcli.ErrUnrecognizedVersion):
		opts.Logger.Warn("unrecognized git version, assuming a modern release", "error", err)
	case err != nil:
		return nil, err
	case version.Less(gitcli.MinimumVersion):
		return nil, fmt.Errorf("git %s is too old\nVersion %s or newer is required", version, gitcli.MinimumVersion)
	}

	root, err := client.ResolveToplevel(ctx, baseDir)
	if err != nil {
		return nil, err
	}

	return &Archiver{client: client, root: root, opts: opts}, nil
}

// Root returns the resolved repository toplevel.
func (a *Archiver) Root() string {
	return a.root
}

// Create streams every archive entry into the sink: extra files first, then
// the tracked files of the repository and its submodules, depth first in
// git's listing order. A target path is emitted at most once; later
// duplicates are dropped with a warning.
func (a *Archiver) Create(ctx context.Context, sink Sink) error {
	seen := map[string]struct{}{}
	emit := func(entry Entry) error {
		if _, dup := seen[entry.Target]; dup {
			a.opts.Logger.Warn("skipping duplicate archive path", "path", entry.Target)
			return nil
		}
		seen[entry.Target] = struct{}{}
		a.opts.Reporter.Entry(entry.Source, entry.Target)
		return sink.Add(entry.Source, entry.Target, entry.Info)
	}

	for _, extra := range a.opts.Extra {
		entry, err := extraEntry(extra, a.opts.Prefix)
		if err != nil {
			return err
		}
		if err := emit(entry); err != nil {
			return err
		}
	}

	return a.walk(ctx, a.root, "", func(entry Entry) error {
		entry.Target = a.opts.Prefix + entry.Target
		return emit(entry)
	})
}

// walk emits one repository level and recurses into its submodules. repo is
// the level's absolute path; offset accumulates submodule paths so targets
// stay relative to the outermost repository. No directory changes happen
// anywhere on this path.
func (a *Archiver) walk(ctx context.Context, repo, offset string, emit func(Entry) error) error {
	files, err := a.client.ListFiles(ctx, repo)
	if err != nil {
		return err
	}

	excl, err := a.openExclusions(ctx, repo, files)
	if err != nil {
		return err
	}
	defer excl.close(a.opts.Logger)

	for _, file := range files {
		if strings.HasPrefix(path.Base(file), ".git") {
			continue
		}

		source := filepath.Join(repo, filepath.FromSlash(file))
		info, err := os.Lstat(source)
		if err != nil {
			return fmt.Errorf("failed to stat tracked file %q: %w\nThe working tree may be out of sync with the index", source, err)
		}
		if info.IsDir() {
			continue
		}

		if excluded, err := excl.excluded(file, false); err != nil {
			return err
		} else if excluded {
			a.opts.Logger.Debug("excluded", "path", offset+file)
			continue
		}

		if err := emit(Entry{Source: source, Target: offset + file, Info: info}); err != nil {
			return err
		}
	}

	if a.opts.ForceSubmodules {
		if err := a.client.InitSubmodules(ctx, repo); err != nil {
			return err
		}
	}

	submodules, err := a.client.ListSubmodules(ctx, repo)
	if err != nil {
		return err
	}

	for _, submodule := range submodules {
		if excluded, err := excl.excluded(submodule, true); err != nil {
			return err
		} else if excluded {
			a.opts.Logger.Debug("excluded submodule", "path", offset+submodule)
			continue
		}

		subRepo := filepath.Join(repo, filepath.FromSlash(submodule))
		subOffset := offset + submodule + "/"

		err := a.walk(ctx, subRepo, subOffset, func(entry Entry) error {
			// An ancestor level's rules also apply to submodule content.
			rel := strings.TrimPrefix(entry.Target, offset)
			if excluded, err := excl.excluded(rel, false); err != nil {
				return err
			} else if excluded {
				a.opts.Logger.Debug("excluded", "path", entry.Target)
				return nil
			}
			return emit(entry)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// matcher answers exclusion queries for one repository level.
type matcher interface {
	Excluded(relpath string, isDir bool) (bool, error)
}

// rulesetMatcher adapts the file-based engine to the matcher interface.
type rulesetMatcher struct {
	rules *exclude.Ruleset
}

func (m rulesetMatcher) Excluded(relpath string, isDir bool) (bool, error) {
	return m.rules.Excluded(relpath, isDir), nil
}

// exclusions bundles a level's matcher with its teardown.
type exclusions struct {
	matcher matcher
	closer  func() error
}

func (e exclusions) excluded(relpath string, isDir bool) (bool, error) {
	if e.matcher == nil {
		return false, nil
	}
	return e.matcher.Excluded(relpath, isDir)
}

func (e exclusions) close(logger *log.Logger) {
	if e.closer == nil {
		return
	}
	if err := e.closer(); err != nil {
		logger.Warn("failed to shut down attribute query", "error", err)
	}
}

// openExclusions builds the exclusion engine for one level. The file-based
// engine reads the .gitattributes files named by the listing itself, so it
// costs no extra git invocation; the check-attr engine starts one coprocess
// for the whole level.
func (a *Archiver) openExclusions(ctx context.Context, repo string, files []string) (exclusions, error) {
	if !a.opts.Exclude {
		return exclusions{}, nil
	}

	if a.opts.CheckAttr {
		m, err := a.client.CheckAttr(ctx, repo, "export-ignore")
		if err != nil {
			return exclusions{}, err
		}
		return exclusions{matcher: m, closer: m.Close}, nil
	}

	rules := exclude.NewRuleset()
	for _, file := range files {
		if path.Base(file) != ".gitattributes" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(repo, filepath.FromSlash(file)))
		if err != nil {
			a.opts.Logger.Warn("skipping unreadable attributes file", "path", file, "error", err)
			continue
		}
		rules.Declare(parentDir(file), exclude.ParseRules(data))
	}
	return exclusions{matcher: rulesetMatcher{rules}}, nil
}

func parentDir(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}
