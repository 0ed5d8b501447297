package archiver

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Entry is one file or symlink headed for the archive. Source is the
// absolute path on disk, Target the slash-separated path inside the archive,
// and Info the Lstat result for Source.
type Entry struct {
	Source string
	Target string
	Info   os.FileInfo
}

// Sink receives archive entries.
type Sink interface {
	Add(source, target string, info os.FileInfo) error
}

// Discard is a Sink that drops entries, for dry runs.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Add(string, string, os.FileInfo) error {
	return nil
}

// extraEntry resolves one --extra path. Relative paths are cleaned and live
// under the archive prefix; absolute paths keep their own layout at the
// archive root. A path that still climbs out after cleaning is rejected.
func extraEntry(extra, prefix string) (Entry, error) {
	info, err := os.Lstat(extra)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to stat extra file %q: %w\nExtra paths are resolved from the current directory", extra, err)
	}
	if info.IsDir() {
		return Entry{}, fmt.Errorf("extra path %q is a directory\nList the files to include individually", extra)
	}

	source, err := filepath.Abs(extra)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to resolve extra file %q: %w", extra, err)
	}

	var target string
	if filepath.IsAbs(extra) {
		target = strings.TrimPrefix(filepath.ToSlash(filepath.Clean(extra)), "/")
	} else {
		target = prefix + path.Clean(filepath.ToSlash(extra))
	}
	if escapesRoot(target) {
		return Entry{}, fmt.Errorf("extra path %q would escape the archive root\nPass a path that stays below the current directory", extra)
	}

	return Entry{Source: source, Target: target, Info: info}, nil
}

// escapesRoot reports whether a slash-separated target path climbs out of
// the archive via .. segments.
func escapesRoot(target string) bool {
	for _, segment := range strings.Split(target, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}
