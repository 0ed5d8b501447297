package exclude

import "strings"

// Ruleset holds the export-ignore pattern sets for one repository level,
// keyed by the directory that declares them ("" for the repository root).
// A directory that declares a set replaces any inherited set for its whole
// subtree, even when the declared set is empty.
type Ruleset struct {
	scopes map[string][]Pattern
}

// NewRuleset returns an empty Ruleset.
func NewRuleset() *Ruleset {
	return &Ruleset{scopes: map[string][]Pattern{}}
}

// Declare records the pattern set declared by dir. Declaring a directory a
// second time replaces its previous set.
func (r *Ruleset) Declare(dir string, patterns []Pattern) {
	r.scopes[dir] = patterns
}

// Empty reports whether no directory has declared a pattern set.
func (r *Ruleset) Empty() bool {
	return len(r.scopes) == 0
}

// Excluded reports whether the slash-separated repository-relative path is
// excluded from the archive. A path inherits its parent directory's answer
// when no pattern decides for the path itself, so excluding a directory
// excludes everything beneath it, and a negated pattern can pull a single
// path back in.
func (r *Ruleset) Excluded(relpath string, isDir bool) bool {
	current, currentIsDir := relpath, isDir
	for current != "" {
		if excluded, decided := r.verdict(current, currentIsDir); decided {
			return excluded
		}
		current, currentIsDir = parentPath(current), true
	}
	return false
}

// verdict matches one path against the pattern set of its closest declaring
// directory. The last matching pattern in file order decides.
func (r *Ruleset) verdict(relpath string, isDir bool) (excluded, decided bool) {
	scope, patterns, ok := r.scope(relpath)
	if !ok {
		return false, false
	}

	rel := relpath
	if scope != "" {
		rel = strings.TrimPrefix(relpath, scope+"/")
	}

	for i := len(patterns) - 1; i >= 0; i-- {
		if patterns[i].Match(rel, isDir) {
			return !patterns[i].negated, true
		}
	}
	return false, false
}

// scope finds the closest ancestor directory of relpath that declares a
// pattern set.
func (r *Ruleset) scope(relpath string) (dir string, patterns []Pattern, ok bool) {
	dir = parentPath(relpath)
	for {
		if patterns, ok = r.scopes[dir]; ok {
			return dir, patterns, true
		}
		if dir == "" {
			return "", nil, false
		}
		dir = parentPath(dir)
	}
}

func parentPath(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}
