package exclude

import (
	"bufio"
	"bytes"
	"path"
	"strconv"
	"strings"
)

// Pattern is a single export-ignore declaration from a .gitattributes file.
// A negated pattern comes from a "-export-ignore" line and forces inclusion
// for paths it matches.
type Pattern struct {
	text     string
	segments []string
	negated  bool
	anchored bool
	dirOnly  bool
}

// String returns the pattern text as it appeared in the attributes file.
func (p Pattern) String() string {
	return p.text
}

// Negated reports whether the pattern unsets export-ignore rather than
// setting it.
func (p Pattern) Negated() bool {
	return p.negated
}

// ParseRules extracts the export-ignore patterns from .gitattributes content,
// in file order. Lines that do not declare export-ignore, comments, blank
// lines, and lines that cannot be parsed are skipped.
func ParseRules(data []byte) []Pattern {
	var patterns []Pattern

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if pattern, ok := parseLine(line); ok {
			patterns = append(patterns, pattern)
		}
	}

	return patterns
}

func parseLine(line string) (Pattern, bool) {
	raw, rest, ok := splitPattern(line)
	if !ok {
		return Pattern{}, false
	}

	// A line lists several attributes; the last export-ignore form wins.
	state := 0
	for _, attr := range strings.Fields(rest) {
		switch attr {
		case "export-ignore":
			state = 1
		case "-export-ignore":
			state = -1
		case "!export-ignore":
			state = 0
		}
	}
	if state == 0 {
		return Pattern{}, false
	}

	return compile(raw, state < 0)
}

// splitPattern separates the pattern from the attribute list. Patterns
// containing whitespace are double-quoted with C-style escapes.
func splitPattern(line string) (pattern, rest string, ok bool) {
	if line[0] != '"' {
		cut := strings.IndexAny(line, " \t")
		if cut < 0 {
			return "", "", false
		}
		return line[:cut], line[cut:], true
	}

	end := -1
	for i := 1; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] == '"' {
			end = i
			break
		}
	}
	if end < 0 {
		return "", "", false
	}

	unquoted, err := strconv.Unquote(line[:end+1])
	if err != nil {
		return "", "", false
	}
	return unquoted, line[end+1:], true
}

func compile(raw string, negated bool) (Pattern, bool) {
	pattern := Pattern{text: raw, negated: negated}

	if strings.HasSuffix(raw, "/") {
		pattern.dirOnly = true
		raw = strings.TrimSuffix(raw, "/")
	}

	// A separator anywhere anchors the pattern to the declaring directory;
	// without one it matches basenames at any depth. A leading slash is the
	// explicit anchor form.
	pattern.anchored = strings.Contains(raw, "/")
	raw = strings.TrimPrefix(raw, "/")
	if raw == "" {
		return Pattern{}, false
	}
	pattern.segments = strings.Split(raw, "/")

	return pattern, true
}

// Match reports whether the pattern matches rel, a slash-separated path
// relative to the pattern's declaring directory.
func (p Pattern) Match(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	if !p.anchored {
		return matchSegment(p.segments[0], path.Base(rel))
	}
	return matchSegments(p.segments, strings.Split(rel, "/"))
}

// matchSegments matches pattern segments against path segments, with "**"
// crossing any number of segments.
func matchSegments(patterns, parts []string) bool {
	for len(patterns) > 0 {
		head := patterns[0]
		patterns = patterns[1:]

		if head == "**" {
			if len(patterns) == 0 {
				return true
			}
			for i := 0; i <= len(parts); i++ {
				if matchSegments(patterns, parts[i:]) {
					return true
				}
			}
			return false
		}

		if len(parts) == 0 {
			return false
		}
		if !matchSegment(head, parts[0]) {
			return false
		}
		parts = parts[1:]
	}

	return len(parts) == 0
}

func matchSegment(pattern, name string) bool {
	// fnmatch negates classes with '!', path.Match with '^'.
	if strings.Contains(pattern, "[!") {
		pattern = strings.ReplaceAll(pattern, "[!", "[^")
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
