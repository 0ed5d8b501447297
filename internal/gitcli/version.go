package gitcli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed git version.
type Version struct {
	Major, Minor, Patch int
}

// MinimumVersion is the oldest git this tool works with. Older releases lack
// `submodule foreach` quoting and check-attr stdin support.
var MinimumVersion = Version{Major: 1, Minor: 6, Patch: 1}

// checkAttrNulVersion gates NUL-separated check-attr output; releases up to
// and including 1.8.5 only speak the line-oriented format.
var checkAttrNulVersion = Version{Major: 1, Minor: 8, Patch: 5}

// ErrUnrecognizedVersion reports a `git version` banner that does not parse.
// Callers treat such a build as a modern release instead of refusing to run.
var ErrUnrecognizedVersion = errors.New("unrecognized git version output")

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less reports whether v is older than other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// ParseVersion parses `git version` output such as "git version 2.39.2" or
// "git version 2.47.1.windows.1". Trailing non-numeric components are
// ignored.
func ParseVersion(output string) (Version, error) {
	fields := strings.Fields(output)
	if len(fields) < 3 || fields[0] != "git" || fields[1] != "version" {
		return Version{}, fmt.Errorf("%w %q", ErrUnrecognizedVersion, strings.TrimSpace(output))
	}

	parts := strings.Split(fields[2], ".")
	var numbers [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			if i == 0 {
				return Version{}, fmt.Errorf("%w %q", ErrUnrecognizedVersion, fields[2])
			}
			break
		}
		numbers[i] = n
	}

	return Version{Major: numbers[0], Minor: numbers[1], Patch: numbers[2]}, nil
}
