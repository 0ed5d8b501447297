package archive

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the archive container and compression codec.
type Format string

const (
	Tar    Format = "tar"
	TarGz  Format = "tar.gz"
	TarBz2 Format = "tar.bz2"
	TarXz  Format = "tar.xz"
	Zip    Format = "zip"
)

// ErrUnknownFormat reports an output filename whose suffix does not map to a
// supported archive format.
var ErrUnknownFormat = errors.New("unknown archive format")

var formatsBySuffix = map[string]Format{
	"tar":  Tar,
	"tgz":  TarGz,
	"gz":   TarGz,
	"tbz2": TarBz2,
	"bz2":  TarBz2,
	"txz":  TarXz,
	"xz":   TarXz,
	"zip":  Zip,
}

// ParseFormat resolves an explicit format name, as given to a command-line
// override.
func ParseFormat(name string) (Format, error) {
	format, ok := formatsBySuffix[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("%w %q\nSupported formats: tar, tgz, tbz2, txz, zip, gz, bz2, xz", ErrUnknownFormat, name)
	}
	return format, nil
}

// DetectFormat selects the archive format from the output filename's last
// suffix, so "project.tar.gz" and "project.tgz" both select gzipped tar.
func DetectFormat(outputPath string) (Format, error) {
	base := filepath.Base(outputPath)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return "", fmt.Errorf("%w: %q has no archive suffix\nName the output like project.tar.gz or project.zip, or pass an explicit format", ErrUnknownFormat, base)
	}

	ext := strings.ToLower(base[dot+1:])
	format, ok := formatsBySuffix[ext]
	if !ok {
		return "", fmt.Errorf("%w %q\nSupported suffixes: .tar, .tgz, .tar.gz, .tbz2, .tar.bz2, .txz, .tar.xz, .zip", ErrUnknownFormat, ext)
	}
	return format, nil
}

// archiveSuffixes in longest-first order so "x.tar.gz" strips to "x" and not
// "x.tar".
var archiveSuffixes = []string{
	".tar.bz2", ".tar.gz", ".tar.xz",
	".tbz2", ".txz", ".tgz", ".zip", ".tar", ".bz2", ".gz", ".xz",
}

// DerivePrefix builds the default in-archive prefix from the output filename:
// the basename with its archive suffix removed, as a directory. An output
// named only by its suffix falls back to "Archive/".
func DerivePrefix(outputPath string) string {
	base := filepath.Base(outputPath)
	lower := strings.ToLower(base)
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			base = base[:len(base)-len(suffix)]
			break
		}
	}
	if base == "" {
		base = "Archive"
	}
	return base + "/"
}
