package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

// Level is an optional compression level between 0 and 9. The codec default
// applies when Set is false; the split keeps an unset level from reaching a
// codec as a sentinel value.
type Level struct {
	N   int
	Set bool
}

// NewLevel returns an explicit compression level.
func NewLevel(n int) Level {
	return Level{N: n, Set: true}
}

// ValidateLevel rejects level and format combinations before any work
// happens. Plain tar has no compression stage at all, and bzip2 has no
// uncompressed level.
func ValidateLevel(format Format, level Level) error {
	if !level.Set {
		return nil
	}
	if level.N < 0 || level.N > 9 {
		return fmt.Errorf("compression level %d is out of range\nLevels run from 0 (none) to 9 (best)", level.N)
	}
	switch format {
	case Tar:
		return errors.New("tar archives cannot be compressed\nUse a compressed format such as .tar.gz, or drop the level flag")
	case TarBz2:
		if level.N == 0 {
			return errors.New("bzip2 has no uncompressed level\nUse a compression level between 1 and 9")
		}
	}
	return nil
}

// xz preset dictionary capacities, indexed by compression level.
var xzDictCaps = [10]int{
	1 << 18, 1 << 20, 1 << 21, 1 << 22, 1 << 22,
	1 << 23, 1 << 23, 1 << 24, 1 << 25, 1 << 26,
}

// Writer streams archive entries into a temporary file beside the
// destination. Close moves the finished archive into place; Abort removes
// the temporary file, so no failure mode leaves a partial archive at the
// destination path.
type Writer struct {
	path     string
	temp     *os.File
	stack    *closeStack
	tw       *tar.Writer
	zw       *zip.Writer
	finished bool
}

// Create opens an archive writer for the given destination path and format.
func Create(path string, format Format, level Level) (*Writer, error) {
	if err := ValidateLevel(format, level); err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("output path %q is a directory\nName a file to write the archive to", path)
	}

	temp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.partial")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary archive next to %q: %w\nCheck directory permissions and disk space", path, err)
	}

	w := &Writer{path: path, temp: temp, stack: &closeStack{}}
	w.stack.Push("output file", temp.Close)

	switch format {
	case Tar:
		w.tw = tar.NewWriter(temp)
		w.stack.Push("tar stream", w.tw.Close)

	case TarGz:
		var gz *gzip.Writer
		if level.Set {
			gz, err = gzip.NewWriterLevel(temp, level.N)
			if err != nil {
				w.discard()
				return nil, fmt.Errorf("failed to initialize gzip stream: %w", err)
			}
		} else {
			gz = gzip.NewWriter(temp)
		}
		w.stack.Push("gzip stream", gz.Close)
		w.tw = tar.NewWriter(gz)
		w.stack.Push("tar stream", w.tw.Close)

	case TarBz2:
		var conf *bzip2.WriterConfig
		if level.Set {
			conf = &bzip2.WriterConfig{Level: level.N}
		}
		bz, err := bzip2.NewWriter(temp, conf)
		if err != nil {
			w.discard()
			return nil, fmt.Errorf("failed to initialize bzip2 stream: %w", err)
		}
		w.stack.Push("bzip2 stream", bz.Close)
		w.tw = tar.NewWriter(bz)
		w.stack.Push("tar stream", w.tw.Close)

	case TarXz:
		var xw *xz.Writer
		if level.Set {
			xw, err = xz.WriterConfig{DictCap: xzDictCaps[level.N]}.NewWriter(temp)
		} else {
			xw, err = xz.NewWriter(temp)
		}
		if err != nil {
			w.discard()
			return nil, fmt.Errorf("failed to initialize xz stream: %w", err)
		}
		w.stack.Push("xz stream", xw.Close)
		w.tw = tar.NewWriter(xw)
		w.stack.Push("tar stream", w.tw.Close)

	case Zip:
		w.zw = zip.NewWriter(temp)
		if level.Set {
			n := level.N
			w.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
				return flate.NewWriter(out, n)
			})
		}
		w.stack.Push("zip stream", w.zw.Close)

	default:
		w.discard()
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}

	return w, nil
}

// Add appends one entry to the archive. target is the slash-separated path
// inside the archive. info must come from Lstat: symlinks are stored as link
// entries pointing at their target, never followed.
func (w *Writer) Add(source, target string, info os.FileInfo) error {
	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		l, err := os.Readlink(source)
		if err != nil {
			return fmt.Errorf("failed to read symlink %q: %w", source, err)
		}
		link = l
	}

	if w.zw != nil {
		return w.addZip(source, target, info, link)
	}
	return w.addTar(source, target, info, link)
}

func (w *Writer) addTar(source, target string, info os.FileInfo, link string) error {
	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to build tar header for %q: %w", target, err)
	}
	header.Name = target

	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", target, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}

	file, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open tracked file %q: %w\nFile may have been deleted since listing", source, err)
	}
	defer file.Close()

	if _, err := io.Copy(w.tw, file); err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return nil
}

func (w *Writer) addZip(source, target string, info os.FileInfo, link string) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %q: %w", target, err)
	}
	header.Name = target
	header.Method = zip.Deflate

	if info.Mode()&os.ModeSymlink != 0 {
		// The link target is the entry's content, stored uncompressed with
		// the symlink mode bits preserved in the header.
		header.Method = zip.Store
		entry, err := w.zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write header for %s: %w", target, err)
		}
		if _, err := entry.Write([]byte(link)); err != nil {
			return fmt.Errorf("failed to write symlink %s: %w", target, err)
		}
		return nil
	}

	entry, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write header for %s: %w", target, err)
	}

	file, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open tracked file %q: %w\nFile may have been deleted since listing", source, err)
	}
	defer file.Close()

	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return nil
}

// Close finalizes every stream in LIFO order and moves the archive into
// place. On failure the temporary file is removed and the destination is
// left untouched.
func (w *Writer) Close() error {
	if w.finished {
		return nil
	}
	w.finished = true

	if err := w.stack.Close(); err != nil {
		os.Remove(w.temp.Name())
		return err
	}
	if err := os.Rename(w.temp.Name(), w.path); err != nil {
		os.Remove(w.temp.Name())
		return fmt.Errorf("failed to move finished archive to %q: %w", w.path, err)
	}
	return nil
}

// Abort discards the archive. Aborting after a successful Close is a no-op.
func (w *Writer) Abort() {
	if w.finished {
		return
	}
	w.finished = true
	w.discard()
}

func (w *Writer) discard() {
	w.stack.Close()
	os.Remove(w.temp.Name())
}
