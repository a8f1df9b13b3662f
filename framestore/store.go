// Package framestore keeps animation frames on disk.
//
// Frames live as one PNG per frame in a low-resolution working directory with
// a full-resolution counterpart of the same basename in an archive directory.
// The store only enumerates, names, copies and removes files; ordering beyond
// a lexicographic sort belongs to the caller.
package framestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/stopmotion/camera"
	"github.com/teranos/stopmotion/trip"
)

const (
	// FrameExt marks a file as a frame image.
	FrameExt = ".png"
	// CapturePrefix names files produced by a capture.
	CapturePrefix = "capture_"
	// ExportPrefix names files produced by an export.
	ExportPrefix = "frame_"
	// DefaultDigits is the zero-padding width of frame numbers.
	DefaultDigits = 3
)

var captureNumber = regexp.MustCompile(`^` + CapturePrefix + `(\d+)` + regexp.QuoteMeta(FrameExt) + `$`)

// Store manages the working, archive and export directories of a session.
type Store struct {
	working string
	archive string
	export  string
	digits  int
	log     *slog.Logger
}

// New creates a store over the three directories. digits <= 0 selects
// DefaultDigits.
func New(working, archive, export string, digits int, logger *slog.Logger) *Store {
	if digits <= 0 {
		digits = DefaultDigits
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		working: working,
		archive: archive,
		export:  export,
		digits:  digits,
		log:     logger,
	}
}

// WorkingDir returns the low-resolution frame directory.
func (s *Store) WorkingDir() string { return s.working }

// ArchiveDir returns the full-resolution frame directory.
func (s *Store) ArchiveDir() string { return s.archive }

// ExportDir returns the export directory.
func (s *Store) ExportDir() string { return s.export }

// EnsureDirs creates any missing managed directory.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.working, s.archive, s.export} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return trip.StorageError("mkdir", dir, err)
		}
	}
	return nil
}

// List returns every frame image in dir sorted lexicographically by path.
//
// Chronological order relies on zero-padded frame numbers of equal width.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, trip.StorageError("list", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), FrameExt) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Frames lists the working directory.
func (s *Store) Frames() ([]string, error) {
	return List(s.working)
}

// ArchivePath maps a working frame path to its full-resolution counterpart.
func (s *Store) ArchivePath(workingPath string) string {
	return filepath.Join(s.archive, filepath.Base(workingPath))
}

// ExportPath returns the export file name for the i-th exported frame.
func (s *Store) ExportPath(i int) string {
	return filepath.Join(s.export, fmt.Sprintf("%s%0*d%s", ExportPrefix, s.digits, i, FrameExt))
}

// NextCapture allocates the paths for the next capture.
//
// The number is one past the highest capture number present in the working
// directory, so files that were dropped from the sequence but are still on
// disk are never overwritten.
func (s *Store) NextCapture() (workingPath, archivePath string, err error) {
	entries, err := os.ReadDir(s.working)
	if err != nil {
		return "", "", trip.StorageError("scan", s.working, err)
	}

	next := 0
	for _, entry := range entries {
		m := captureNumber.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}

	name := fmt.Sprintf("%s%0*d%s", CapturePrefix, s.digits, next, FrameExt)
	if len(name) != len(CapturePrefix)+s.digits+len(FrameExt) {
		s.log.Warn("framestore: frame number exceeds padding, sort order no longer chronological",
			"number", next,
			"digits", s.digits,
		)
	}
	return filepath.Join(s.working, name), filepath.Join(s.archive, name), nil
}

// Capture asks the camera for a still at both resolutions.
func (s *Store) Capture(cam camera.Camera, workingPath, archivePath string) error {
	if err := cam.Capture(workingPath, archivePath); err != nil {
		return trip.DeviceError("capture", err)
	}
	s.log.Info("framestore: captured frame",
		"working", workingPath,
		"archive", archivePath,
	)
	return nil
}

// Remove deletes a single file.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return trip.StorageError("remove", path, err)
	}
	s.log.Info("framestore: deleted " + filepath.Base(path))
	return nil
}

// Wipe deletes every regular file in each directory.
//
// A file that cannot be removed is reported as a stumble and the wipe moves
// on; the returned error joins every stumble.
func (s *Store) Wipe(dirs ...string) error {
	var errs []error
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			errs = append(errs, trip.StorageError("wipe", dir, err).WithSeverity(trip.Stumble))
			continue
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			if err := s.Remove(filepath.Join(dir, entry.Name())); err != nil {
				if t, ok := trip.As(err); ok {
					t.WithSeverity(trip.Stumble)
				}
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// ClearExports removes the frames of a previous export so a new export never
// mixes with stale, higher-numbered files. Other files in the export
// directory are left alone.
func (s *Store) ClearExports() error {
	paths, err := List(s.export)
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range paths {
		if !strings.HasPrefix(filepath.Base(path), ExportPrefix) {
			continue
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, trip.StorageError("remove", path, err).WithSeverity(trip.Stumble))
		}
	}
	return errors.Join(errs...)
}

// Copy duplicates src to dst byte for byte.
//
// The data is written to a temporary file next to dst and renamed into place,
// so a failed copy never leaves a truncated dst behind.
func Copy(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return trip.StorageError("copy", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*"+filepath.Ext(dst))
	if err != nil {
		return trip.StorageError("copy", dst, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		tmp.Close()
		return trip.StorageError("copy", dst, err)
	}
	if err = tmp.Close(); err != nil {
		return trip.StorageError("copy", dst, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return trip.StorageError("copy", dst, err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return trip.StorageError("copy", dst, err)
	}
	return nil
}
