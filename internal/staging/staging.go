// Package staging manages per-attempt scratch directories and the flat durable storage directory.
//
// A [Stage] is created inside the storage directory so that promoting a finished file is a
// same-filesystem [os.Rename]. Stored files are named {uuid}_{sanitized-title}.{ext} and are never
// mutated after promotion.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/ytfetch/internal/shared"
)

const scratchPattern = ".stage-*"

// maxNameBytes is the file name limit of common filesystems.
const maxNameBytes = 255

// Storage is the flat directory holding promoted files.
type Storage struct {
	dir string
}

// NewStorage returns a [Storage] rooted at dir, creating it when missing.
func NewStorage(dir string) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Storage{dir: abs}, nil
}

// Dir returns the absolute storage directory.
func (s *Storage) Dir() string { return s.dir }

// Stage creates a fresh scratch directory inside the storage directory.
func (s *Storage) Stage() (*Stage, error) {
	dir, err := os.MkdirTemp(s.dir, scratchPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", pathless(err))
	}
	return &Stage{dir: dir}, nil
}

// Promote moves the file at path into storage under a fresh collision-free name and
// returns that stored filename (not the full path).
//
// The title fragment is shortened further when needed so the whole name fits in
// [maxNameBytes] bytes.
func (s *Storage) Promote(path, title, ext string) (string, error) {
	id := shared.GenerateID()
	ext = strings.TrimPrefix(ext, ".")

	name := SanitizeTitle(title)
	name = strings.TrimSpace(fitBytes(name, maxNameBytes-len(id)-len(ext)-2))
	if name == "" {
		name = "download"
	}
	filename := fmt.Sprintf("%s_%s.%s", id, name, ext)

	if err := os.Rename(path, filepath.Join(s.dir, filename)); err != nil {
		return "", fmt.Errorf("failed to promote output: %w", pathless(err))
	}
	return filename, nil
}

// Path resolves a stored filename to its absolute path.
//
// Anything other than a plain base name is rejected with [shared.ErrNotFound].
func (s *Storage) Path(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) ||
		strings.HasPrefix(filename, ".") {
		return "", shared.ErrNotFound
	}
	return filepath.Join(s.dir, filename), nil
}

// Open opens a stored file for reading. A missing file or a bad name is [shared.ErrNotFound].
func (s *Storage) Open(filename string) (*os.File, error) {
	path, err := s.Path(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open stored file: %w", pathless(err))
	}

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		f.Close()
		return nil, shared.ErrNotFound
	}
	return f, nil
}

// Remove deletes a stored file. Removing a missing file is not an error.
func (s *Storage) Remove(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stored file: %w", pathless(err))
	}
	return nil
}

// Stage is a per-attempt scratch directory.
type Stage struct {
	dir  string
	once sync.Once
	err  error
}

// Dir returns the scratch directory path.
func (st *Stage) Dir() string { return st.dir }

// Cleanup removes the scratch directory and everything in it. Only the first call does work;
// later calls return the first result.
func (st *Stage) Cleanup() error {
	st.once.Do(func() {
		if err := os.RemoveAll(st.dir); err != nil {
			st.err = fmt.Errorf("failed to remove scratch dir: %w", pathless(err))
		}
	})
	return st.err
}

// Intermediate files left behind by the extractor: partial downloads and per-format streams
// awaiting a merge.
var fragment = regexp.MustCompile(`\.(part|ytdl|temp|tmp)$|\.part-Frag\d+|\.f\d+\.[^.]+$`)

// Locate finds the extractor output for base in the scratch directory.
//
// An exact base.ext match wins. Otherwise fragments are ignored and exactly one remaining
// file whose name starts with base is accepted, provided it also ends in .ext. No candidate
// is [shared.ErrOutputNotFound], a lone candidate in another format is
// [shared.ErrUnexpectedFormat] and several are [shared.ErrAmbiguousOutput].
func (st *Stage) Locate(base, ext string) (string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return "", fmt.Errorf("failed to read scratch dir: %w", pathless(err))
	}

	ext = "." + strings.TrimPrefix(ext, ".")
	exact := base + ext
	var candidates []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if name == exact {
			return filepath.Join(st.dir, name), nil
		}
		if !strings.HasPrefix(name, base) || fragment.MatchString(name) {
			continue
		}
		candidates = append(candidates, name)
	}

	switch len(candidates) {
	case 0:
		return "", shared.ErrOutputNotFound
	case 1:
		if !strings.HasSuffix(candidates[0], ext) {
			return "", fmt.Errorf("%w: got %s, want %s", shared.ErrUnexpectedFormat,
				strings.TrimPrefix(candidates[0], base), ext)
		}
		return filepath.Join(st.dir, candidates[0]), nil
	default:
		slices.Sort(candidates)
		return "", fmt.Errorf("%w: %s", shared.ErrAmbiguousOutput, strings.Join(candidates, ", "))
	}
}

// pathless drops the file paths an [*fs.PathError] or [*os.LinkError] carries so that
// storage locations stay out of messages shown to users.
func pathless(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return fmt.Errorf("%s: %w", linkErr.Op, linkErr.Err)
	}
	return err
}
