package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/starford/wiki/internal/apperr"
)

const (
	// DefaultExtension is appended to a slug to build its file name.
	DefaultExtension = ".md"
	// IgnoreFile lists gitignore-style patterns hidden from List.
	IgnoreFile = ".wikiignore"

	tmpPattern = ".wiki-tmp-*"
)

// slugRe admits letters, digits, underscores and hyphens. Separators, dots,
// whitespace and control characters can never reach a file name.
var slugRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FS implements Provider backed by a single flat directory.
type FS struct {
	root string // absolute path to the data directory
	ext  string
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithExtension overrides the page file extension.
func WithExtension(ext string) FSOption {
	return func(f *FS) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.ext = ext
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs, ext: DefaultExtension}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute data directory.
func (f *FS) Root() string { return f.root }

// Extension returns the page file extension, including the dot.
func (f *FS) Extension() string { return f.ext }

// ValidSlug reports whether s can address a page.
func ValidSlug(s string) bool {
	return slugRe.MatchString(s)
}

// SlugFor maps a file name (or path) inside the data directory back to its
// slug. ok is false for anything that is not a page file.
func (f *FS) SlugFor(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, f.ext) {
		return "", false
	}
	s := strings.TrimSuffix(base, f.ext)
	if !ValidSlug(s) {
		return "", false
	}
	return s, true
}

// pagePath validates the slug and resolves it to an absolute file path,
// rejecting any result that escapes the data directory.
func (f *FS) pagePath(s string) (string, error) {
	if !ValidSlug(s) {
		return "", fmt.Errorf("storage: %q: %w", s, apperr.ErrInvalidSlug)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, s+f.ext))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("storage: %q escapes data dir: %w", s, apperr.ErrInvalidSlug)
	}
	return abs, nil
}

// List returns the slugs of all page files in the data directory in
// lexical slug order. Files matched by the ignore file are left out.
func (f *FS) List() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	ign := f.loadIgnore()

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		s, ok := f.SlugFor(e.Name())
		if !ok {
			continue
		}
		if ign != nil && ign.MatchesPath(e.Name()) {
			continue
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// loadIgnore compiles the ignore file on every call so edits apply without
// a restart. A missing or unreadable file means nothing is ignored.
func (f *FS) loadIgnore() *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(f.root, IgnoreFile))
	if err != nil {
		return nil
	}
	return gi
}

// Read returns the raw bytes of a page.
func (f *FS) Read(s string) ([]byte, error) {
	abs, err := f.pagePath(s)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: read %s: %w", s, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", s, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(s string, content []byte) error {
	abs, err := f.pagePath(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, tmpPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w: %w", apperr.ErrWriteFailed, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w: %w", apperr.ErrWriteFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w: %w", apperr.ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w: %w", apperr.ErrWriteFailed, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w: %w", apperr.ErrWriteFailed, err)
	}
	success = true
	return nil
}
