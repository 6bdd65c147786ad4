package tools

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yargevad/filepathx"
)

// ErrExists is returned by CreateExclusive when the target is already present.
var ErrExists = errors.New("file already exists")

// Filesystem provides file operations rooted at the project directory.
type Filesystem struct {
	guard      *PathGuard
	allowWrite bool
}

// NewFilesystem builds a filesystem tool with write permissions controlled by allowWrite.
func NewFilesystem(baseDir string, allowWrite bool) (*Filesystem, error) {
	guard, err := NewPathGuard(baseDir)
	if err != nil {
		return nil, err
	}
	return &Filesystem{guard: guard, allowWrite: allowWrite}, nil
}

// Root returns the absolute project root.
func (f *Filesystem) Root() string {
	return f.guard.BaseDir
}

// Rel returns path relative to the root, slash separated.
func (f *Filesystem) Rel(path string) (string, error) {
	return f.guard.Rel(path)
}

// ReadFile returns file contents as string.
func (f *Filesystem) ReadFile(path string) (string, error) {
	resolved, err := f.guard.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists reports whether path names an existing regular file or directory.
func (f *Filesystem) Exists(path string) bool {
	resolved, err := f.guard.Resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(resolved)
	return err == nil
}

// IsDir reports whether path is an existing directory.
func (f *Filesystem) IsDir(path string) bool {
	resolved, err := f.guard.Resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(resolved)
	return err == nil && info.IsDir()
}

// WriteFile replaces path atomically: content goes to a temp file in the
// same directory which is then renamed over the target.
func (f *Filesystem) WriteFile(path string, content string) error {
	if !f.allowWrite {
		return errors.New("write is disabled by configuration")
	}
	resolved, err := f.guard.Resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(resolved)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, resolved); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// CreateExclusive writes a new file and fails with ErrExists if path is taken.
func (f *Filesystem) CreateExclusive(path string, content string) error {
	if !f.allowWrite {
		return errors.New("write is disabled by configuration")
	}
	resolved, err := f.guard.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return err
	}
	if err := writeContent(file, content); err != nil {
		file.Close()
		os.Remove(resolved)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(resolved)
		return err
	}
	return nil
}

// writeContent is replaced in tests to simulate a failing disk.
var writeContent = func(w io.Writer, content string) error {
	_, err := io.WriteString(w, content)
	return err
}

// Glob expands pattern relative to the root. "**" matches any number of
// directories. Results are root-relative, slash separated and sorted.
func (f *Filesystem) Glob(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}
	base, err := f.guard.Resolve(".")
	if err != nil {
		return nil, err
	}
	matches, err := filepathx.Glob(filepath.Join(base, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !f.guard.contains(m) {
			continue
		}
		rel, err := filepath.Rel(f.guard.BaseDir, m)
		if err != nil {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out, nil
}

// ListFiles returns up to limit regular files directly inside dir whose
// extension matches ext (with or without the dot). limit <= 0 means no cap.
func (f *Filesystem) ListFiles(dir, ext string, limit int) ([]string, error) {
	resolved, err := f.guard.Resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, err
	}
	ext = "." + strings.TrimPrefix(ext, ".")
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		rel, err := filepath.Rel(f.guard.BaseDir, filepath.Join(resolved, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
