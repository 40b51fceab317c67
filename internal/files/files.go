// Package files provides sandboxed file operations rooted at a base
// directory. Every path is resolved relative to the base and rejected
// when it is absolute, carries a drive component, traverses upward, or
// escapes the base after cleaning. Writes are further restricted to a
// small set of text extensions.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath     = errors.New("empty path")
	ErrAbsolutePath  = errors.New("absolute paths are not allowed")
	ErrDrivePath     = errors.New("drive paths are not allowed")
	ErrPathTraversal = errors.New("path traversal is not allowed")
	ErrPathEscapes   = errors.New("path escapes base directory")
	ErrFileExists    = errors.New("file exists and overwrite is disabled")
)

// ExtensionError reports a write refused because of its file extension.
type ExtensionError struct {
	Ext     string
	Blocked bool
}

func (e *ExtensionError) Error() string {
	if e.Blocked {
		return fmt.Sprintf("blocked file extension: %s", e.Ext)
	}
	return fmt.Sprintf("file extension not allowed: %s", e.Ext)
}

var blockedExtensions = map[string]bool{
	".exe": true,
	".dll": true,
	".bat": true,
	".cmd": true,
	".ps1": true,
	".vbs": true,
	".reg": true,
	".msi": true,
	".scr": true,
}

var allowedExtensions = map[string]bool{
	".html": true,
	".css":  true,
	".js":   true,
	".md":   true,
	".txt":  true,
	".json": true,
	".svg":  true,
}

// Ops performs file operations confined to a base directory.
type Ops struct {
	base string
}

// NewOps roots operations at baseDir. An empty baseDir uses the
// current working directory.
func NewOps(baseDir string) (*Ops, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		baseDir = wd
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	return &Ops{base: abs}, nil
}

// Base returns the absolute base directory.
func (o *Ops) Base() string {
	return o.base
}

// Resolve maps a relative path to its absolute location under the base
// directory, rejecting anything that would land outside it.
func (o *Ops) Resolve(relative string) (string, error) {
	rel := strings.TrimSpace(relative)
	if rel == "" {
		return "", ErrEmptyPath
	}
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return "", ErrAbsolutePath
	}
	if strings.Contains(rel, ":") {
		return "", ErrDrivePath
	}
	for _, part := range strings.Split(filepath.Clean(rel), string(filepath.Separator)) {
		if part == ".." {
			return "", ErrPathTraversal
		}
	}

	abs := filepath.Join(o.base, rel)
	if abs != o.base && !strings.HasPrefix(abs, o.base+string(filepath.Separator)) {
		return "", ErrPathEscapes
	}
	return abs, nil
}

// Mkdir creates the directory and any missing parents under the base.
func (o *Ops) Mkdir(relative string) error {
	abs, err := o.Resolve(relative)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0o755)
}

// WriteTextFile writes content to a text file under the base. The
// extension must be on the allowlist; files with blocked or unknown
// extensions are refused. Existing files are only replaced when
// overwrite is set.
func (o *Ops) WriteTextFile(relative, content string, overwrite bool) error {
	abs, err := o.Resolve(relative)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if blockedExtensions[ext] {
		return &ExtensionError{Ext: ext, Blocked: true}
	}
	if ext != "" && !allowedExtensions[ext] {
		return &ExtensionError{Ext: ext}
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(abs); err == nil {
			return ErrFileExists
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}

// RemoveFile deletes a single regular file under the base. A missing
// file is not an error.
func (o *Ops) RemoveFile(relative string) error {
	abs, err := o.Resolve(relative)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", relative)
	}
	return os.Remove(abs)
}

// RemoveDir recursively deletes a directory under the base. A missing
// directory is not an error.
func (o *Ops) RemoveDir(relative string) error {
	abs, err := o.Resolve(relative)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", relative)
	}
	return os.RemoveAll(abs)
}

// Glob returns base-relative names matching the pattern, which is
// resolved under the base like any other path.
func (o *Ops) Glob(pattern string) ([]string, error) {
	abs, err := o.Resolve(pattern)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(abs)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(o.base, m)
		if err != nil {
			continue
		}
		names = append(names, rel)
	}
	return names, nil
}

// DirNonEmpty reports whether the directory exists and holds at least
// one entry.
func (o *Ops) DirNonEmpty(relative string) (bool, error) {
	abs, err := o.Resolve(relative)
	if err != nil {
		return false, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return len(entries) > 0, nil
}
