// Package files manages the uploads directory: per-project folders for page
// images, templates, materials and exports, plus global materials and
// reference files.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// URLPrefix is the route under which stored files are served.
const URLPrefix = "/files/"

// Folder names inside a project directory.
const (
	DirPages     = "pages"
	DirTemplate  = "template"
	DirMaterials = "materials"
	DirExports   = "exports"
	DirReference = "reference_files"
)

// ErrOutsideRoot is returned when a path escapes the uploads root.
var ErrOutsideRoot = errors.New("path escapes uploads root")

// ErrTooLarge is returned when an upload exceeds its size limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Storage resolves and writes files under a root directory.
type Storage struct {
	root string
}

// New creates a Storage rooted at dir, creating it when missing.
func New(dir string) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return &Storage{root: abs}, nil
}

// Root returns the absolute uploads directory.
func (s *Storage) Root() string { return s.root }

// ProjectDir returns the relative folder of a project kind, e.g. "<id>/pages".
// An empty projectID selects the global folder of that kind.
func ProjectDir(projectID, kind string) string {
	if projectID == "" {
		return kind
	}
	return path.Join(projectID, kind)
}

// Resolve converts a relative path (or a /files/ URL) to an absolute path
// inside the root.
func (s *Storage) Resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, URLPrefix)
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	within, err := filepath.Rel(s.root, abs)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	return abs, nil
}

// URL returns the public URL of a relative path.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return URLPrefix + strings.TrimPrefix(filepath.ToSlash(rel), "/")
}

// Write stores data at dir/name and returns the relative path.
func (s *Storage) Write(dir, name string, data []byte) (string, error) {
	rel := path.Join(dir, name)
	abs, err := s.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(abs, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return rel, nil
}

// Save copies r into dir under a unique, sanitised version of filename.
// maxBytes <= 0 disables the limit. It returns the relative path and size.
func (s *Storage) Save(dir, filename string, r io.Reader, maxBytes int64) (string, int64, error) {
	rel := path.Join(dir, UniqueName(filename))
	abs, err := s.Resolve(rel)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", rel, err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && maxBytes > 0 && n > maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(abs)
		return "", 0, fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return rel, n, nil
}

// Read returns the content of a relative path.
func (s *Storage) Read(rel string) ([]byte, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// Remove deletes a relative path. Missing files are not an error.
func (s *Storage) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	abs, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	return nil
}

// RemoveProject deletes a project's folder tree.
func (s *Storage) RemoveProject(projectID string) error {
	if projectID == "" {
		return nil
	}
	abs, err := s.Resolve(projectID)
	if err != nil {
		return err
	}
	return os.RemoveAll(abs)
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename folds a user-supplied filename to a safe ASCII name,
// keeping its extension. Path components are dropped.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-'):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" || out == ".." {
		return "file"
	}
	return out
}

// UniqueName prefixes a sanitised filename with a timestamp and short id.
func UniqueName(filename string) string {
	return fmt.Sprintf("%s_%s_%s", time.Now().UTC().Format("20060102150405"), uuid.NewString()[:8], SanitizeFilename(filename))
}

// Ext returns the lower-cased extension of name without the dot.
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
