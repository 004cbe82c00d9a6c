// Package storage keeps uploaded images and explainability artifacts on the local filesystem.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidName is returned for names that are empty or would escape the upload directory.
	ErrInvalidName = errors.New("storage: invalid artifact name")
	// ErrExtensionNotAllowed is returned when an upload's extension is not on the allow-list.
	ErrExtensionNotAllowed = errors.New("storage: file extension not allowed")
	// ErrArtifactNotFound is returned when a named artifact does not exist.
	ErrArtifactNotFound = errors.New("storage: artifact not found")
)

// QAPrefix marks uploads that belong to visual Q&A jobs.
const QAPrefix = "vqa_"

// maxNameLength bounds the sanitized part of an upload name.
const maxNameLength = 120

// LocalStoreOptions configures a LocalStore.
type LocalStoreOptions struct {
	Dir               string
	AllowedExtensions []string
}

// LocalStore stores artifacts as flat files in one directory.
type LocalStore struct {
	dir     string
	allowed []string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(opts LocalStoreOptions) (*LocalStore, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("storage directory is required")
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	allowed := make([]string, 0, len(opts.AllowedExtensions))
	for _, e := range opts.AllowedExtensions {
		if e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), ".")); e != "" {
			allowed = append(allowed, e)
		}
	}
	return &LocalStore{dir: dir, allowed: allowed}, nil
}

// AllowedExtension reports whether the final extension of name is on the allow-list.
// A compound extension such as .nii.gz is judged by its last part.
func (s *LocalStore) AllowedExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return ext != "" && slices.Contains(s.allowed, ext)
}

// SaveUpload validates and stores an upload, returning its stored name
// <uuid>_<sanitized original>, prefixed with prefix (QAPrefix or "").
func (s *LocalStore) SaveUpload(ctx context.Context, prefix, originalName string, r io.Reader) (string, error) {
	clean := SanitizeFilename(originalName)
	if !s.AllowedExtension(clean) {
		return "", fmt.Errorf("%w: %q", ErrExtensionNotAllowed, originalName)
	}
	name := prefix + uuid.NewString() + "_" + clean
	if err := s.write(ctx, name, r); err != nil {
		return "", err
	}
	return name, nil
}

// Put stores data under an exact name, such as an explainability artifact.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	return s.write(ctx, name, bytes.NewReader(data))
}

// Read returns the full contents of a stored artifact.
func (s *LocalStore) Read(ctx context.Context, name string) ([]byte, error) {
	f, _, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Open returns a handle for serving a stored artifact.
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadSeekCloser, fs.FileInfo, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrArtifactNotFound
	}
	return f, info, nil
}

// write copies r into a temp file and renames it into place.
func (s *LocalStore) write(ctx context.Context, name string, r io.Reader) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	return nil
}

// resolve confines name to the store directory.
func (s *LocalStore) resolve(name string) (string, error) {
	if name == "" || name == "." || strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	if filepath.Dir(path) != s.dir {
		return "", ErrInvalidName
	}
	return path, nil
}

// SanitizeFilename reduces a client-supplied filename to a safe base name:
// the last path element, NFC-normalized with combining marks removed, and
// restricted to ASCII letters, digits, dot, dash and underscore.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, name); err == nil {
		name = folded
	}

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	ext := filepath.Ext(out)
	if len(ext) > maxNameLength/2 {
		ext = ""
	}
	stem := strings.TrimLeft(strings.TrimSuffix(out, ext), "._")
	if stem == "" {
		stem = "upload"
	}
	if len(stem)+len(ext) > maxNameLength {
		stem = stem[:maxNameLength-len(ext)]
	}
	return stem + ext
}
