package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
	ErrExtNotAllowed = errors.New("file extension is not allowed")
)

// MaxUploadSize is the maximum allowed total request size for uploads (16 MiB)
const MaxUploadSize = 16 * 1024 * 1024

// AllowedExtensions contains the document extensions accepted for bills
var AllowedExtensions = map[string]bool{
	"pdf":  true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// AllowedFile reports whether the filename carries an accepted extension.
// The check is case-insensitive and requires a dot.
func AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return false
	}
	return AllowedExtensions[strings.ToLower(ext)]
}

// Ext returns the lower-case extension of a filename without the dot
func Ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// MailFilename builds the stored name for a mail attachment:
// {unix-timestamp}_{original-name}. The prefix guards against collisions
// while keeping the original extension intact.
func MailFilename(unixTS int64, originalName string) string {
	return fmt.Sprintf("%d_%s", unixTS, filepath.Base(originalName))
}

// ManualFilename builds the stored name for a directly uploaded file:
// manual_{unix-timestamp}_{index}.{ext}.
func ManualFilename(unixTS int64, index int, ext string) string {
	return fmt.Sprintf("manual_%d_%d.%s", unixTS, index, strings.ToLower(ext))
}

// FileStorage defines the interface for stored bill documents. Filenames are
// generated by callers and serve as the de-facto record key, so Save keeps
// the given name instead of inventing one.
type FileStorage interface {
	Save(filename string, content io.Reader) error
	Get(filename string) (io.ReadCloser, error)
	Delete(filename string) error
	Exists(filename string) bool
	Path(filename string) (string, error)
}

// localStorage implements FileStorage using a flat local directory
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) (FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &localStorage{basePath: basePath}, nil
}

// validatePath ensures the filename stays within basePath (prevents traversal)
func (s *localStorage) validatePath(filename string) (string, error) {
	cleanPath := filepath.Clean(filename)

	if filepath.IsAbs(cleanPath) {
		return "", ErrPathTraversal
	}
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	fullPath := filepath.Join(s.basePath, cleanPath)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// Save stores a file under the given name
func (s *localStorage) Save(filename string, content io.Reader) error {
	if !AllowedFile(filename) {
		return ErrExtNotAllowed
	}

	fullPath, err := s.validatePath(filename)
	if err != nil {
		return err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Get retrieves a stored file by name
func (s *localStorage) Get(filename string) (io.ReadCloser, error) {
	fullPath, err := s.validatePath(filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes a stored file by name. A missing file is not an error.
func (s *localStorage) Delete(filename string) error {
	fullPath, err := s.validatePath(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Exists reports whether a stored file is present
func (s *localStorage) Exists(filename string) bool {
	fullPath, err := s.validatePath(filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// Path returns the absolute filesystem path for a stored file
func (s *localStorage) Path(filename string) (string, error) {
	return s.validatePath(filename)
}
