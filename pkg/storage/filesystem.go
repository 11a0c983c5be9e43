package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StoredFile identifies an uploaded document.
type StoredFile struct {
	Name string `json:"name"`
	Path string `json:"-"`
	URL  string `json:"url"`
}

// LocalStorage persists uploaded files on disk under a base directory and
// addresses them through a public base URL.
type LocalStorage struct {
	baseDir string
	baseURL string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// SaveStream copies r into a uniquely named file inside folder.
func (s *LocalStorage) SaveStream(folder, originalName string, r io.Reader) (*StoredFile, error) {
	name := sanitize(originalName)
	rel := filepath.ToSlash(filepath.Join(sanitizeFolder(folder), uuid.NewString()+"-"+name))
	path := s.resolve(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write upload stream: %w", err)
	}
	return &StoredFile{Name: name, Path: rel, URL: s.baseURL + "/" + rel}, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(rel string) (*os.File, error) {
	file, err := os.Open(s.resolve(rel))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(rel string) error {
	if err := os.Remove(s.resolve(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Dir is the directory served under the base URL.
func (s *LocalStorage) Dir() string {
	return s.baseDir
}

func (s *LocalStorage) resolve(rel string) string {
	return filepath.Join(s.baseDir, filepath.Clean("/"+rel))
}

func sanitizeFolder(folder string) string {
	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(folder), "/") {
		if strings.TrimSpace(p) == "" || p == "." || p == ".." {
			continue
		}
		parts = append(parts, sanitize(p))
	}
	return filepath.Join(parts...)
}

func sanitize(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
