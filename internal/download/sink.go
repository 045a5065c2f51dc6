package download

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sink writes downloaded images under a base directory.
type Sink struct {
	baseDir string
}

// NewSink creates the base directory when missing and verifies it is
// writable before any download starts.
func NewSink(baseDir string) (*Sink, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("download directory is required")
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create download directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat download directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("download path %q is not a directory", baseDir)
	}

	testFile := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("download directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Sink{baseDir: baseDir}, nil
}

// Put stores data under name and returns the stored path. The write
// goes to a temporary file first, so an interrupted run never leaves a
// half-written image behind.
func (s *Sink) Put(name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("file name is required")
	}

	fullPath := filepath.Join(s.baseDir, name)

	// Names derive from CSV content; reject anything escaping baseDir.
	cleanBase := filepath.Clean(s.baseDir)
	cleanFull := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFull, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected in %q", name)
	}

	tmp, err := os.CreateTemp(s.baseDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return fullPath, nil
}

// BaseDir returns the sink's root directory.
func (s *Sink) BaseDir() string {
	return s.baseDir
}
