// Package filesystem provides the file-backed output sink that download
// stages write payloads through.
package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/arithx/update-engine/internal/port"
)

// FileSink writes payload bytes to a local file starting at a fixed
// offset. Opening truncates the destination to that offset, so stale
// bytes beyond the resume point never survive into the finished file.
type FileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Ensure FileSink implements port.OutputSink
var _ port.OutputSink = (*FileSink)(nil)

// OpenSink opens the destination for writing at the given byte offset,
// creating parent directories as needed. The file is truncated to offset
// bytes and writes continue from there; offset 0 starts the file over.
func OpenSink(path string, offset uint64) (port.OutputSink, error) {
	return openFileSink(path, offset)
}

func openFileSink(path string, offset uint64) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create parent dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}
	if err := f.Truncate(int64(offset)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to truncate to resume offset: %w", err)
	}
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek to resume offset: %w", err)
	}

	return &FileSink{path: path, file: f}, nil
}

// Path returns the destination path.
func (s *FileSink) Path() string {
	return s.path
}

// Write appends p to the destination file.
func (s *FileSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return os.ErrClosed
	}
	if _, err := s.file.Write(p); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	return nil
}

// Close syncs and closes the destination. Safe to call more than once.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil

	f.Sync()
	return f.Close()
}

// Size returns the current byte count of a destination file, or 0 when it
// does not exist. The transfer store uses it to reconcile resume offsets
// with what is actually on disk.
func Size(path string) (uint64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}
