// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultMaxLogBytes is the size threshold at which RotatingFileWriter
// rotates its log file: 10 MiB.
const DefaultMaxLogBytes = 10 * 1024 * 1024

// RotatingFileWriter appends to a single log file, renaming it to
// "<path>.1" (replacing any previous backup) once it grows past maxBytes.
// Only one backup generation is kept, matching the pipeline's log-rotation
// contract.
type RotatingFileWriter struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	f        *os.File
	size     int64
}

// NewRotatingFileWriter opens (creating if necessary) path for append and
// returns a writer that rotates it at maxBytes. A maxBytes <= 0 defaults
// to DefaultMaxLogBytes.
func NewRotatingFileWriter(path string, maxBytes int64) (*RotatingFileWriter, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLogBytes
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("log: mkdir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("log: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("log: stat %s: %w", path, err)
	}
	return &RotatingFileWriter{
		path:     path,
		maxBytes: maxBytes,
		f:        f,
		size:     info.Size(),
	}, nil
}

// Write implements io.Writer. If appending p would push the file past
// maxBytes, the file is rotated (renamed to "<path>.1", replacing any
// existing backup) before p is written to a fresh file.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) rotateLocked() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("log: close %s before rotation: %w", w.path, err)
	}

	backup := w.path + ".1"
	if err := os.Rename(w.path, backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("log: rotate %s to %s: %w", w.path, backup, err)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("log: reopen %s after rotation: %w", w.path, err)
	}
	w.f = f
	w.size = 0
	return nil
}

// Close closes the underlying file.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
