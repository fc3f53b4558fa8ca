// internal/logging/rotating.go
package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sync"
)

// keepRotated is how many rotated files survive before the oldest is
// dropped.
const keepRotated = 5

// RotatingWriter is an io.Writer that rotates its file once it grows
// past maxSize bytes. Rotated files are gzip-compressed and numbered
// <path>.1.gz (newest) through <path>.5.gz (oldest).
type RotatingWriter struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	file    *os.File
	written int64
}

// NewRotatingWriter opens (or creates) the log file at path.
func NewRotatingWriter(path string, maxSize int64) (*RotatingWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	return &RotatingWriter{
		path:    path,
		maxSize: maxSize,
		file:    f,
		written: info.Size(),
	}, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// rotate shifts the numbered files up, compresses the current file into
// the .1.gz slot, and reopens a fresh log.
func (w *RotatingWriter) rotate() error {
	w.file.Close()

	for i := keepRotated; i >= 1; i-- {
		gz := fmt.Sprintf("%s.%d.gz", w.path, i)
		plain := fmt.Sprintf("%s.%d", w.path, i)
		if i == keepRotated {
			os.Remove(gz)
			os.Remove(plain)
			continue
		}
		os.Rename(gz, fmt.Sprintf("%s.%d.gz", w.path, i+1))
		os.Rename(plain, fmt.Sprintf("%s.%d", w.path, i+1))
	}

	// An uncompressed .1 is the fallback when gzip fails; the shift
	// above handles both extensions so neither form is ever orphaned.
	if err := gzipFile(w.path, w.path+".1.gz"); err != nil {
		os.Rename(w.path, w.path+".1")
	} else {
		os.Remove(w.path)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.written = 0
	return nil
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
