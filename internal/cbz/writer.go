// Package cbz writes page-image archives (CBZ).
//
// Output is atomic: entries go to a temporary file next to the destination,
// which is renamed into place by Close and removed by Abort. A failed
// conversion therefore never leaves a truncated archive behind.
//
// Entries are stored uncompressed with a fixed modification time, so the
// same pages always produce byte-identical archives.
package cbz

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ModTime is the modification time recorded for every entry.
var ModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	ErrDuplicateEntry = errors.New("cbz: duplicate entry name")
	ErrClosed         = errors.New("cbz: writer already closed")
)

// Writer builds a CBZ file.
type Writer struct {
	path   string
	tmp    *os.File
	zw     *zip.Writer
	names  map[string]struct{}
	closed bool
}

// Create opens a new archive that will appear at path once Close succeeds.
// The destination directory is created if needed.
func Create(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &Writer{
		path:  path,
		tmp:   tmp,
		zw:    zip.NewWriter(tmp),
		names: make(map[string]struct{}),
	}, nil
}

// Path returns the final destination of the archive.
func (w *Writer) Path() string {
	return w.path
}

// WriteEntry stores data under name.
func (w *Writer) WriteEntry(name string, data []byte) error {
	if w.closed {
		return ErrClosed
	}
	if _, dup := w.names[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}

	ew, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: ModTime,
	})
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", name, err)
	}
	if _, err := ew.Write(data); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", name, err)
	}

	w.names[name] = struct{}{}
	return nil
}

// Len returns the number of entries written so far.
func (w *Writer) Len() int {
	return len(w.names)
}

// Close finalizes the archive and moves it to its destination.
// On failure the temporary file is removed.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	tmpPath := w.tmp.Name()
	if err := w.zw.Close(); err != nil {
		w.tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := w.tmp.Chmod(0o644); err != nil {
		w.tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

// Abort discards everything written. It is a no-op after Close, so it
// can be deferred right after Create.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.zw.Close()
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}
