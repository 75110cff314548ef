package storage

import (
	"io"
	"time"
)

// Backend is the interface that wraps the spool file operations. Files are
// grouped per upload batch; a failed file stays spooled so the operator
// can recover it.
type Backend interface {
	// Name returns the name of the backend implementation.
	Name() string

	// Reader returns a ReadCloser of the spooled file.
	Reader(batch, filename string) (io.ReadCloser, error)
	// Writer returns a WriteCloser of the spooled file.
	Writer(batch, filename string) (io.WriteCloser, error)

	// Batches lists the batch directories currently spooled.
	Batches() ([]string, error)
	// ModTime returns the last modification time of the given batch.
	ModTime(batch string) (time.Time, error)
	// Filenames lists the file names spooled for the given batch.
	Filenames(batch string) ([]string, error)

	// Remove deletes the given spooled file.
	Remove(batch, filename string) error
	// RemoveBatch deletes a whole batch.
	RemoveBatch(batch string) error
	// Cleanup removes empty batch directories.
	Cleanup() error
}
