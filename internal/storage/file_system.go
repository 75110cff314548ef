package storage

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

type fs struct {
	workspace string
}

// NewFileSystem returns a new File System spool.
func NewFileSystem(workspace string) Backend {
	return &fs{
		workspace: workspace,
	}
}

func (b *fs) Name() string {
	return "file_system"
}

func (b *fs) Reader(batch, filename string) (io.ReadCloser, error) {
	rc, err := os.Open(filepath.Join(b.workspace, batch, filename))
	if err != nil {
		return rc, errors.Wrap(err, "could not open spooled file")
	}
	return rc, err
}

func (b *fs) Writer(batch, filename string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Join(b.workspace, batch), 0755); err != nil {
		return nil, errors.Wrap(err, "could not create batch directory")
	}

	wc, err := os.Create(filepath.Join(b.workspace, batch, filename))
	if err != nil {
		return wc, errors.Wrap(err, "could not create spooled file")
	}
	return wc, err
}

func (b *fs) Batches() ([]string, error) {
	entries, err := os.ReadDir(b.workspace)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not list batches")
	}

	var batches []string
	for _, entry := range entries {
		if entry.IsDir() {
			batches = append(batches, entry.Name())
		}
	}
	return batches, nil
}

func (b *fs) ModTime(batch string) (time.Time, error) {
	fi, err := os.Stat(filepath.Join(b.workspace, batch))
	if err != nil {
		return time.Time{}, errors.Wrap(err, "could not stat batch")
	}
	return fi.ModTime(), nil
}

func (b *fs) Filenames(batch string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(b.workspace, batch))
	if err != nil {
		return nil, errors.Wrap(err, "could not list batch")
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filenames = append(filenames, entry.Name())
	}
	return filenames, nil
}

func (b *fs) Remove(batch, filename string) error {
	err := os.Remove(filepath.Join(b.workspace, batch, filename))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "could not delete spooled file")
	}
	return nil
}

func (b *fs) RemoveBatch(batch string) error {
	err := os.RemoveAll(filepath.Join(b.workspace, batch))
	return errors.Wrap(err, "could not delete batch")
}

func (b *fs) Cleanup() error {
	batches, err := b.Batches()
	if err != nil {
		return errors.Wrap(err, "cleanup")
	}

	for _, batch := range batches {
		filenames, err := b.Filenames(batch)
		if err != nil {
			continue
		}
		if len(filenames) == 0 {
			os.RemoveAll(filepath.Join(b.workspace, batch))
		}
	}
	return nil
}
