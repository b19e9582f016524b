// Package snapshotio implements the atomic truncate-and-replace,
// memory-mapped snapshot write shared by the token store (C5) and log
// store (C6) persistence layers.
package snapshotio

import (
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
)

// WriteAtomic writes data to a temp file in path's directory, copies it in
// through a memory mapping, and renames the temp file over path so readers
// never observe a partial write.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if len(data) == 0 {
		// mmap-go rejects mapping a zero-length file.
		if err := tmp.Close(); err != nil {
			return err
		}
		return os.Rename(tmpPath, path)
	}

	if err := tmp.Truncate(int64(len(data))); err != nil {
		tmp.Close()
		return err
	}

	m, err := mmap.Map(tmp, mmap.RDWR, 0)
	if err != nil {
		tmp.Close()
		return err
	}
	copy(m, data)
	if err := m.Flush(); err != nil {
		m.Unmap()
		tmp.Close()
		return err
	}
	if err := m.Unmap(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// ReadOrEmpty reads path, returning (nil, nil) if it doesn't exist so
// callers can treat a missing snapshot as an empty one.
func ReadOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}
