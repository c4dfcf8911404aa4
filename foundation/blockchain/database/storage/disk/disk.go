// Package disk implements the ledger storage as a single JSON document on
// disk.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
)

// Disk represents the serialization implementation for reading and storing
// the ledger record in a file on disk. This implements the database.Storage
// interface.
type Disk struct {
	path string
}

// New constructs a Disk value for use. The directory holding the file is
// created if it doesn't exist.
func New(path string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	return &Disk{path: path}, nil
}

// Close in this implementation has nothing to do since the file is opened
// and closed on every write.
func (d *Disk) Close() error {
	return nil
}

// Load reads the record from disk. If the file doesn't exist the
// database.ErrNotFound error is returned.
func (d *Disk) Load() (database.Record, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.Record{}, database.ErrNotFound
		}
		return database.Record{}, err
	}

	var record database.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return database.Record{}, fmt.Errorf("decode %s: %w", d.path, err)
	}

	return record, nil
}

// Save writes the record to a temporary file and renames it over the
// existing file, so a crash never leaves a partial record behind.
func (d *Disk) Save(record database.Record) error {

	// Marshal the record for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, d.path)
}

// Reset moves the current file aside so the next Load finds nothing. The
// old file is kept next to the original for inspection.
func (d *Disk) Reset() error {
	backup := fmt.Sprintf("%s.corrupt-%d", d.path, time.Now().UTC().UnixMilli())

	err := os.Rename(d.path, backup)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
