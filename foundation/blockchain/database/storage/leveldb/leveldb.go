// Package leveldb implements the ledger storage on top of a LevelDB
// database.
package leveldb

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
)

// Keys used to store the ledger record.
var (
	recordKey = []byte("ledger")
)

// LevelDB stores the ledger record as a single value in a LevelDB database.
// This implements the database.Storage interface.
type LevelDB struct {
	db *leveldb.Database
}

// New opens or creates the database at the specified directory.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.New(dbPath, 0, 0, "", false)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", dbPath, err)
	}

	return &LevelDB{db: db}, nil
}

// Load reads the record from the database or returns database.ErrNotFound
// when nothing has been saved.
func (l *LevelDB) Load() (database.Record, error) {
	data, err := l.db.Get(recordKey)
	if err != nil {
		if errors.Is(err, lerrors.ErrNotFound) {
			return database.Record{}, database.ErrNotFound
		}
		return database.Record{}, err
	}

	var record database.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return database.Record{}, fmt.Errorf("decode record: %w", err)
	}

	return record, nil
}

// Save replaces the record in the database.
func (l *LevelDB) Save(record database.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return l.db.Put(recordKey, data)
}

// Reset moves the current record under a backup key so the next Load
// finds nothing.
func (l *LevelDB) Reset() error {
	data, err := l.db.Get(recordKey)
	if err != nil {
		if errors.Is(err, lerrors.ErrNotFound) {
			return nil
		}
		return err
	}

	backup := fmt.Appendf(nil, "%s.corrupt-%d", recordKey, time.Now().UTC().UnixMilli())

	batch := l.db.NewBatch()
	if err := batch.Put(backup, data); err != nil {
		return err
	}
	if err := batch.Delete(recordKey); err != nil {
		return err
	}

	return batch.Write()
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}
