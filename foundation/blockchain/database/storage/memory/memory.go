// Package memory implements the ledger storage in memory. The record is
// kept in its serialized form so a Load never shares memory with a Save.
package memory

import (
	"encoding/json"
	"sync"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
)

// Memory is used to store the ledger record in memory. This implements the
// database.Storage interface.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// New constructs a new, empty memory storage.
func New() *Memory {
	return &Memory{}
}

// Load returns the last saved record or database.ErrNotFound.
func (m *Memory) Load() (database.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return database.Record{}, database.ErrNotFound
	}

	var record database.Record
	if err := json.Unmarshal(m.data, &record); err != nil {
		return database.Record{}, err
	}

	return record, nil
}

// Save replaces the stored record.
func (m *Memory) Save(record database.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = data

	return nil
}

// SetRaw replaces the stored bytes without any encoding. It allows a
// damaged record to be simulated.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = data
}

// Reset discards the stored record.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil

	return nil
}

// Close has nothing to release.
func (m *Memory) Close() error {
	return nil
}
