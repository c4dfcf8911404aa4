// Package database handles the lower level support for the ledger: the
// block and transaction model, proof of work mining, chain linkage,
// validation, balance replay and the persistence port used to store it.
package database

import "slices"

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the ledger.
type Storage interface {
	Load() (Record, error)
	Save(record Record) error
	Reset() error
	Close() error
}

// =============================================================================

// Record is the single logical value persisted for a ledger.
type Record struct {
	Chain       []Block `json:"chain"`
	PendingPool []Tx    `json:"pending_pool"`
}

// NewRecord constructs the record for the chain and pending transactions.
// The record shares memory with the chain and must only be read.
func NewRecord(chain Chain, pending []Tx) Record {
	pool := slices.Clone(pending)
	if pool == nil {
		pool = []Tx{}
	}

	return Record{
		Chain:       chain.blocks,
		PendingPool: pool,
	}
}
