package database

import "errors"

// Set of errors returned by the database package.
var (
	// ErrInvalidAmount is returned when a transaction amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInvalidAccount is returned when a transaction account is empty.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrEmptyChain is returned when a chain holds no blocks. A chain built
	// by this package always holds the genesis block.
	ErrEmptyChain = errors.New("chain is empty")

	// ErrChainLinkage is returned when a block doesn't follow the latest
	// block in the chain.
	ErrChainLinkage = errors.New("block does not link to the chain")

	// ErrInvalidBlock is returned when a block's content doesn't match its
	// hash or its hash doesn't solve the proof of work.
	ErrInvalidBlock = errors.New("invalid block")

	// ErrCancelled is returned when a mining operation is stopped before a
	// solution is found.
	ErrCancelled = errors.New("mining cancelled")

	// ErrNotFound is returned by a Storage when nothing has been persisted.
	ErrNotFound = errors.New("ledger record not found")
)
