// Package ledger is the core API for the blockchain and implements all the
// business rules for accepting, mining and querying transactions.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/blockbank/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockbank/foundation/blockchain/mempool"
)

// Set of errors returned by the ledger.
var (
	// ErrInsufficientBalance is returned when the sender can't cover the
	// amount with the funds not already reserved by pending transactions.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCorruptPersistedState is returned when the stored record can't be
	// decoded or doesn't validate.
	ErrCorruptPersistedState = errors.New("corrupt persisted state")

	// ErrNoTransactions is returned when a block is requested to be created
	// and there are not enough transactions.
	ErrNoTransactions = errors.New("no transactions in mempool")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// LoadMode determines how much of the persisted record is trusted on startup.
type LoadMode int

// Set of load modes. The zero value validates everything.
const (
	LoadAndValidate LoadMode = iota
	LoadTrusted
)

// ParseLoadMode converts the configuration value to a LoadMode.
func ParseLoadMode(s string) (LoadMode, error) {
	switch strings.ToLower(s) {
	case "", "validate":
		return LoadAndValidate, nil
	case "trusted":
		return LoadTrusted, nil
	}

	return 0, fmt.Errorf("unknown load mode %q", s)
}

// String implements the fmt.Stringer interface.
func (m LoadMode) String() string {
	if m == LoadTrusted {
		return "trusted"
	}
	return "validate"
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Genesis      genesis.Genesis
	Storage      database.Storage
	LoadMode     LoadMode
	SkipPOWCheck bool
	StrictLoad   bool
	MineTimeout  time.Duration
	EvHandler    EventHandler
}

// result is handed to a waiting Submit call once its transaction has been
// sealed or mining for it has stopped.
type result struct {
	receipt database.Receipt
	err     error
}

// Ledger manages the chain and the pending transactions.
type Ledger struct {
	genesis     genesis.Genesis
	hasher      database.Hasher
	verifyPOW   bool
	mineTimeout time.Duration
	evHandler   EventHandler
	storage     database.Storage

	mu      sync.RWMutex
	chain   database.Chain
	mempool *mempool.Mempool
	waiters map[string]chan result

	mining sync.Mutex

	worker Worker
}

// New constructs a ledger from the persisted record held by the storage. A
// fresh chain holding only the genesis block is used when nothing has been
// stored yet.
func New(cfg Config) (*Ledger, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	hasher, err := cfg.Genesis.Hasher()
	if err != nil {
		return nil, err
	}

	strg := cfg.Storage
	if strg == nil {
		strg = memory.New()
	}

	l := Ledger{
		genesis:     cfg.Genesis,
		hasher:      hasher,
		verifyPOW:   !cfg.SkipPOWCheck,
		mineTimeout: cfg.MineTimeout,
		evHandler:   ev,
		storage:     strg,
		mempool:     mempool.New(),
		waiters:     make(map[string]chan result),
	}

	chain, pending, err := l.load(cfg.LoadMode)
	if err != nil {
		if !cfg.StrictLoad {
			ev("ledger: New: WARNING: %s: starting from a fresh chain", err)
			chain, pending, err = l.recover()
		}
		if err != nil {
			return nil, err
		}
	}

	l.chain = chain
	for _, tx := range pending {
		l.mempool.Enqueue(tx)
	}

	ev("ledger: New: loaded: blocks[%d]: pending[%d]: mode[%s]", chain.Len(), len(pending), cfg.LoadMode)

	// The Worker is not set here. The call to worker.Run will register itself
	// through SetWorker and start everything up and running for the ledger.

	return &l, nil
}

// Shutdown cleanly brings the ledger down.
func (l *Ledger) Shutdown() error {
	l.evHandler("ledger: Shutdown: started")
	defer l.evHandler("ledger: Shutdown: completed")

	// Stop all mining activity.
	if w := l.currentWorker(); w != nil {
		w.Shutdown()
	}

	return l.storage.Close()
}

// SetWorker registers the worker that mines pending transactions. Submit
// calls made before a worker is registered mine on the caller's goroutine.
func (l *Ledger) SetWorker(w Worker) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.worker = w
}

// =============================================================================

// currentWorker returns the registered worker or nil.
func (l *Ledger) currentWorker() Worker {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.worker
}

// load reads the persisted record and converts it into a chain and the
// set of pending transactions.
func (l *Ledger) load(mode LoadMode) (database.Chain, []database.Tx, error) {
	record, err := l.storage.Load()
	switch {
	case errors.Is(err, database.ErrNotFound):
		chain := database.NewChain(l.hasher)
		if err := l.storage.Save(database.NewRecord(chain, nil)); err != nil {
			return database.Chain{}, nil, err
		}
		return chain, nil, nil

	case err != nil:
		return database.Chain{}, nil, fmt.Errorf("%w: %w", ErrCorruptPersistedState, err)
	}

	chain, err := database.ToChain(record.Chain)
	if err != nil {
		return database.Chain{}, nil, fmt.Errorf("%w: %w", ErrCorruptPersistedState, err)
	}

	if mode == LoadTrusted {
		return chain, record.PendingPool, nil
	}

	if err := database.Validate(chain, l.validateArgs()); err != nil {
		return database.Chain{}, nil, fmt.Errorf("%w: %w", ErrCorruptPersistedState, err)
	}

	for _, tx := range record.PendingPool {
		if tx.Status != database.TxPending {
			return database.Chain{}, nil, fmt.Errorf("%w: pending tx[%s] has status %s", ErrCorruptPersistedState, tx.ID, tx.Status)
		}
		if err := tx.Validate(); err != nil {
			return database.Chain{}, nil, fmt.Errorf("%w: %w", ErrCorruptPersistedState, err)
		}
	}

	return chain, record.PendingPool, nil
}

// recover discards the persisted record and starts over with a fresh chain.
func (l *Ledger) recover() (database.Chain, []database.Tx, error) {
	if err := l.storage.Reset(); err != nil {
		return database.Chain{}, nil, fmt.Errorf("reset storage: %w", err)
	}

	chain := database.NewChain(l.hasher)
	if err := l.storage.Save(database.NewRecord(chain, nil)); err != nil {
		return database.Chain{}, nil, err
	}

	return chain, nil, nil
}

// validateArgs returns the rules blocks are checked against.
func (l *Ledger) validateArgs() database.ValidateArgs {
	return database.ValidateArgs{
		Hasher:     l.hasher,
		Difficulty: l.genesis.Difficulty,
		VerifyPOW:  l.verifyPOW,
	}
}
