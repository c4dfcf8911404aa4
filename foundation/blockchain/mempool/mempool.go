// Package mempool maintains the pool of transactions that have been accepted
// but not yet sealed into a block.
package mempool

import (
	"slices"
	"sync"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// Mempool represents the ordered set of pending transactions. Transactions
// leave the pool in the same order they entered it.
type Mempool struct {
	mu   sync.RWMutex
	pool []database.Tx
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Enqueue adds the transaction to the tail of the pool and returns the new
// size of the pool.
func (mp *Mempool) Enqueue(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// PickBest returns the next set of transactions for a block in submission
// order. A value of zero or less for howMany returns every transaction.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if howMany <= 0 || howMany > len(mp.pool) {
		howMany = len(mp.pool)
	}

	return slices.Clone(mp.pool[:howMany])
}

// Copy returns a copy of every transaction in the pool.
func (mp *Mempool) Copy() []database.Tx {
	return mp.PickBest(-1)
}

// Drain removes and returns the first n transactions from the pool.
func (mp *Mempool) Drain(n int) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if n > len(mp.pool) {
		n = len(mp.pool)
	}

	drained := slices.Clone(mp.pool[:n])
	mp.pool = slices.Clone(mp.pool[n:])

	return drained
}

// DrainAll removes and returns every transaction from the pool.
func (mp *Mempool) DrainAll() []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	drained := mp.pool
	mp.pool = nil

	return drained
}

// PendingOutflow returns the sum of the amounts the account is sending in
// transactions that are still in the pool.
func (mp *Mempool) PendingOutflow(accountID database.AccountID) decimal.Decimal {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	total := decimal.Zero
	for _, tx := range mp.pool {
		if tx.FromID == accountID {
			total = total.Add(tx.Amount)
		}
	}

	return total
}
