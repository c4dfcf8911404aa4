package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// Submit accepts a transfer for inclusion in the chain and waits until it has
// been sealed into a block. The funds are reserved as soon as the transaction
// is accepted, so concurrent submissions can't spend them twice. If the
// context ends before the transaction is sealed, the pending receipt is
// returned with database.ErrCancelled and the transaction stays in the pool.
func (l *Ledger) Submit(ctx context.Context, fromID database.AccountID, toID database.AccountID, amount decimal.Decimal, description string) (database.Receipt, error) {
	tx, err := database.NewTx(fromID, toID, amount, description)
	if err != nil {
		return database.Receipt{}, err
	}

	wait, err := l.reserve(tx)
	if err != nil {
		return database.Receipt{}, err
	}

	l.evHandler("ledger: Submit: accepted: tx[%s]", tx)

	w := l.currentWorker()
	if w == nil {
		return l.mineInline(ctx, tx, wait)
	}

	w.SignalStartMining()

	select {
	case res := <-wait:
		return res.receipt, res.err

	case <-ctx.Done():
		l.release(tx.ID)
		return database.Receipt{Tx: tx}, fmt.Errorf("%w: %w", database.ErrCancelled, ctx.Err())
	}
}

// =============================================================================

// reserve checks the sender can cover the transaction and places it in the
// pool. The check, the save and the enqueue happen under the same lock so
// two submissions never reserve the same funds.
func (l *Ledger) reserve(tx database.Tx) (chan result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	available := l.available(tx.FromID)
	if available.LessThan(tx.Amount) {
		return nil, fmt.Errorf("%w: account[%s]: available[%s]: amount[%s]", ErrInsufficientBalance, tx.FromID, available, tx.Amount)
	}

	pending := append(l.mempool.Copy(), tx)
	if err := l.storage.Save(database.NewRecord(l.chain, pending)); err != nil {
		return nil, fmt.Errorf("save pending tx: %w", err)
	}

	l.mempool.Enqueue(tx)

	wait := make(chan result, 1)
	l.waiters[tx.ID] = wait

	return wait, nil
}

// release stops delivering a result for the transaction.
func (l *Ledger) release(txID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.waiters, txID)
}

// notify hands the result for each transaction to its waiting Submit call.
// The caller must hold the write lock.
func (l *Ledger) notify(receipts []database.Receipt, err error) {
	for _, receipt := range receipts {
		wait, exists := l.waiters[receipt.ID]
		if !exists {
			continue
		}

		delete(l.waiters, receipt.ID)
		wait <- result{receipt: receipt, err: err}
	}
}

// mineInline performs the mining on the caller's goroutine when no worker
// has been registered.
func (l *Ledger) mineInline(ctx context.Context, tx database.Tx, wait chan result) (database.Receipt, error) {
	for {
		select {
		case res := <-wait:
			return res.receipt, res.err
		default:
		}

		_, err := l.MineNewBlock(ctx)
		if err == nil || errors.Is(err, ErrNoTransactions) {
			continue
		}

		// A failed mining operation notifies the batch it was working on.
		select {
		case res := <-wait:
			return res.receipt, res.err
		default:
			l.release(tx.ID)
			return database.Receipt{Tx: tx}, err
		}
	}
}
