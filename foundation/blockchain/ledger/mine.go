package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. Only one mining operation runs at a
// time.
func (l *Ledger) MineNewBlock(ctx context.Context) (database.Block, error) {
	l.mining.Lock()
	defer l.mining.Unlock()

	if l.mineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.mineTimeout)
		defer cancel()
	}

	l.evHandler("ledger: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	trans := l.mempool.PickBest(int(l.genesis.TransPerBlock))
	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	l.evHandler("ledger: MineNewBlock: MINING: perform POW: txs[%d]", len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		Hasher:     l.hasher,
		Difficulty: l.genesis.Difficulty,
		PrevBlock:  l.LatestBlock(),
		Trans:      trans,
		EvHandler:  l.evHandler,
	})
	if err != nil {
		l.abandon(err)
		return database.Block{}, err
	}

	l.evHandler("ledger: MineNewBlock: MINING: update local state")

	if err := l.sealBlock(block); err != nil {
		l.abandon(err)
		return database.Block{}, err
	}

	return block, nil
}

// =============================================================================

// sealBlock validates the block against the tail of the chain, appends it,
// removes its transactions from the pool and persists the result.
func (l *Ledger) sealBlock(block database.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	latest, err := l.chain.Latest()
	if err != nil {
		return err
	}

	args := l.validateArgs()
	args.VerifyPOW = true
	if err := database.ValidateBlock(block, latest, args); err != nil {
		if errors.Is(err, database.ErrChainLinkage) {
			l.evHandler("ledger: sealBlock: ERROR: invariant violated, block discarded: %s", err)
		}
		return err
	}

	chain, err := l.chain.Append(block)
	if err != nil {
		l.evHandler("ledger: sealBlock: ERROR: invariant violated, block discarded: %s", err)
		return err
	}

	// The block must have consumed the head of the pool.
	pending := l.mempool.Copy()
	if len(pending) < len(block.Trans) {
		return fmt.Errorf("pool holds %d transactions, block sealed %d", len(pending), len(block.Trans))
	}
	for i, tx := range block.Trans {
		if pending[i].ID != tx.ID {
			return fmt.Errorf("pool position %d holds tx[%s], block sealed tx[%s]", i, pending[i].ID, tx.ID)
		}
	}

	l.evHandler("ledger: sealBlock: write to storage: blk[%d]", block.Header.Number)

	if err := l.storage.Save(database.NewRecord(chain, pending[len(block.Trans):])); err != nil {
		return fmt.Errorf("save block: %w", err)
	}

	l.chain = chain
	l.mempool.Drain(len(block.Trans))

	receipts := make([]database.Receipt, len(block.Trans))
	for i, tx := range block.Trans {
		receipts[i] = database.Receipt{
			Tx:          tx,
			BlockNumber: block.Header.Number,
			BlockHash:   block.Hash,
		}
	}
	l.notify(receipts, nil)

	l.blockEvent(block)

	return nil
}

// abandon tells every caller waiting on a pending transaction that mining
// stopped, not only those in the failed batch. The worker does not start a
// new operation after a failure, so nobody else would wake them. The
// transactions stay in the pool.
func (l *Ledger) abandon(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := l.mempool.Copy()
	receipts := make([]database.Receipt, len(pending))
	for i, tx := range pending {
		receipts[i] = database.Receipt{Tx: tx}
	}

	l.notify(receipts, err)
}

// blockEvent sends the new block to any viewer connected to the events.
func (l *Ledger) blockEvent(block database.Block) {
	data, err := json.Marshal(block)
	if err != nil {
		l.evHandler("ledger: blockEvent: ERROR: %s", err)
		return
	}

	l.evHandler("viewer: block: %s", string(data))
}
