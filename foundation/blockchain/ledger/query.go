package ledger

import (
	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/ardanlabs/blockbank/foundation/blockchain/genesis"
	"github.com/shopspring/decimal"
)

// Stats summarizes the chain.
type Stats struct {
	TotalBlocks       int  `json:"total_blocks"`
	TotalTransactions int  `json:"total_transactions"`
	Pending           int  `json:"pending"`
	IsValid           bool `json:"is_valid"`
}

// Chain returns a snapshot of the chain. The snapshot is unaffected by
// blocks added later.
func (l *Ledger) Chain() database.Chain {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain
}

// LatestBlock returns a copy of the current latest block.
func (l *Ledger) LatestBlock() database.Block {
	chain := l.Chain()

	block, err := chain.Latest()
	if err != nil {
		return database.Block{}
	}

	return block
}

// Genesis returns a copy of the genesis information.
func (l *Ledger) Genesis() genesis.Genesis {
	return l.genesis
}

// Mempool returns a copy of the pending transactions in submission order.
func (l *Ledger) Mempool() []database.Tx {
	return l.mempool.Copy()
}

// MempoolLength returns the current length of the mempool.
func (l *Ledger) MempoolLength() int {
	return l.mempool.Count()
}

// Balance returns the net amount the account has received minus what it
// has sent across the sealed chain.
func (l *Ledger) Balance(accountID database.AccountID) decimal.Decimal {
	return database.Balance(l.Chain(), accountID)
}

// Available returns the funds the account can still spend: the starting
// balance plus the net chain balance less what is reserved by pending
// transactions.
func (l *Ledger) Available(accountID database.AccountID) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.available(accountID)
}

// TransactionsFor returns the sealed transactions for the account, newest
// first.
func (l *Ledger) TransactionsFor(accountID database.AccountID) []database.Receipt {
	return database.TransactionsFor(l.Chain(), accountID)
}

// Validate replays the chain and returns the first problem found.
func (l *Ledger) Validate() error {
	return database.Validate(l.Chain(), l.validateArgs())
}

// Stats returns the summary of the chain.
func (l *Ledger) Stats() Stats {
	chain := l.Chain()

	return Stats{
		TotalBlocks:       chain.Len(),
		TotalTransactions: chain.TotalTransactions(),
		Pending:           l.mempool.Count(),
		IsValid:           database.IsValid(chain, l.validateArgs()),
	}
}

// =============================================================================

// available calculates the spendable funds. The caller must hold a lock.
func (l *Ledger) available(accountID database.AccountID) decimal.Decimal {
	starting := l.genesis.StartingBalance(accountID)
	net := database.Balance(l.chain, accountID)
	reserved := l.mempool.PendingOutflow(accountID)

	return starting.Add(net).Sub(reserved)
}
