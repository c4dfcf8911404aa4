package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxStatus represents where a transaction is in its lifecycle.
type TxStatus string

// Set of transaction statuses.
const (
	TxPending TxStatus = "pending"
	TxSealed  TxStatus = "sealed"
)

// =============================================================================

// Tx is the value transfer between two accounts.
type Tx struct {
	ID          string          `json:"id"`          // Unique id for the transaction.
	FromID      AccountID       `json:"from"`        // Account paying the amount.
	ToID        AccountID       `json:"to"`          // Account receiving the amount.
	Amount      decimal.Decimal `json:"amount"`      // Positive value being transferred.
	Description string          `json:"description"` // Free form note supplied by the sender.
	TimeStamp   uint64          `json:"timestamp"`   // Time the transaction was accepted in milliseconds.
	Status      TxStatus        `json:"status"`      // Pending until the transaction is mined into a block.
}

// NewTx constructs a new pending transaction.
func NewTx(fromID AccountID, toID AccountID, amount decimal.Decimal, description string) (Tx, error) {
	if !fromID.IsAccountID() || !toID.IsAccountID() {
		return Tx{}, ErrInvalidAccount
	}

	if !amount.IsPositive() {
		return Tx{}, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}

	tx := Tx{
		ID:          uuid.NewString(),
		FromID:      fromID,
		ToID:        toID,
		Amount:      amount,
		Description: description,
		TimeStamp:   uint64(time.Now().UTC().UnixMilli()),
		Status:      TxPending,
	}

	return tx, nil
}

// Validate checks the transaction holds values that could have been
// produced by NewTx.
func (tx Tx) Validate() error {
	if tx.ID == "" {
		return fmt.Errorf("transaction missing id")
	}

	if !tx.FromID.IsAccountID() || !tx.ToID.IsAccountID() {
		return ErrInvalidAccount
	}

	if !tx.Amount.IsPositive() {
		return fmt.Errorf("%w: tx[%s]: got %s", ErrInvalidAmount, tx.ID, tx.Amount)
	}

	return nil
}

// Seal returns a copy of the transaction marked as sealed.
func (tx Tx) Seal() Tx {
	tx.Status = TxSealed
	return tx
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s->%s:%s", tx.ID, tx.FromID, tx.ToID, tx.Amount)
}

// =============================================================================

// Receipt is a transaction annotated with the block it was sealed into.
// A pending receipt has a zero block hash.
type Receipt struct {
	Tx
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
}

// TransactionsFor returns the sealed transactions where the account is the
// sender or the receiver, newest first.
func TransactionsFor(chain Chain, accountID AccountID) []Receipt {
	var out []Receipt

	for i := len(chain.blocks) - 1; i >= 0; i-- {
		block := chain.blocks[i]
		for j := len(block.Trans) - 1; j >= 0; j-- {
			tx := block.Trans[j]
			if tx.FromID != accountID && tx.ToID != accountID {
				continue
			}

			out = append(out, Receipt{
				Tx:          tx,
				BlockNumber: block.Header.Number,
				BlockHash:   block.Hash,
			})
		}
	}

	return out
}
