package public

import (
	"time"

	"github.com/ardanlabs/blockbank/business/sys/validate"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// SubmitTx is the request to transfer funds between two accounts.
type SubmitTx struct {
	From        string          `json:"from" validate:"required"`
	To          string          `json:"to" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"max=256"`
}

// Validate checks the data in the model is considered clean.
func (s SubmitTx) Validate() error {
	return validate.Check(s)
}

type tx struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	TimeStamp   uint64 `json:"timestamp"`
	Status      string `json:"status"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	BlockHash   string `json:"block_hash,omitempty"`
}

func toTx(dbTx database.Tx) tx {
	return tx{
		ID:          dbTx.ID,
		From:        string(dbTx.FromID),
		To:          string(dbTx.ToID),
		Amount:      dbTx.Amount.String(),
		Description: dbTx.Description,
		TimeStamp:   dbTx.TimeStamp,
		Status:      string(dbTx.Status),
	}
}

func toReceipt(r database.Receipt) tx {
	t := toTx(r.Tx)
	t.BlockNumber = r.BlockNumber
	t.BlockHash = r.BlockHash
	return t
}

func toTxs(dbTxs []database.Tx) []tx {
	trans := make([]tx, len(dbTxs))
	for i, dbTx := range dbTxs {
		trans[i] = toTx(dbTx)
	}
	return trans
}

type block struct {
	Number        uint64 `json:"number"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     uint64 `json:"timestamp"`
	Nonce         uint64 `json:"nonce"`
	Hash          string `json:"hash"`
	Trans         []tx   `json:"txs"`
}

func toBlock(b database.Block) block {
	return block{
		Number:        b.Header.Number,
		PrevBlockHash: b.Header.PrevBlockHash,
		TimeStamp:     b.Header.TimeStamp,
		Nonce:         b.Header.Nonce,
		Hash:          b.Hash,
		Trans:         toTxs(b.Trans),
	}
}

type balance struct {
	Account   string `json:"account"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

type genesisInfo struct {
	Date          time.Time         `json:"date"`
	Difficulty    uint              `json:"difficulty"`
	HashAlgorithm string            `json:"hash_algorithm"`
	TransPerBlock uint16            `json:"trans_per_block"`
	Balances      map[string]string `json:"balances"`
}
