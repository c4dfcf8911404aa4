// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time                  `json:"date"`
	Difficulty    uint                       `json:"difficulty"`      // Number of leading zero hex characters a block hash needs.
	HashAlgorithm string                     `json:"hash_algorithm"`  // Algorithm used to hash blocks, sha256 or keccak256.
	TransPerBlock uint16                     `json:"trans_per_block"` // The maximum number of transactions in a block, zero for no limit.
	Balances      map[string]decimal.Decimal `json:"balances"`        // Starting funds available to spend per account.
}

// Default returns the genesis used when no file is provided. Difficulty 2
// keeps mining fast enough for tests and local runs.
func Default() Genesis {
	return Genesis{
		Date:          time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:    2,
		HashAlgorithm: database.SHA256,
		Balances:      map[string]decimal.Decimal{},
	}
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if _, err := genesis.Hasher(); err != nil {
		return Genesis{}, fmt.Errorf("genesis: %w", err)
	}

	for account, amount := range genesis.Balances {
		if _, err := database.ToAccountID(account); err != nil {
			return Genesis{}, fmt.Errorf("genesis: balance: %w", err)
		}
		if amount.IsNegative() {
			return Genesis{}, fmt.Errorf("genesis: balance: account[%s]: negative starting balance[%s]", account, amount)
		}
	}

	if genesis.Balances == nil {
		genesis.Balances = map[string]decimal.Decimal{}
	}

	return genesis, nil
}

// Hasher returns the block hasher named by the genesis.
func (g Genesis) Hasher() (database.Hasher, error) {
	return database.NewHasher(g.HashAlgorithm)
}

// StartingBalance returns the funds the account starts with before any
// block is mined.
func (g Genesis) StartingBalance(accountID database.AccountID) decimal.Decimal {
	return g.Balances[string(accountID)]
}
