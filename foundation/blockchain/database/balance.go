package database

import "github.com/shopspring/decimal"

// Balance replays the chain from the genesis block and returns the net
// amount the account has received minus what it has sent.
func Balance(chain Chain, accountID AccountID) decimal.Decimal {
	balance := decimal.Zero

	for _, block := range chain.blocks {
		for _, tx := range block.Trans {
			if tx.FromID == accountID {
				balance = balance.Sub(tx.Amount)
			}
			if tx.ToID == accountID {
				balance = balance.Add(tx.Amount)
			}
		}
	}

	return balance
}

// Balances replays the chain and returns the net balance for every account
// that has transacted on it.
func Balances(chain Chain) map[AccountID]decimal.Decimal {
	sheet := make(map[AccountID]decimal.Decimal)

	for _, block := range chain.blocks {
		for _, tx := range block.Trans {
			sheet[tx.FromID] = sheet[tx.FromID].Sub(tx.Amount)
			sheet[tx.ToID] = sheet[tx.ToID].Add(tx.Amount)
		}
	}

	return sheet
}
