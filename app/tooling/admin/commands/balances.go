package commands

import (
	"slices"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [account]",
	Short: "Print the balances replayed from the chain",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}

		var accounts []database.AccountID
		switch len(args) {
		case 1:
			account, err := database.ToAccountID(args[0])
			if err != nil {
				return err
			}
			accounts = append(accounts, account)

		default:
			for account := range database.Balances(s.chain) {
				accounts = append(accounts, account)
			}
			for account := range s.genesis.Balances {
				if !slices.Contains(accounts, database.AccountID(account)) {
					accounts = append(accounts, database.AccountID(account))
				}
			}
			slices.Sort(accounts)
		}

		data := pterm.TableData{{"Account", "Balance", "Available"}}
		for _, account := range accounts {
			balance := database.Balance(s.chain, account)

			reserved := decimal.Zero
			for _, tx := range s.pending {
				if tx.FromID == account {
					reserved = reserved.Add(tx.Amount)
				}
			}
			available := s.genesis.StartingBalance(account).Add(balance).Sub(reserved)

			data = append(data, []string{string(account), balance.String(), available.String()})
		}

		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
