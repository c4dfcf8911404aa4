package commands

import (
	"strconv"

	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var txsCmd = &cobra.Command{
	Use:   "txs <account>",
	Short: "Print the sealed transactions for an account, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}

		account, err := database.ToAccountID(args[0])
		if err != nil {
			return err
		}

		data := pterm.TableData{{"Block", "ID", "From", "To", "Amount", "Description"}}
		for _, r := range database.TransactionsFor(s.chain, account) {
			data = append(data, []string{
				strconv.FormatUint(r.BlockNumber, 10),
				r.ID,
				string(r.FromID),
				string(r.ToID),
				r.Amount.String(),
				r.Description,
			})
		}

		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(txsCmd)
}
