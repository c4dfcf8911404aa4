package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the blocks in the chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}

		data := pterm.TableData{{"Number", "Hash", "Prev Hash", "Nonce", "Txs"}}
		for _, block := range s.chain.Blocks() {
			data = append(data, []string{
				strconv.FormatUint(block.Header.Number, 10),
				block.Hash,
				block.Header.PrevBlockHash,
				strconv.FormatUint(block.Header.Nonce, 10),
				strconv.Itoa(len(block.Trans)),
			})
		}

		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the summary of the chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}

		latest, err := s.chain.Latest()
		if err != nil {
			return err
		}

		pterm.Info.Printfln("Total Blocks: %d", s.chain.Len())
		pterm.Info.Printfln("Total Transactions: %d", s.chain.TotalTransactions())
		pterm.Info.Printfln("Pending: %d", len(s.pending))
		pterm.Info.Printfln("Latest Block: %s", latest.Hash)

		if err := validateChain(s); err != nil {
			pterm.Error.Printfln("Valid: false: %s", err)
			return nil
		}
		pterm.Success.Println("Valid: true")

		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Replay the chain and report the first problem found",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}

		if err := validateChain(s); err != nil {
			return fmt.Errorf("chain is not valid: %w", err)
		}

		pterm.Success.Printfln("Chain of %d blocks is valid", s.chain.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(validateCmd)
}

func validateChain(s store) error {
	spinner, _ := pterm.DefaultSpinner.Start("Validating chain")
	defer spinner.Stop()

	return s.validate()
}
