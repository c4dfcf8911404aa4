package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	url         string
	from        string
	to          string
	amount      string
	description string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a transaction to a running ledger service",
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amount, err)
		}

		req := struct {
			From        string          `json:"from"`
			To          string          `json:"to"`
			Amount      decimal.Decimal `json:"amount"`
			Description string          `json:"description"`
		}{
			From:        from,
			To:          to,
			Amount:      value,
			Description: description,
		}

		data, err := json.Marshal(req)
		if err != nil {
			return err
		}

		spinner, _ := pterm.DefaultSpinner.Start("Waiting for the transaction to be mined")

		client := http.Client{Timeout: time.Minute}
		resp, err := client.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		defer resp.Body.Close()

		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			spinner.Fail(err.Error())
			return err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			spinner.Success(fmt.Sprintf("Sealed in block %v: %v", body["block_number"], body["block_hash"]))
		case http.StatusAccepted:
			spinner.Warning(fmt.Sprintf("Still pending: %v", body["id"]))
		default:
			spinner.Fail(fmt.Sprintf("%d: %v", resp.StatusCode, body["error"]))
			return fmt.Errorf("transaction rejected")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the ledger service.")
	sendCmd.Flags().StringVarP(&from, "from", "f", "", "Account sending the funds.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the funds.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send.")
	sendCmd.Flags().StringVarP(&description, "description", "m", "", "Note attached to the transaction.")
	sendCmd.MarkFlagRequired("from")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}
