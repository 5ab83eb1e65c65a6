package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
	fee    string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to send to.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send.")
	sendCmd.Flags().StringVarP(&fee, "fee", "f", "0.01", "Fee paid to the miner.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) {
	w, err := signature.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		log.Fatalf("amount: %s", err)
	}

	fees, err := decimal.NewFromString(fee)
	if err != nil {
		log.Fatalf("fee: %s", err)
	}

	txID, err := send(url, w, to, value, fees)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Submitted:", txID)
}

// send builds the spend from the outputs the node reports as available,
// signs it locally and submits it. The private key never leaves the wallet.
func send(url string, w *signature.Wallet, to string, amount decimal.Decimal, fee decimal.Decimal) (string, error) {
	if !signature.ValidateAddress(to) {
		return "", fmt.Errorf("invalid address %q", to)
	}

	var available struct {
		UTXOs []database.UTXO `json:"utxos"`
	}
	if err := get(fmt.Sprintf("%s/v1/utxos/%s/available", url, w.Address()), &available); err != nil {
		return "", err
	}

	selected, total := database.SelectUTXOs(available.UTXOs, amount, fee)
	if total.LessThan(amount.Add(fee)) {
		return "", fmt.Errorf("%w: available %s, need %s", database.ErrInsufficientInput, total, amount.Add(fee))
	}

	tx, err := database.NewSpendTx(selected, w.Address(), to, amount, fee, time.Now().UTC().Unix())
	if err != nil {
		return "", err
	}

	signed, err := tx.Sign(w)
	if err != nil {
		return "", err
	}

	if err := post(fmt.Sprintf("%s/v1/tx/submit", url), signed, nil); err != nil {
		return "", err
	}

	return signed.ID, nil
}
