package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type balance struct {
	Address     string          `json:"address"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	Available   decimal.Decimal `json:"available"`
	UTXOs       int             `json:"utxos"`
	LatestBlock string          `json:"latest_block"`
	Uncommitted int             `json:"uncommitted"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	w, err := signature.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Address:", w.Address())

	bal, err := queryBalance(url, w.Address())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Balance:", bal.Balance)
	fmt.Println("Available:", bal.Available)
	fmt.Println("UTXOs:", bal.UTXOs)
	fmt.Println("Latest Block:", bal.LatestBlock)
}

func queryBalance(url string, address string) (balance, error) {
	var bal balance
	if err := get(fmt.Sprintf("%s/v1/balance/%s", url, address), &bal); err != nil {
		return balance{}, err
	}

	return bal, nil
}
