package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the confirmed transactions for your address.",
	Run:   historyRun,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func historyRun(cmd *cobra.Command, args []string) {
	w, err := signature.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	entries, err := queryHistory(url, w.Address())
	if err != nil {
		log.Fatal(err)
	}

	for _, e := range entries {
		fmt.Printf("Block: %d  Tx: %.16s  Type: %-8s  Net: %s  Fee: %s\n", e.BlockIndex, e.TxID, e.Type, e.NetAmount, e.Fee)
	}
}

func queryHistory(url string, address string) ([]state.HistoryEntry, error) {
	var resp struct {
		Entries []state.HistoryEntry `json:"entries"`
	}
	if err := get(fmt.Sprintf("%s/v1/history/%s", url, address), &resp); err != nil {
		return nil, err
	}

	return resp.Entries, nil
}
