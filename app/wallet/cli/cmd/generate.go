package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var importWIF string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&importWIF, "wif", "", "Import the private key from WIF instead of generating one.")
}

func generateRun(cmd *cobra.Command, args []string) {
	address, err := generate(getPrivateKeyPath(), importWIF)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(address)
}

// generate writes a new or imported key to the path and returns its address.
func generate(path string, wif string) (string, error) {
	var w *signature.Wallet
	var err error

	switch wif {
	case "":
		w, err = signature.NewWallet()
	default:
		w, err = signature.FromWIF(wif)
	}
	if err != nil {
		return "", err
	}

	if err := w.Save(path); err != nil {
		return "", err
	}

	return w.Address(), nil
}
