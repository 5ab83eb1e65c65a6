package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var showSecrets bool

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address for the specific wallet",
	Run:   accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.Flags().BoolVar(&showSecrets, "secrets", false, "Also print the public key and the WIF private key.")
}

func accountRun(cmd *cobra.Command, args []string) {
	w, err := signature.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Address:", w.Address())
	if showSecrets {
		fmt.Println("Public Key:", w.PublicKeyHex())
		fmt.Println("WIF:", w.ExportWIF())
	}
}
