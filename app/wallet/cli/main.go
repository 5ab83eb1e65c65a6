// This program is a wallet for the ledger. It manages key files and talks to
// a node to query balances and submit signed transactions.
package main

import "github.com/ardanlabs/utxochain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
