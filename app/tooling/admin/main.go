// This program performs administrative tasks against a stored ledger
// snapshot.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/utxochain/app/tooling/admin/commands"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/kv"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrHelp) {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args  conf.Args
		State struct {
			Storage  string `conf:"default:disk,help:disk|kv"`
			DiskPath string `conf:"default:zblock/ledger.json"`
			KVPath   string `conf:"default:zblock/ledger.db"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Infow("startup", "status", "opening storage", "kind", cfg.State.Storage)

	var strg storage.Storage
	switch cfg.State.Storage {
	case "disk":
		strg, err = disk.New(cfg.State.DiskPath)
	case "kv":
		strg, err = kv.New(cfg.State.KVPath)
	default:
		err = fmt.Errorf("unknown storage kind %q", cfg.State.Storage)
	}
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer strg.Close()

	return processCommands(cfg.Args, strg)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, strg storage.Storage) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(os.Stdout, args.Num(1), strg); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "trans":
		if err := commands.Transactions(os.Stdout, args.Num(1), strg); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}

	case "validate":
		if err := commands.Validate(os.Stdout, strg); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}

	case "proofs":
		if err := commands.Proofs(os.Stdout, strg); err != nil {
			return fmt.Errorf("exporting proofs: %w", err)
		}

	default:
		fmt.Println("bals [address]: show the balance for every address or the specified one")
		fmt.Println("trans [address]: show every confirmed transaction or the history of an address")
		fmt.Println("validate: walk the chain and report the first failure")
		fmt.Println("proofs: export a merkle proof for every confirmed transaction")
		fmt.Println("provide a command to get more help.")
		return commands.ErrHelp
	}

	return nil
}
