package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/utxochain/app/services/node/handlers"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/kv"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/utxochain/foundation/blockchain/worker"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/ardanlabs/utxochain/foundation/metrics"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		State struct {
			GenesisFile      string        `conf:"default:zblock/genesis.json"`
			Storage          string        `conf:"default:disk,help:memory|disk|kv"`
			DiskPath         string        `conf:"default:zblock/ledger.json"`
			KVPath           string        `conf:"default:zblock/ledger.db"`
			MinerKey         string        `conf:"default:zblock/accounts/miner1.ecdsa"`
			RewardAddress    string        `conf:"help:overrides the address derived from the miner key"`
			SaveInterval     time.Duration `conf:"default:1m"`
			HistoryCacheSize uint64        `conf:"default:500"`
			HistoryTTL       time.Duration `conf:"default:1h"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
		Log struct {
			File       string `conf:"help:also write logs to this file with rotation"`
			MaxSizeMB  int    `conf:"default:100"`
			MaxBackups int    `conf:"default:3"`
			MaxAgeDays int    `conf:"default:28"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// Switch to a logger that also keeps a rotated file when one is configured.
	if cfg.Log.File != "" {
		log = logger.NewRotating("NODE", logger.Rotation{
			Filename:   cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   true,
		})
		defer log.Sync()
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for addresses. The
	// names come from the key file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the addresses for documentation in the logs.
	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// =========================================================================
	// Blockchain Support

	// The chain parameters come from the genesis file so every node builds
	// the same genesis block.
	gen, err := genesis.Load(cfg.State.GenesisFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unable to load genesis file: %w", err)
		}
		log.Infow("startup", "status", "genesis file missing, using defaults", "file", cfg.State.GenesisFile)
		gen = genesis.Default()
	}

	// The reward address is taken from the configured miner key unless it
	// is provided directly. Without one the node validates but never mines.
	rewardAddress := cfg.State.RewardAddress
	if rewardAddress == "" && cfg.State.MinerKey != "" {
		wallet, err := signature.Load(cfg.State.MinerKey)
		switch {
		case err != nil:
			log.Infow("startup", "status", "miner key not loaded, mining disabled", "file", cfg.State.MinerKey, "ERROR", err)
		default:
			rewardAddress = wallet.Address()
		}
	}
	log.Infow("startup", "status", "miner", "address", rewardAddress, "name", ns.Lookup(rewardAddress))

	strg, err := openStorage(cfg.State.Storage, cfg.State.DiskPath, cfg.State.KVPath)
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the ledger node and manages the chain, the
	// utxo set and the mempool and provides an API for application support.
	st, err := state.New(state.Config{
		Difficulty:       gen.Difficulty,
		MiningReward:     &gen.MiningReward,
		DefaultFee:       &gen.DefaultFee,
		GenesisTime:      gen.Date,
		Storage:          strg,
		HistoryCacheSize: cfg.State.HistoryCacheSize,
		HistoryTTL:       cfg.State.HistoryTTL,
		EvHandler:        ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker package implements the mining workflow and the periodic
	// snapshot. The worker will register itself with the state.
	worker.Run(st, worker.Config{
		RewardAddress: rewardAddress,
		SaveInterval:  cfg.State.SaveInterval,
		EvHandler:     ev,
	})

	// =========================================================================
	// Metrics Support

	m := metrics.New()
	m.RegisterLedger(st)
	m.RegisterCounter("events_dropped_total", "Events a slow websocket client missed.", evts.Dropped)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st, m)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Metrics:  m,
		State:    st,
		NS:       ns,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Metrics:  m,
		State:    st,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// openStorage constructs the storage backend the snapshot is persisted to.
func openStorage(kind string, diskPath string, kvPath string) (storage.Storage, error) {
	switch kind {
	case "memory":
		return memory.New()
	case "disk":
		return disk.New(diskPath)
	case "kv":
		return kv.New(kvPath)
	}

	return nil, fmt.Errorf("unknown storage kind %q", kind)
}
