// Command neuralmemory runs the HTTP/MCP front end over a
// single-logical-writer-per-brain pool (pkg/concurrency), exposing the
// ten public operations (spec.md §6) through pkg/api.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lam-tt/neural-memory/pkg/api"
	"github.com/lam-tt/neural-memory/pkg/concurrency"
	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/daemon"
	"github.com/lam-tt/neural-memory/pkg/lifecycle"
	"github.com/lam-tt/neural-memory/pkg/persistence"
	"github.com/lam-tt/neural-memory/pkg/registry"
)

type cliFlags struct {
	configPath      *string
	httpAddr        *string
	dataPath        *string
	compress        *bool
	registryEnabled *bool
	adminEnabled    *bool
	adminUser       *string
	adminPassword   *string
	allowedOrigins  *string
	tlsCert         *string
	tlsKey          *string
}

func main() {
	var flags cliFlags

	rootCmd := &cobra.Command{
		Use:   "neuralmemory",
		Short: "NeuralMemory - a persistent, offline, biologically-inspired memory engine",
		Long:  "A per-agent memory store built from neurons, synapses and fibers, consolidated through sleep-style background passes instead of vector similarity search.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Flags(), &flags)
		},
		SilenceUsage: true,
	}

	f := rootCmd.Flags()
	flags.configPath = f.StringP("config", "f", "", "Path to YAML config file (overrides NEURALMEMORY_CONFIG env)")
	flags.httpAddr = f.String("http-addr", "", "HTTP listen address")
	flags.dataPath = f.String("data-path", "", "Data directory for brain files")
	flags.compress = f.Bool("compress", false, "Enable msgpack compression")
	flags.registryEnabled = f.Bool("registry", false, "Require brain ids to be registered before first use")
	flags.adminEnabled = f.Bool("admin", false, "Enable admin endpoints")
	flags.adminUser = f.String("admin-user", "", "Admin username")
	flags.adminPassword = f.String("admin-password", "", "Admin password")
	flags.allowedOrigins = f.String("allowed-origins", "", "CORS allowed origins (comma-separated, \"*\" for all)")
	flags.tlsCert = f.String("tls-cert", "", "Path to TLS certificate file")
	flags.tlsKey = f.String("tls-key", "", "Path to TLS private key file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(flags *pflag.FlagSet, o *cliFlags) error {
	log.Println("NeuralMemory starting")

	configPath := *o.configPath
	if configPath == "" {
		configPath = os.Getenv("NEURALMEMORY_CONFIG")
	}

	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyExplicitFlags(flags, cfg, o)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log.Printf("data path: %s", cfg.Storage.DataPath)
	log.Printf("http: %s", cfg.Server.HTTPAddr)

	store, err := persistence.NewStoreWithDurability(
		cfg.Storage.DataPath,
		cfg.Storage.Compress,
		persistence.DurabilityConfig{
			WALEnabled:                 cfg.Storage.WALEnabled,
			FsyncPolicy:                cfg.Storage.FsyncPolicy,
			FsyncInterval:              cfg.Storage.FsyncInterval,
			ChecksumValidationInterval: cfg.Storage.ChecksumValidationInterval,
			StartupRepair:              cfg.Storage.StartupRepair,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	log.Println("persistence store initialized")

	reg, err := registry.NewStore(cfg.Storage.DataPath)
	if err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}
	log.Printf("brain registry initialized (%d entries)", reg.Count())

	pool := concurrency.NewWorkerPool(store)
	log.Println("worker pool initialized")

	lm := lifecycle.NewManager()
	lm.SetThresholds(cfg.Lifecycle.IdleThreshold, cfg.Lifecycle.SleepThreshold, cfg.Lifecycle.DormantThreshold)
	lm.SetCallbacks(
		func(brainID core.IndexID) { log.Printf("brain %s entering sleep", brainID) },
		func(brainID core.IndexID) { log.Printf("brain %s sleep completed", brainID) },
		func(brainID core.IndexID) {
			log.Printf("brain %s going dormant, persisting", brainID)
			pool.Evict(brainID)
		},
		func(brainID core.IndexID) { log.Printf("brain %s waking up", brainID) },
	)
	lm.StartMonitor(10 * time.Second)
	log.Println("lifecycle manager initialized")

	daemons := daemon.NewDaemonManager(pool, lm, store)
	daemons.SetIntervals(cfg.Daemon.DecayInterval, cfg.Daemon.ConsolidateInterval, cfg.Daemon.PersistInterval)
	daemons.Start()
	log.Println("background daemons started")

	flushStop := store.StartFlushWorker(cfg.Daemon.PersistInterval)
	checksumStop := store.StartChecksumValidationWorker(cfg.Storage.ChecksumValidationInterval)

	httpServer := api.NewServer(cfg.Server.HTTPAddr, pool, lm, reg, cfg)
	httpServer.SetDaemonManager(daemons)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Printf("http server error: %v", err)
		}
	}()

	log.Println("NeuralMemory is ready")

	waitForShutdown(ctx, cancel)

	log.Println("initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	daemons.Stop()
	lm.Stop()
	close(flushStop)
	if checksumStop != nil {
		close(checksumStop)
	}

	if err := pool.Shutdown(); err != nil {
		log.Printf("pool shutdown error: %v", err)
	}
	if err := store.FlushAll(); err != nil {
		log.Printf("final flush error: %v", err)
	}

	log.Println("NeuralMemory shutdown complete")
	return nil
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	cancel()
}

// applyExplicitFlags applies only the CLI flags explicitly set by the
// caller, so unset flags never override values already resolved from
// YAML or environment variables.
func applyExplicitFlags(flags *pflag.FlagSet, cfg *core.Config, o *cliFlags) {
	if flags.Changed("http-addr") {
		cfg.Server.HTTPAddr = *o.httpAddr
	}
	if flags.Changed("data-path") {
		cfg.Storage.DataPath = *o.dataPath
	}
	if flags.Changed("compress") {
		cfg.Storage.Compress = *o.compress
	}
	if flags.Changed("registry") {
		cfg.Registry.Enabled = *o.registryEnabled
	}
	if flags.Changed("admin") {
		cfg.Admin.Enabled = *o.adminEnabled
	}
	if flags.Changed("admin-user") {
		cfg.Admin.User = *o.adminUser
	}
	if flags.Changed("admin-password") {
		cfg.Admin.Password = *o.adminPassword
	}
	if flags.Changed("allowed-origins") {
		cfg.Security.AllowedOrigins = *o.allowedOrigins
	}
	if flags.Changed("tls-cert") {
		cfg.Security.TLSCert = *o.tlsCert
	}
	if flags.Changed("tls-key") {
		cfg.Security.TLSKey = *o.tlsKey
	}
}
