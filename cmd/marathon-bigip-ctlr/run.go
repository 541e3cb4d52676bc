package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/bigip"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/config"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/controller"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/journal"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/kubernetes"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/log"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/marathon"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/metrics"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/reconciler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reconciliation loop",
	Long: `Run polls the orchestrator on the configured interval and converges
the BIG-IP after every poll. The loop stops on SIGINT, SIGTERM, or a
non-retryable failure such as an unsupported health-check protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctrl, store, err := buildController(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		logger := log.WithComponent("main")

		server := &http.Server{Addr: cfg.MetricsAddr, Handler: observabilityMux()}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runErr := ctrl.Run(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
		return runErr
	},
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"sync-once"},
	Short:   "Run a single reconciliation pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctrl, store, err := buildController(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		stats, err := ctrl.RunOnce()
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

// loadConfig reads and validates the file named by --config, then
// initializes logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
		Output:     os.Stderr,
	})
	return cfg, nil
}

// buildController wires the configured source, device client, engine, and
// journal into a controller.
func buildController(cfg *config.Config) (*controller.Controller, *journal.Store, error) {
	device, err := bigip.NewClient(bigip.ClientOptions{
		URL:       cfg.BigIP.URL,
		Username:  cfg.BigIP.Username,
		Password:  cfg.BigIP.Password,
		VerifyTLS: cfg.BigIP.VerifyTLS,
	})
	if err != nil {
		return nil, nil, err
	}

	source, err := newSource(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := controller.Options{
		Source:   source,
		Engine:   reconciler.NewEngine(device, cfg.Partitions, cfg.Concurrency),
		Interval: cfg.PollInterval.Duration(),
		Keep:     cfg.JournalKeep,
	}

	var store *journal.Store
	if cfg.JournalPath != "" {
		store, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, nil, err
		}
		opts.Recorder = store
	}

	return controller.New(opts), store, nil
}

// newSource picks the orchestrator client for the configured source kind. A
// file:// URL swaps the HTTP client for a local state file.
func newSource(cfg *config.Config) (controller.Source, error) {
	path, fromFile := strings.CutPrefix(cfg.Source.URL, "file://")
	switch cfg.Source.Kind {
	case config.KindMarathon:
		builder := marathon.NewBuilder(cfg.Partitions, nil)
		if fromFile {
			return marathon.NewFileSource(path, builder), nil
		}
		client := marathon.NewClient(cfg.Source.URL, cfg.Source.Username, cfg.Source.Password)
		return marathon.NewSource(client, builder), nil
	case config.KindKubernetes:
		builder := kubernetes.NewBuilder(cfg.Partitions)
		if fromFile {
			return kubernetes.NewFileSource(path, builder), nil
		}
		client := kubernetes.NewClient(cfg.Source.URL, cfg.Source.Username, cfg.Source.Password)
		return kubernetes.NewSource(client, builder), nil
	}
	return nil, fmt.Errorf("unknown source kind: %q", cfg.Source.Kind)
}

func observabilityMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", metrics.LivenessHandler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	return mux
}
