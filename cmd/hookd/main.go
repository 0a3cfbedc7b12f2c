package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"hookd/internal/domain"
	"hookd/internal/infra/bridge"
	"hookd/internal/infra/credentials"
	"hookd/internal/infra/executor"
	"hookd/internal/infra/health"
	"hookd/internal/infra/manifest"
	"hookd/internal/infra/secrets"
	"hookd/internal/infra/telemetry"
)

type serveOptions struct {
	manifestPath string
	secretsPath  string
	obsAddr      string
	metrics      bool
	healthz      bool
	watch        bool
	debug        bool
	logger       *zap.Logger
}

// runtimeDefaults resolves the serve options from their built-in defaults
// and HOOKD_* environment variables. Flags override both.
func runtimeDefaults() serveOptions {
	v := viper.New()
	v.SetDefault("manifest", "tools.yaml")
	v.SetDefault("secrets", "")
	v.SetDefault("obs-addr", domain.DefaultObservabilityListenAddress)
	v.SetDefault("metrics", true)
	v.SetDefault("healthz", true)
	v.SetDefault("watch", true)
	v.SetDefault("debug", false)
	v.SetEnvPrefix("HOOKD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return serveOptions{
		manifestPath: v.GetString("manifest"),
		secretsPath:  v.GetString("secrets"),
		obsAddr:      v.GetString("obs-addr"),
		metrics:      v.GetBool("metrics"),
		healthz:      v.GetBool("healthz"),
		watch:        v.GetBool("watch"),
		debug:        v.GetBool("debug"),
		logger:       zap.NewNop(),
	}
}

func main() {
	opts := runtimeDefaults()

	root := &cobra.Command{
		Use:   "hookd",
		Short: "Webhook tool execution engine with an MCP stdio frontend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if opts.debug {
				cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			log, err := cfg.Build()
			if err != nil {
				return err
			}
			opts.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			applyServeFlagBindings(cmd.Flags(), &opts)
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()
			return serve(ctx, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.manifestPath, "manifest", opts.manifestPath, "path to the tool manifest yaml")
	root.PersistentFlags().StringVar(&opts.secretsPath, "secrets", opts.secretsPath, "path to the json secret store (optional)")
	root.PersistentFlags().StringVar(&opts.obsAddr, "obs-addr", opts.obsAddr, "observability listen address")
	root.PersistentFlags().BoolVar(&opts.metrics, "metrics", opts.metrics, "serve prometheus metrics on the observability address")
	root.PersistentFlags().BoolVar(&opts.healthz, "healthz", opts.healthz, "serve /healthz on the observability address")
	root.PersistentFlags().BoolVar(&opts.watch, "watch", opts.watch, "reload the manifest when the file changes")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", opts.debug, "enable debug logging")

	if err := root.Execute(); err != nil {
		opts.logger.Fatal("command failed", zap.Error(err))
	}
}

func serve(ctx context.Context, opts serveOptions) error {
	logger := opts.logger

	loader := manifest.NewLoader(logger, opts.debug)
	catalog, err := loader.Load(ctx, opts.manifestPath)
	if err != nil {
		return err
	}

	var store *secrets.FileStore
	if opts.secretsPath != "" {
		store = secrets.NewFileStore(opts.secretsPath, logger)
		if err := store.Reload(); err != nil {
			logger.Warn("secret store load failed", zap.Error(err))
		}
	}

	var secretStore credentials.SecretStore
	if store != nil {
		secretStore = store
	}

	monitor := health.NewMonitor(logger)
	var metrics domain.Metrics = telemetry.NewNoopMetrics()
	if opts.metrics {
		metrics = telemetry.NewPrometheusMetrics(nil)
	}

	engine := executor.NewEngine(executor.Options{
		Health:      monitor,
		Credentials: credentials.NewResolver(os.LookupEnv, secretStore, logger),
		Metrics:     metrics,
		Logger:      logger,
	})

	b := bridge.New(engine, health.NewProber(nil, logger), logger)
	b.Apply(catalog)

	if opts.watch {
		watcher := manifest.NewWatcher(opts.manifestPath, loader, b.Apply, logger)
		go watcher.Run(ctx)
	}

	if opts.metrics || opts.healthz {
		go func() {
			err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:          opts.obsAddr,
				EnableMetrics: opts.metrics,
				EnableHealthz: opts.healthz,
				Health:        monitor,
			}, logger)
			if err != nil {
				logger.Error("observability server exited", zap.Error(err))
			}
		}()
	}

	err = b.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func applyServeFlagBindings(flags *pflag.FlagSet, opts *serveOptions) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "manifest":
			opts.manifestPath, _ = flags.GetString("manifest")
		case "secrets":
			opts.secretsPath, _ = flags.GetString("secrets")
		case "obs-addr":
			opts.obsAddr, _ = flags.GetString("obs-addr")
		case "metrics":
			opts.metrics, _ = flags.GetBool("metrics")
		case "healthz":
			opts.healthz, _ = flags.GetBool("healthz")
		case "watch":
			opts.watch, _ = flags.GetBool("watch")
		case "debug":
			opts.debug, _ = flags.GetBool("debug")
		}
	})
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
