package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/oriys/snapshotbuilder/internal/cache"
	"github.com/oriys/snapshotbuilder/internal/config"
	"github.com/oriys/snapshotbuilder/internal/domain"
	"github.com/oriys/snapshotbuilder/internal/logging"
	"github.com/oriys/snapshotbuilder/internal/metrics"
	"github.com/oriys/snapshotbuilder/internal/observability"
	"github.com/oriys/snapshotbuilder/internal/output"
	"github.com/oriys/snapshotbuilder/internal/queueresolver"
	"github.com/oriys/snapshotbuilder/internal/scanstore"
	"github.com/oriys/snapshotbuilder/internal/snapassembler"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "snapbuild",
		Short: "Application dependency snapshot builder",
		Long:  "Assembles a composite application dependency snapshot from per-service static-analysis scans.",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (optional, defaults used otherwise)")

	rootCmd.AddCommand(
		buildCmd(),
		validateRequestCmd(),
		invalidateCacheCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}

func buildAssembler(ctx context.Context, cfg *config.Config) (*snapassembler.Assembler, func(), error) {
	var c cache.Cache
	var redisCache *cache.RedisCache
	if cfg.Cache.RedisAddr != "" {
		redisCache = cache.NewRedisCache(cache.RedisCacheConfig{
			Addr:      cfg.Cache.RedisAddr,
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		// In-memory L1 in front of Redis so repeated lookups within one
		// build don't round-trip over the network.
		c = cache.NewTieredCache(cache.NewInMemoryCache(), redisCache, 10*time.Second)
	} else {
		c = cache.NewInMemoryCache()
	}

	var store scanstore.Store
	var postgresStore *scanstore.PostgresStore
	var closeStore func()
	switch cfg.Store.Kind {
	case "postgres":
		ps, err := scanstore.NewPostgresStore(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres scan store: %w", err)
		}
		store = ps
		postgresStore = ps
		closeStore = func() { ps.Close() }
	default:
		store = scanstore.NewDirStore(cfg.Store.Dir)
		closeStore = func() {}
	}

	var resolver queueresolver.Resolver
	if cfg.QueueResolver.Kind == "dao" {
		// §4.6: the DAO variant looks up queue names in the scan store's
		// queue_map table instead of calling an HTTP endpoint, so it's only
		// available when the backing store is Postgres.
		if postgresStore == nil {
			closeStore()
			return nil, nil, fmt.Errorf("queue_resolver.kind=dao requires store.kind=postgres")
		}
		resolver = queueresolver.NewDAOResolver(postgresStore, c)
	} else {
		resolver = queueresolver.New(cfg.QueueResolver, c)
	}

	stopInvalidator := func() {}
	if redisCache != nil && cfg.QueueResolver.Kind == "dao" {
		// queue_map is edited out-of-process (an operator correcting a
		// mapping, or an upstream sync job); subscribe so every build
		// worker sharing this Redis instance evicts the stale entry from
		// its local cache instead of waiting out the TTL.
		inv := cache.NewCacheInvalidator(c, redisCache.Client())
		invCtx, cancel := context.WithCancel(context.Background())
		go inv.Start(invCtx)
		stopInvalidator = func() {
			_ = inv.Close()
			cancel()
		}
	}

	asm := snapassembler.New(store, resolver)
	cleanup := func() {
		stopInvalidator()
		closeStore()
		_ = c.Close()
	}
	return asm, cleanup, nil
}

func initObservability(ctx context.Context, cfg *config.Config) error {
	logging.InitStructured(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)

	if err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.Tracing.Enabled,
		Exporter:    cfg.Observability.Tracing.Exporter,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		ServiceName: cfg.Observability.Tracing.ServiceName,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
	}); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	if cfg.Observability.Metrics.Enabled {
		metrics.InitPrometheus(cfg.Observability.Metrics.Namespace, cfg.Observability.Metrics.HistogramBuckets)
	}

	return nil
}

func buildCmd() *cobra.Command {
	var requestFile string
	var outputFile string
	var format string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble a snapshot from a build request",
		Long:  "Reads a BuildRequest (JSON) and writes the resulting Snapshot to stdout or --output, in --format.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			buildID := uuid.New().String()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := initObservability(ctx, cfg); err != nil {
				return err
			}
			defer observability.Shutdown(ctx)

			// A CI/orchestrator invoking this as a batch job may pass down
			// the W3C trace context of the workflow that triggered it, the
			// same way e.g. OpenTelemetry's own CLI instrumentation does.
			ctx = observability.InjectTraceContext(ctx, observability.TraceContext{
				TraceParent: os.Getenv("TRACEPARENT"),
				TraceState:  os.Getenv("TRACESTATE"),
			})

			log := logging.Op()
			if cfg.Observability.Logging.IncludeTraceID {
				log = logging.OpWithTrace(observability.GetTraceID(ctx), observability.GetSpanID(ctx))
			}

			var data []byte
			if requestFile == "" || requestFile == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(requestFile)
			}
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}

			var req domain.BuildRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}

			asm, cleanup, err := buildAssembler(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			log.Info("build started", "buildId", buildID, "app", req.AppName, "services", len(req.Services))

			snap, err := asm.Build(ctx, &req)
			if err != nil {
				log.Error("build failed", "buildId", buildID, "app", req.AppName, "error", err)
				return err
			}

			log.Info("build finished", "buildId", buildID, "app", req.AppName,
				"isComplete", snap.IsComplete, "failedServices", len(snap.FailedServices))

			for _, w := range snap.Warnings {
				output.Warning(os.Stderr, "%s", w)
			}

			var w io.Writer = os.Stdout
			var f *os.File
			if outputFile != "" && outputFile != "-" {
				f, err = os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("open output: %w", err)
				}
				defer f.Close()
				w = f
			}

			printer := output.NewPrinter(output.ParseFormat(format), w)
			return printer.Print(snap)
		},
	}

	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "Path to BuildRequest JSON file (default: stdin)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Path to write the Snapshot (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}

func validateRequestCmd() *cobra.Command {
	var requestFile string

	cmd := &cobra.Command{
		Use:   "validate-request",
		Short: "Validate a BuildRequest without running a build",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if requestFile == "" || requestFile == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(requestFile)
			}
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}

			var req domain.BuildRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}

			if err := req.Validate(); err != nil {
				return err
			}

			fmt.Printf("valid request: app=%q services=%d\n", req.AppName, len(req.Services))
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "Path to BuildRequest JSON file (default: stdin)")
	return cmd
}

func invalidateCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate-cache [key]",
		Short: "Publish a cache-invalidation signal for a resolved queue name",
		Long:  "Notifies every build worker sharing the configured Redis cache to evict key, for use after an operator edits queue_map directly.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Cache.RedisAddr == "" {
				return fmt.Errorf("invalidate-cache requires cache.redis_addr to be configured")
			}

			redisCache := cache.NewRedisCache(cache.RedisCacheConfig{
				Addr:      cfg.Cache.RedisAddr,
				Password:  cfg.Cache.RedisPassword,
				DB:        cfg.Cache.RedisDB,
				KeyPrefix: cfg.Cache.KeyPrefix,
			})
			defer redisCache.Close()

			inv := cache.NewCacheInvalidator(redisCache, redisCache.Client())
			if err := inv.PublishInvalidation(ctx, args[0]); err != nil {
				return fmt.Errorf("publish invalidation: %w", err)
			}
			fmt.Printf("published invalidation for %q\n", args[0])
			return nil
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the snapbuild version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("snapbuild dev")
			return nil
		},
	}
}
