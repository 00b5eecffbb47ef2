package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/backoffice/internal/api"
	"github.com/edvin/backoffice/internal/config"
	"github.com/edvin/backoffice/internal/core"
	"github.com/edvin/backoffice/internal/db"
	"github.com/edvin/backoffice/internal/issuer"
	"github.com/edvin/backoffice/internal/logging"
	"github.com/edvin/backoffice/internal/metrics"
	"github.com/edvin/backoffice/internal/runner"
	"github.com/edvin/backoffice/internal/storage"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-api-key" {
		createAPIKey(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("core-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg, "core-api")

	if *migrateFlag {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.CoreDatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool, "core-api")

	services, err := newServices(cfg, corePool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure certificate issuers")
	}

	// A broker that cannot be dialled binds the runner to synchronous mode
	// for the lifetime of the process.
	tc, err := dialBroker(ctx, cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Str("address", cfg.TemporalAddress).Msg("failed to connect to temporal")
		tc = nil
	} else {
		defer tc.Close()
	}

	jobs := runner.New(ctx, tc, services.Emission, runner.Options{
		TaskQueue:     cfg.EmissionTaskQueue,
		ProbeTimeout:  cfg.BrokerProbeTimeout,
		MaxAttempts:   int32(cfg.EmissionMaxAttempts),
		InlineTimeout: cfg.IssuerAgentTimeout + 15*time.Second,
	}, logger)

	srv := api.NewServer(logger, corePool, services, jobs, tc)

	// Degraded mode holds requests for a whole emission, so the write
	// timeout covers the issuer agent timeout.
	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.IssuerAgentTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Str("runner_mode", string(jobs.Mode())).Msg("starting core API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func dialBroker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (temporalclient.Client, error) {
	tlsConfig, err := cfg.BrokerTLS()
	if err != nil {
		return nil, err
	}
	dialOpts := temporalclient.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.BrokerProbeTimeout)
	defer cancel()
	return temporalclient.DialContext(dialCtx, dialOpts)
}

func newServices(cfg *config.Config, pool core.DB, logger zerolog.Logger) (*core.Services, error) {
	overrides, err := cfg.LoadIssuers()
	if err != nil {
		return nil, err
	}
	registry, err := issuer.FromConfig(cfg, overrides, logger)
	if err != nil {
		return nil, err
	}

	gateway := storage.NewS3Gateway(storage.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}, logger)

	return core.NewServices(pool, registry, gateway, core.EmissionOptions{
		ValidityDays: cfg.CertValidityDays,
		NotesMaxLen:  cfg.CertNotesMaxLen,
		AttemptLease: cfg.EmissionAttemptLease,
	}, logger), nil
}

func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	name := fs.String("name", "", "Name for the API key (required)")
	operator := fs.String("operator", "", "Operator recorded as requested_by (required)")
	fs.Parse(args)

	if *name == "" || *operator == "" {
		fmt.Fprintln(os.Stderr, "error: --name and --operator are required")
		fmt.Fprintln(os.Stderr, "usage: core-api create-api-key --name <name> --operator <operator>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, 2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := core.NewAPIKeyService(pool)
	key, rawKey, err := svc.Create(ctx, *name, *operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created successfully.\n\n")
	fmt.Printf("  Name:     %s\n", key.Name)
	fmt.Printf("  Operator: %s\n", key.Operator)
	fmt.Printf("  ID:       %s\n", key.ID)
	fmt.Printf("  Key:      %s\n\n", rawKey)
	fmt.Printf("Save this key, it will not be shown again.\n")
}
