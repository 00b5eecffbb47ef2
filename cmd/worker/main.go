package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/backoffice/internal/activity"
	"github.com/edvin/backoffice/internal/config"
	"github.com/edvin/backoffice/internal/core"
	"github.com/edvin/backoffice/internal/db"
	"github.com/edvin/backoffice/internal/issuer"
	"github.com/edvin/backoffice/internal/logging"
	"github.com/edvin/backoffice/internal/metrics"
	"github.com/edvin/backoffice/internal/storage"
	"github.com/edvin/backoffice/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool, "worker")

	services, err := newServices(cfg, corePool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure certificate issuers")
	}

	tlsConfig, err := cfg.BrokerTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, cfg.EmissionTaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.WorkerConcurrency,
		Interceptors:                       []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	w.RegisterActivity(activity.NewEmission(services.Emission, services.Certificate, cfg.EmissionAttemptLease))

	w.RegisterWorkflow(workflow.EmitCertificateWorkflow)
	w.RegisterWorkflow(workflow.ReclaimStaleCertificatesWorkflow)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, corePool.Ping)
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return metricsSrv.Close()
		})
	}

	if err := w.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start worker")
	}
	logger.Info().Str("taskQueue", cfg.EmissionTaskQueue).Int("concurrency", cfg.WorkerConcurrency).Msg("started temporal worker")

	// Errors for already-existing schedules are ignored so that re-deploys
	// do not fail.
	registerCronSchedules(ctx, tc, cfg, logger)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down worker")
		w.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("worker failed")
	}
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

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
	args     []interface{}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, cfg *config.Config, logger zerolog.Logger) {
	var schedules []cronSchedule
	if cfg.ReclaimCron != "" {
		schedules = append(schedules, cronSchedule{
			id:       "certificate-reclaim-cron",
			cron:     cfg.ReclaimCron,
			workflow: workflow.ReclaimStaleCertificatesWorkflow,
			args: []interface{}{workflow.ReclaimParams{
				Batch:       cfg.ReclaimBatch,
				MaxAttempts: int32(cfg.EmissionMaxAttempts),
			}},
		})
	} else {
		logger.Info().Msg("stale certificate reclaim disabled")
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				Args:      s.args,
				TaskQueue: cfg.EmissionTaskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
