// Package runner submits certificate emissions either to the Temporal task
// queue or, when the broker was unreachable at startup, inline in the caller.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/backoffice/internal/metrics"
	"github.com/edvin/backoffice/internal/workflow"
)

// Mode is how a Runner executes submissions. It is bound once in New.
type Mode string

const (
	// ModeAsync enqueues a workflow and returns immediately.
	ModeAsync Mode = "async"
	// ModeDegraded runs the emission inline and returns its outcome.
	ModeDegraded Mode = "sync"
)

// ErrQueueUnavailable is returned when enqueueing fails after the startup
// probe succeeded. The runner does not fall back to inline execution.
var ErrQueueUnavailable = errors.New("queue unavailable")

// Emitter runs one emission attempt. *core.EmissionService satisfies it.
type Emitter interface {
	Emit(ctx context.Context, id int64) error
}

// DefaultInlineTimeout matches the emission activity's start-to-close
// timeout on the worker.
const DefaultInlineTimeout = 5 * time.Minute

type Options struct {
	TaskQueue    string
	ProbeTimeout time.Duration
	MaxAttempts  int32
	// InlineTimeout bounds one degraded-mode attempt.
	InlineTimeout time.Duration
}

type Runner struct {
	mode    Mode
	tc      temporalclient.Client
	emitter Emitter
	opts    Options
	logger  zerolog.Logger
}

// New probes the broker once and binds the runner's mode for the lifetime
// of the process. A nil client binds degraded mode without probing.
func New(ctx context.Context, tc temporalclient.Client, emitter Emitter, opts Options, logger zerolog.Logger) *Runner {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = workflow.DefaultMaxAttempts
	}
	if opts.InlineTimeout <= 0 {
		opts.InlineTimeout = DefaultInlineTimeout
	}
	r := &Runner{
		mode:    ModeDegraded,
		tc:      tc,
		emitter: emitter,
		opts:    opts,
		logger:  logger.With().Str("component", "runner").Logger(),
	}

	if tc != nil {
		if err := probe(ctx, tc, opts.ProbeTimeout); err != nil {
			r.logger.Warn().Err(err).Msg("broker probe failed, emissions will run synchronously")
		} else {
			r.mode = ModeAsync
		}
	}

	metrics.RunnerMode.WithLabelValues(string(ModeAsync)).Set(boolGauge(r.mode == ModeAsync))
	metrics.RunnerMode.WithLabelValues(string(ModeDegraded)).Set(boolGauge(r.mode == ModeDegraded))
	r.logger.Info().Str("mode", string(r.mode)).Str("task_queue", opts.TaskQueue).Msg("job runner bound")
	return r
}

func probe(ctx context.Context, tc temporalclient.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := tc.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		return fmt.Errorf("broker health check: %w", err)
	}
	return nil
}

// Mode reports the mode bound at startup.
func (r *Runner) Mode() Mode {
	return r.mode
}

// Submit hands the record to the bound execution path. In async mode it
// returns once the emission is enqueued; a submission for a record whose
// workflow is still running counts as enqueued. In degraded mode it returns
// the outcome of the attempt. The inline attempt is detached from the
// caller's cancellation, so a client that hangs up leaves the record in the
// same state the worker would.
func (r *Runner) Submit(ctx context.Context, id int64) error {
	if r.mode == ModeDegraded {
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.InlineTimeout)
		defer cancel()

		err := r.emitter.Emit(emitCtx, id)
		if err != nil {
			r.count("error")
			return err
		}
		r.count("ok")
		return nil
	}

	_, err := r.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:                                       workflow.WorkflowID(id),
		TaskQueue:                                r.opts.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, "EmitCertificateWorkflow", workflow.EmitCertificateParams{
		CertificateID: id,
		MaxAttempts:   r.opts.MaxAttempts,
	})
	if temporal.IsWorkflowExecutionAlreadyStartedError(err) {
		r.logger.Info().Int64("certificate_id", id).Msg("emission already enqueued")
		r.count("duplicate")
		return nil
	}
	if err != nil {
		r.count("error")
		r.logger.Error().Err(err).Int64("certificate_id", id).Msg("failed to enqueue emission")
		return fmt.Errorf("enqueue certificate %d: %w: %v", id, ErrQueueUnavailable, err)
	}

	r.count("ok")
	return nil
}

func (r *Runner) count(result string) {
	metrics.RunnerSubmissionsTotal.WithLabelValues(string(r.mode), result).Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
