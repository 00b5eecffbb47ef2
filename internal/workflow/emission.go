package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DefaultMaxAttempts bounds how often a failed emission is retried before
// the workflow gives up and the record stays failed.
const DefaultMaxAttempts = 3

// EmitCertificateParams is the message enqueued for one certificate record.
type EmitCertificateParams struct {
	CertificateID int64
	MaxAttempts   int32
}

// WorkflowID is the broker-side id of the emission for a record. At most one
// emission workflow per record runs at a time.
func WorkflowID(certificateID int64) string {
	return fmt.Sprintf("certificate-emission-%d", certificateID)
}

// emissionActivityCtx applies the retry policy for emission attempts.
// Precondition and unsupported-type failures are non-retryable and park the
// record on the first attempt.
func emissionActivityCtx(ctx workflow.Context, maxAttempts int32) workflow.Context {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    maxAttempts,
			InitialInterval:    10 * time.Second,
			MaximumInterval:    2 * time.Minute,
			BackoffCoefficient: 2.0,
		},
	})
}

// EmitCertificateWorkflow runs the emission for one record with bounded
// retries. When the last attempt fails the record keeps its failed status
// and note, and the workflow fails.
func EmitCertificateWorkflow(ctx workflow.Context, params EmitCertificateParams) error {
	ctx = emissionActivityCtx(ctx, params.MaxAttempts)

	err := workflow.ExecuteActivity(ctx, "EmitCertificate", params.CertificateID).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("certificate emission parked",
			"certificate_id", params.CertificateID, "error", err)
		return fmt.Errorf("emit certificate %d: %w", params.CertificateID, err)
	}
	return nil
}

// ReclaimParams configures one reclaim sweep.
type ReclaimParams struct {
	Batch       int
	MaxAttempts int32
}

// ReclaimStaleCertificatesWorkflow runs on a schedule and re-emits records
// whose submission was lost or whose worker died mid-attempt. Records are
// processed one at a time; a failing record does not stop the sweep.
func ReclaimStaleCertificatesWorkflow(ctx workflow.Context, params ReclaimParams) error {
	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	})

	var ids []int64
	err := workflow.ExecuteActivity(listCtx, "ListStaleCertificates", params.Batch).Get(ctx, &ids)
	if err != nil {
		return fmt.Errorf("list stale certificates: %w", err)
	}

	logger := workflow.GetLogger(ctx)
	emitCtx := emissionActivityCtx(ctx, params.MaxAttempts)
	var failed int
	for _, id := range ids {
		if err := workflow.ExecuteActivity(emitCtx, "EmitCertificate", id).Get(ctx, nil); err != nil {
			logger.Warn("reclaimed certificate failed", "certificate_id", id, "error", err)
			failed++
		}
	}

	logger.Info("reclaim sweep finished", "reclaimed", len(ids), "failed", failed)
	return nil
}
