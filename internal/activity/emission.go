package activity

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/backoffice/internal/issuer"
)

// Emitter runs one emission attempt for a certificate record.
// *core.EmissionService satisfies this interface.
type Emitter interface {
	Emit(ctx context.Context, id int64) error
}

// StaleLister finds records whose emission never completed.
// *core.CertificateService satisfies this interface.
type StaleLister interface {
	ListStale(ctx context.Context, lease time.Duration, limit int) ([]int64, error)
}

// Emission contains the activities executed by the emission worker.
type Emission struct {
	emitter Emitter
	stale   StaleLister
	lease   time.Duration
}

// NewEmission creates a new Emission activity struct.
func NewEmission(emitter Emitter, stale StaleLister, lease time.Duration) *Emission {
	return &Emission{emitter: emitter, stale: stale, lease: lease}
}

// EmitCertificate runs one emission attempt. The record is already marked
// failed when an error comes back; errors that a retry cannot fix are
// returned as non-retryable so the workflow parks immediately.
func (a *Emission) EmitCertificate(ctx context.Context, certificateID int64) error {
	err := a.emitter.Emit(ctx, certificateID)
	if err == nil {
		return nil
	}
	if kind, ok := issuer.KindOf(err); ok && kind != issuer.KindIntegration {
		return temporal.NewNonRetryableApplicationError(err.Error(), string(kind), err)
	}
	return fmt.Errorf("emit certificate %d: %w", certificateID, err)
}

// ListStaleCertificates returns up to limit records left pending or
// in_progress past the attempt lease.
func (a *Emission) ListStaleCertificates(ctx context.Context, limit int) ([]int64, error) {
	return a.stale.ListStale(ctx, a.lease, limit)
}
