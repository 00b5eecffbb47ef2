package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backoffice/internal/issuer"
	"github.com/edvin/backoffice/internal/metrics"
	"github.com/edvin/backoffice/internal/model"
	"github.com/edvin/backoffice/internal/storage"
)

// CertificateStore is the persistence the emission pipeline needs.
// *CertificateService implements it against Postgres.
type CertificateStore interface {
	GetByID(ctx context.Context, id int64) (*model.CertificateRecord, error)
	BeginAttempt(ctx context.Context, id int64, from model.CertificateStatus, attempt int, lease time.Duration) (bool, error)
	MarkIssued(ctx context.Context, id int64, attempt int, doc IssuedDocument) (bool, error)
	MarkFailed(ctx context.Context, id int64, attempt int, notes string) (bool, error)
	Cancel(ctx context.Context, id int64) (*model.CertificateRecord, error)
}

// CustomerReader loads the customer a certificate is issued for.
type CustomerReader interface {
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
}

type EmissionOptions struct {
	ValidityDays int
	NotesMaxLen  int
	AttemptLease time.Duration
}

// EmissionService drives a certificate record through one emission attempt:
// claim, render, store, record the outcome.
type EmissionService struct {
	records   CertificateStore
	customers CustomerReader
	renderer  issuer.Renderer
	gateway   storage.Gateway
	opts      EmissionOptions
	logger    zerolog.Logger
	now       func() time.Time
}

func NewEmissionService(records CertificateStore, customers CustomerReader, renderer issuer.Renderer,
	gateway storage.Gateway, opts EmissionOptions, logger zerolog.Logger) *EmissionService {
	if opts.ValidityDays <= 0 {
		opts.ValidityDays = 30
	}
	if opts.NotesMaxLen <= 0 {
		opts.NotesMaxLen = 500
	}
	return &EmissionService{
		records:   records,
		customers: customers,
		renderer:  renderer,
		gateway:   gateway,
		opts:      opts,
		logger:    logger.With().Str("component", "emission").Logger(),
		now:       time.Now,
	}
}

// Emit runs one attempt for the record. Missing and cancelled records are
// ignored. A record already claimed by a concurrent attempt is left alone.
// Every other failure marks the record failed and is returned.
func (s *EmissionService) Emit(ctx context.Context, id int64) error {
	log := s.logger.With().Int64("certificate_id", id).Logger()

	rec, err := s.records.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		log.Warn().Msg("certificate not found, nothing to emit")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load certificate %d: %w", id, err)
	}

	log = log.With().Str("type", string(rec.Type)).Logger()
	if rec.Status == model.StatusCancelled {
		log.Info().Msg("certificate cancelled, skipping emission")
		metrics.EmissionsTotal.WithLabelValues(string(rec.Type), metrics.OutcomeCancelled).Inc()
		return nil
	}

	claimed, err := s.records.BeginAttempt(ctx, rec.ID, rec.Status, rec.Attempt, s.opts.AttemptLease)
	if err != nil {
		return err
	}
	if !claimed {
		log.Info().Str("status", string(rec.Status)).Msg("certificate claimed by another attempt, skipping")
		metrics.EmissionsTotal.WithLabelValues(string(rec.Type), metrics.OutcomeSkipped).Inc()
		return nil
	}

	previous := rec.Status
	rec.Status = model.StatusInProgress
	rec.Notes = nil
	rec.Attempt++
	log = log.With().Int("attempt", rec.Attempt).Logger()
	log.Info().Str("from", string(previous)).Msg("emission started")

	start := s.now()
	doc, err := s.produce(ctx, rec)
	metrics.EmissionDuration.WithLabelValues(string(rec.Type)).Observe(s.now().Sub(start).Seconds())
	if err != nil {
		return s.fail(ctx, rec, err, log)
	}

	ok, err := s.records.MarkIssued(ctx, rec.ID, rec.Attempt, *doc)
	if err != nil {
		return s.fail(ctx, rec, err, log)
	}
	if !ok {
		log.Warn().Str("storage_key", doc.StorageKey).Msg("attempt superseded before it finished, result discarded")
		metrics.EmissionsTotal.WithLabelValues(string(rec.Type), metrics.OutcomeSuperseded).Inc()
		return nil
	}

	metrics.EmissionsTotal.WithLabelValues(string(rec.Type), metrics.OutcomeIssued).Inc()
	log.Info().
		Str("storage_key", doc.StorageKey).
		Time("valid_until", doc.ValidUntil).
		Msg("certificate issued")
	return nil
}

// produce renders and stores the document for a claimed record.
func (s *EmissionService) produce(ctx context.Context, rec *model.CertificateRecord) (*IssuedDocument, error) {
	customer, err := s.customers.GetByID(ctx, rec.CustomerID)
	if errors.Is(err, ErrNotFound) {
		return nil, issuer.Precondition(rec.Type, "customer %d does not exist", rec.CustomerID)
	}
	if err != nil {
		return nil, err
	}

	data, err := s.renderer.Render(ctx, issuer.Request{Record: *rec, Customer: *customer})
	if err != nil {
		return nil, err
	}

	key := s.storageKey(rec)
	if err := s.gateway.Put(ctx, key, data); err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	return &IssuedDocument{
		StorageKey: key,
		SizeBytes:  int64(len(data)),
		IssuedAt:   issuedAt,
		ValidUntil: issuedAt.AddDate(0, 0, s.opts.ValidityDays),
	}, nil
}

// storageKey uses the canonical key only for the first attempt, which no
// other claim can share. Every later attempt gets a unique key, so a late
// write from a superseded attempt never lands on a key a record points to.
func (s *EmissionService) storageKey(rec *model.CertificateRecord) string {
	if rec.Attempt == 1 {
		return storage.ObjectKey(rec.CustomerID, rec.ID)
	}
	return storage.ReissueKey(rec.CustomerID, rec.ID, s.now())
}

// fail records the failure on the record and returns cause. The update runs
// even if ctx was cancelled mid-attempt.
func (s *EmissionService) fail(ctx context.Context, rec *model.CertificateRecord, cause error, log zerolog.Logger) error {
	notes := truncate(cause.Error(), s.opts.NotesMaxLen)

	kind := "internal"
	if k, ok := issuer.KindOf(cause); ok {
		kind = string(k)
	} else if errors.Is(cause, storage.ErrUnavailable) {
		kind = "storage_unavailable"
	}
	metrics.EmissionsTotal.WithLabelValues(string(rec.Type), metrics.OutcomeFailed).Inc()
	metrics.FailuresTotal.WithLabelValues(string(rec.Type), kind).Inc()

	ok, err := s.records.MarkFailed(context.WithoutCancel(ctx), rec.ID, rec.Attempt, notes)
	switch {
	case err != nil:
		log.Error().Err(err).AnErr("cause", cause).Msg("failed to record emission failure")
	case !ok:
		log.Warn().Err(cause).Msg("attempt superseded before its failure was recorded")
	default:
		log.Warn().Err(cause).Str("kind", kind).Msg("emission failed")
	}
	return cause
}

// Cancel is the operator action for pending and in-progress records.
// An attempt already past its claim may still finish and overwrite it.
func (s *EmissionService) Cancel(ctx context.Context, id int64) (*model.CertificateRecord, error) {
	rec, err := s.records.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("certificate_id", id).Str("type", string(rec.Type)).Msg("certificate cancelled")
	return rec, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
