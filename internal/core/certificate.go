package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/backoffice/internal/model"
)

const certificateColumns = `id, customer_id, type, status, requested_at, issued_at, valid_until,
	source_portal_url, storage_key, notes, attempt, requested_by, created_at, updated_at`

// IssuedDocument describes the object stored by a successful attempt.
type IssuedDocument struct {
	StorageKey string
	SizeBytes  int64
	IssuedAt   time.Time
	ValidUntil time.Time
}

// CertificateService persists certificate records. Every state transition is
// a single conditional UPDATE so concurrent attempts on the same record
// serialize in the database.
type CertificateService struct {
	db DB
}

func NewCertificateService(db DB) *CertificateService {
	return &CertificateService{db: db}
}

// Create inserts a pending record and fills in the generated fields.
func (s *CertificateService) Create(ctx context.Context, rec *model.CertificateRecord) error {
	if !rec.Type.Valid() {
		return fmt.Errorf("create certificate: unknown type %q", rec.Type)
	}
	rec.Status = model.StatusPending
	rec.Attempt = 0

	err := s.db.QueryRow(ctx,
		`INSERT INTO certificate_records (customer_id, type, status, source_portal_url, requested_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, requested_at, created_at, updated_at`,
		rec.CustomerID, rec.Type, rec.Status, rec.SourcePortalURL, rec.RequestedBy,
	).Scan(&rec.ID, &rec.RequestedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *CertificateService) GetByID(ctx context.Context, id int64) (*model.CertificateRecord, error) {
	rec, err := scanCertificate(s.db.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificate_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get certificate %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate %d: %w", id, err)
	}
	return rec, nil
}

// List returns records ordered by id, newest first. The cursor is the last
// id of the previous page.
func (s *CertificateService) List(ctx context.Context, f model.CertificateFilter) ([]model.CertificateRecord, bool, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificate_records WHERE true`
	var args []any
	argIdx := 1

	if f.CustomerID != nil {
		query += fmt.Sprintf(` AND customer_id = $%d`, argIdx)
		args = append(args, *f.CustomerID)
		argIdx++
	}
	if f.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, *f.Status)
		argIdx++
	}
	if f.Cursor > 0 {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, f.Cursor)
		argIdx++
	}

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, f.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var recs []model.CertificateRecord
	for rows.Next() {
		rec, err := scanCertificate(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan certificate: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate certificates: %w", err)
	}

	hasMore := len(recs) > f.Limit
	if hasMore {
		recs = recs[:f.Limit]
	}
	return recs, hasMore, nil
}

// BeginAttempt moves the record to in_progress if it is still in the status
// and attempt the caller observed. It reports false when another attempt got
// there first. An in_progress record is only reclaimed once its last update
// is older than lease.
func (s *CertificateService) BeginAttempt(ctx context.Context, id int64, from model.CertificateStatus, attempt int, lease time.Duration) (bool, error) {
	query := `UPDATE certificate_records
		SET status = $4, notes = NULL, attempt = attempt + 1, updated_at = now()
		WHERE id = $1 AND status = $2 AND attempt = $3`
	args := []any{id, from, attempt, model.StatusInProgress}
	if from == model.StatusInProgress {
		query += ` AND updated_at < now() - make_interval(secs => $5)`
		args = append(args, lease.Seconds())
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("begin attempt for certificate %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkIssued records a successful attempt and appends the document to the
// record's history, superseding the previous one. It reports false when a
// newer attempt has taken over the record.
func (s *CertificateService) MarkIssued(ctx context.Context, id int64, attempt int, doc IssuedDocument) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`WITH issued AS (
			UPDATE certificate_records
			SET status = $3, storage_key = $4, issued_at = $5, valid_until = $6, notes = NULL, updated_at = now()
			WHERE id = $1 AND attempt = $2
			RETURNING id
		), superseded AS (
			UPDATE certificate_documents SET superseded_at = $5
			WHERE certificate_id = $1 AND superseded_at IS NULL AND EXISTS (SELECT 1 FROM issued)
		)
		INSERT INTO certificate_documents (certificate_id, storage_key, size_bytes, created_at)
		SELECT id, $4::text, $7::bigint, $5::timestamptz FROM issued`,
		id, attempt, model.StatusIssued, doc.StorageKey, doc.IssuedAt, doc.ValidUntil, doc.SizeBytes,
	)
	if err != nil {
		return false, fmt.Errorf("mark certificate %d issued: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed records a failed attempt. Storage fields are cleared so a failed
// record never points at a document.
func (s *CertificateService) MarkFailed(ctx context.Context, id int64, attempt int, notes string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE certificate_records
		 SET status = $3, notes = $4, storage_key = NULL, issued_at = NULL, valid_until = NULL, updated_at = now()
		 WHERE id = $1 AND attempt = $2`,
		id, attempt, model.StatusFailed, notes,
	)
	if err != nil {
		return false, fmt.Errorf("mark certificate %d failed: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel moves a pending or in-progress record to cancelled.
func (s *CertificateService) Cancel(ctx context.Context, id int64) (*model.CertificateRecord, error) {
	rec, err := scanCertificate(s.db.QueryRow(ctx,
		`UPDATE certificate_records SET status = $2, updated_at = now()
		 WHERE id = $1 AND status IN ($3, $4)
		 RETURNING `+certificateColumns,
		id, model.StatusCancelled, model.StatusPending, model.StatusInProgress,
	))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cancel certificate %d: %w", id, err)
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("cancel certificate %d (status %s): %w", id, current.Status, ErrNotCancellable)
}

// ListStale returns ids of records left pending or in_progress without an
// update for longer than lease, oldest first.
func (s *CertificateService) ListStale(ctx context.Context, lease time.Duration, limit int) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM certificate_records
		 WHERE status IN ($1, $2) AND updated_at < now() - make_interval(secs => $3)
		 ORDER BY updated_at ASC LIMIT $4`,
		model.StatusPending, model.StatusInProgress, lease.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale certificates: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale certificate: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale certificates: %w", err)
	}
	return ids, nil
}

// ListDocuments returns every stored document of a record, newest first.
func (s *CertificateService) ListDocuments(ctx context.Context, id int64) ([]model.CertificateDocument, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, certificate_id, storage_key, size_bytes, created_at, superseded_at
		 FROM certificate_documents WHERE certificate_id = $1 ORDER BY id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list documents for certificate %d: %w", id, err)
	}
	defer rows.Close()

	var docs []model.CertificateDocument
	for rows.Next() {
		var d model.CertificateDocument
		if err := rows.Scan(&d.ID, &d.CertificateID, &d.StorageKey, &d.SizeBytes, &d.CreatedAt, &d.SupersededAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func scanCertificate(row pgx.Row) (*model.CertificateRecord, error) {
	var c model.CertificateRecord
	err := row.Scan(&c.ID, &c.CustomerID, &c.Type, &c.Status, &c.RequestedAt, &c.IssuedAt, &c.ValidUntil,
		&c.SourcePortalURL, &c.StorageKey, &c.Notes, &c.Attempt, &c.RequestedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
