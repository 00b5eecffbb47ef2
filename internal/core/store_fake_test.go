package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edvin/backoffice/internal/model"
)

// memStore is an in-memory CertificateStore with the same conditional
// update semantics as the Postgres queries.
type memStore struct {
	mu      sync.Mutex
	records map[int64]*model.CertificateRecord
	docs    map[int64][]model.CertificateDocument
	now     func() time.Time

	beginErr error
	issueErr error
}

func newMemStore(recs ...model.CertificateRecord) *memStore {
	s := &memStore{
		records: make(map[int64]*model.CertificateRecord),
		docs:    make(map[int64][]model.CertificateDocument),
		now:     time.Now,
	}
	for i := range recs {
		r := recs[i]
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = s.now()
		}
		s.records[r.ID] = &r
	}
	return s
}

func (s *memStore) get(id int64) model.CertificateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.records[id]
}

func (s *memStore) GetByID(_ context.Context, id int64) (*model.CertificateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get certificate %d: %w", id, ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) BeginAttempt(_ context.Context, id int64, from model.CertificateStatus, attempt int, lease time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.beginErr != nil {
		return false, s.beginErr
	}
	r, ok := s.records[id]
	if !ok || r.Status != from || r.Attempt != attempt {
		return false, nil
	}
	if from == model.StatusInProgress && !r.UpdatedAt.Before(s.now().Add(-lease)) {
		return false, nil
	}
	r.Status = model.StatusInProgress
	r.Notes = nil
	r.Attempt++
	r.UpdatedAt = s.now()
	return true, nil
}

func (s *memStore) MarkIssued(_ context.Context, id int64, attempt int, doc IssuedDocument) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.issueErr != nil {
		return false, s.issueErr
	}
	r, ok := s.records[id]
	if !ok || r.Attempt != attempt {
		return false, nil
	}
	key := doc.StorageKey
	issued, valid := doc.IssuedAt, doc.ValidUntil
	r.Status = model.StatusIssued
	r.StorageKey = &key
	r.IssuedAt = &issued
	r.ValidUntil = &valid
	r.Notes = nil
	r.UpdatedAt = s.now()

	for i := range s.docs[id] {
		if s.docs[id][i].SupersededAt == nil {
			s.docs[id][i].SupersededAt = &issued
		}
	}
	s.docs[id] = append(s.docs[id], model.CertificateDocument{
		ID:            int64(len(s.docs[id]) + 1),
		CertificateID: id,
		StorageKey:    key,
		SizeBytes:     doc.SizeBytes,
		CreatedAt:     issued,
	})
	return true, nil
}

func (s *memStore) MarkFailed(_ context.Context, id int64, attempt int, notes string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.Attempt != attempt {
		return false, nil
	}
	r.Status = model.StatusFailed
	r.Notes = &notes
	r.StorageKey = nil
	r.IssuedAt = nil
	r.ValidUntil = nil
	r.UpdatedAt = s.now()
	return true, nil
}

func (s *memStore) Cancel(_ context.Context, id int64) (*model.CertificateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !r.Status.Cancellable() {
		return nil, ErrNotCancellable
	}
	r.Status = model.StatusCancelled
	r.UpdatedAt = s.now()
	cp := *r
	return &cp, nil
}

type memCustomers map[int64]model.Customer

func (m memCustomers) GetByID(_ context.Context, id int64) (*model.Customer, error) {
	c, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("get customer %d: %w", id, ErrNotFound)
	}
	return &c, nil
}
