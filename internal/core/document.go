package core

import (
	"context"
	"fmt"

	"github.com/edvin/backoffice/internal/model"
	"github.com/edvin/backoffice/internal/storage"
)

// DocumentService serves stored certificate documents.
type DocumentService struct {
	certs   *CertificateService
	gateway storage.Gateway
}

func NewDocumentService(certs *CertificateService, gateway storage.Gateway) *DocumentService {
	return &DocumentService{certs: certs, gateway: gateway}
}

// Current returns the document of an issued record together with its key.
func (s *DocumentService) Current(ctx context.Context, id int64) (string, []byte, error) {
	rec, err := s.certs.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if rec.Status != model.StatusIssued || rec.StorageKey == nil {
		return "", nil, fmt.Errorf("certificate %d has no document (status %s): %w", id, rec.Status, ErrNotFound)
	}

	data, err := s.gateway.Get(ctx, *rec.StorageKey)
	if err != nil {
		return "", nil, fmt.Errorf("fetch document for certificate %d: %w", id, err)
	}
	return *rec.StorageKey, data, nil
}

// History lists every document stored for a record, including superseded ones.
func (s *DocumentService) History(ctx context.Context, id int64) ([]model.CertificateDocument, error) {
	if _, err := s.certs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.certs.ListDocuments(ctx, id)
}
