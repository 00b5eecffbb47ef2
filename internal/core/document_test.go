package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backoffice/internal/model"
	"github.com/edvin/backoffice/internal/storage"
)

func TestDocumentService_Current(t *testing.T) {
	db := &mockDB{}
	gw := storage.NewMemory()
	svc := NewDocumentService(NewCertificateService(db), gw)
	ctx := context.Background()

	key := "certificates/customer_7/certificate_1.pdf"
	require.NoError(t, gw.Put(ctx, key, []byte("%PDF-1.4")))
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{int64(1)}).
		Return(certRow(model.CertificateRecord{ID: 1, CustomerID: 7, Status: model.StatusIssued, StorageKey: &key}))

	gotKey, data, err := svc.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestDocumentService_Current_NotIssued(t *testing.T) {
	db := &mockDB{}
	svc := NewDocumentService(NewCertificateService(db), storage.NewMemory())
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(certRow(model.CertificateRecord{ID: 1, Status: model.StatusFailed}))

	_, _, err := svc.Current(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentService_Current_ObjectMissing(t *testing.T) {
	db := &mockDB{}
	svc := NewDocumentService(NewCertificateService(db), storage.NewMemory())
	ctx := context.Background()

	key := "gone.pdf"
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(certRow(model.CertificateRecord{ID: 1, Status: model.StatusIssued, StorageKey: &key}))

	_, _, err := svc.Current(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
