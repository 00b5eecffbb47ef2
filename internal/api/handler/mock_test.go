package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/backoffice/internal/model"
	"github.com/edvin/backoffice/internal/runner"
)

type mockCertStore struct {
	mock.Mock
}

func (m *mockCertStore) Create(ctx context.Context, rec *model.CertificateRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockCertStore) GetByID(ctx context.Context, id int64) (*model.CertificateRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CertificateRecord), args.Error(1)
}

func (m *mockCertStore) List(ctx context.Context, f model.CertificateFilter) ([]model.CertificateRecord, bool, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]model.CertificateRecord), args.Bool(1), args.Error(2)
}

type mockCustomers struct {
	mock.Mock
}

func (m *mockCustomers) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

type mockCanceller struct {
	mock.Mock
}

func (m *mockCanceller) Cancel(ctx context.Context, id int64) (*model.CertificateRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CertificateRecord), args.Error(1)
}

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) Current(ctx context.Context, id int64) (string, []byte, error) {
	args := m.Called(ctx, id)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).([]byte), args.Error(2)
}

func (m *mockDocuments) History(ctx context.Context, id int64) ([]model.CertificateDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CertificateDocument), args.Error(1)
}

type mockRunner struct {
	mock.Mock
	mode runner.Mode
}

func (m *mockRunner) Submit(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRunner) Mode() runner.Mode {
	return m.mode
}
