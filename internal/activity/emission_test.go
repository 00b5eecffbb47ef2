package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/backoffice/internal/issuer"
	"github.com/edvin/backoffice/internal/model"
	"github.com/edvin/backoffice/internal/storage"
)

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) Emit(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockStaleLister struct {
	mock.Mock
}

func (m *mockStaleLister) ListStale(ctx context.Context, lease time.Duration, limit int) ([]int64, error) {
	args := m.Called(ctx, lease, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func TestEmitCertificate_Success(t *testing.T) {
	em := &mockEmitter{}
	em.On("Emit", mock.Anything, int64(3)).Return(nil)

	a := NewEmission(em, nil, time.Minute)
	require.NoError(t, a.EmitCertificate(context.Background(), 3))
	em.AssertExpectations(t)
}

func TestEmitCertificate_PreconditionIsNonRetryable(t *testing.T) {
	em := &mockEmitter{}
	em.On("Emit", mock.Anything, int64(3)).
		Return(issuer.Precondition(model.CertTypeFederalPolice, "customer has no cpf"))

	a := NewEmission(em, nil, time.Minute)
	err := a.EmitCertificate(context.Background(), 3)
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, string(issuer.KindPrecondition), appErr.Type())
	assert.Contains(t, err.Error(), "customer has no cpf")
}

func TestEmitCertificate_UnsupportedIsNonRetryable(t *testing.T) {
	em := &mockEmitter{}
	em.On("Emit", mock.Anything, int64(5)).Return(issuer.Unsupported(model.CertTypeStateCourt))

	a := NewEmission(em, nil, time.Minute)
	err := a.EmitCertificate(context.Background(), 5)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, string(issuer.KindUnsupported), appErr.Type())
}

func TestEmitCertificate_IntegrationIsRetryable(t *testing.T) {
	em := &mockEmitter{}
	em.On("Emit", mock.Anything, int64(7)).
		Return(issuer.Integration(model.CertTypeFederalCourt, "agent unreachable", errors.New("dial tcp: refused")))

	a := NewEmission(em, nil, time.Minute)
	err := a.EmitCertificate(context.Background(), 7)
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
	assert.ErrorIs(t, err, issuer.ErrIntegrationFailure)
}

func TestEmitCertificate_StorageIsRetryable(t *testing.T) {
	em := &mockEmitter{}
	em.On("Emit", mock.Anything, int64(8)).Return(storage.ErrUnavailable)

	a := NewEmission(em, nil, time.Minute)
	err := a.EmitCertificate(context.Background(), 8)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Contains(t, err.Error(), "emit certificate 8")
}

func TestListStaleCertificates(t *testing.T) {
	st := &mockStaleLister{}
	st.On("ListStale", mock.Anything, 10*time.Minute, 25).Return([]int64{1, 2}, nil)

	a := NewEmission(nil, st, 10*time.Minute)
	ids, err := a.ListStaleCertificates(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	st.AssertExpectations(t)
}

func TestListStaleCertificates_Error(t *testing.T) {
	st := &mockStaleLister{}
	st.On("ListStale", mock.Anything, time.Minute, 10).Return(nil, errors.New("db down"))

	a := NewEmission(nil, st, time.Minute)
	_, err := a.ListStaleCertificates(context.Background(), 10)
	assert.EqualError(t, err, "db down")
}
