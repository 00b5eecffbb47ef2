package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "certificates/customer_7/certificate_1.pdf", ObjectKey(7, 1))
}

func TestReissueKey_UniqueAndScoped(t *testing.T) {
	at := time.Date(2026, 10, 15, 12, 30, 0, 0, time.UTC)
	a := ReissueKey(7, 1, at)
	b := ReissueKey(7, 1, at)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, ObjectKey(7, 1), a)
	assert.True(t, strings.HasPrefix(a, "certificates/customer_7/certificate_1_20261015T123000Z_"), a)
	assert.True(t, strings.HasSuffix(a, ".pdf"))
}

func TestError_MatchesUnavailable(t *testing.T) {
	err := &Error{Op: "put", Key: "k", Err: errors.New("connection reset")}
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "Storage unavailable: put k: connection reset", err.Error())
}

func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "a", []byte("pdf")))
	data, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), data)
	assert.Equal(t, 1, m.Puts())

	require.NoError(t, m.Delete(ctx, "a"))
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_PutErr(t *testing.T) {
	m := NewMemory()
	m.PutErr = errors.New("disk full")

	err := m.Put(context.Background(), "a", []byte("x"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, m.Puts())
	assert.Empty(t, m.Keys())
}

// fakeS3 is a minimal path-style S3 endpoint backed by a map.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	deny    bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deny {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
		return
	}

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(data)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Gateway(t *testing.T, fake *fakeS3) *S3Gateway {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return NewS3Gateway(S3Config{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		Bucket:    "certificates",
		AccessKey: "test",
		SecretKey: "test",
	}, zerolog.Nop())
}

func TestS3Gateway_PutGetDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	g := newTestS3Gateway(t, fake)
	ctx := context.Background()
	key := ObjectKey(7, 1)

	require.NoError(t, g.Put(ctx, key, []byte("%PDF-1.4 test")))
	assert.Contains(t, fake.objects, "/certificates/"+key)

	data, err := g.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 test"), data)

	require.NoError(t, g.Delete(ctx, key))
	assert.NotContains(t, fake.objects, "/certificates/"+key)
}

func TestS3Gateway_GetMissing(t *testing.T) {
	g := newTestS3Gateway(t, &fakeS3{objects: map[string][]byte{}})

	_, err := g.Get(context.Background(), "certificates/customer_1/certificate_404.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestS3Gateway_PutDenied(t *testing.T) {
	g := newTestS3Gateway(t, &fakeS3{objects: map[string][]byte{}, deny: true})

	err := g.Put(context.Background(), ObjectKey(7, 1), []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, strings.HasPrefix(err.Error(), "Storage unavailable: put "))
}
