// Package storage persists issued certificate documents in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edvin/backoffice/internal/platform"
)

// Gateway is the durable object store used for certificate documents.
// Implementations must be safe for concurrent use.
type Gateway interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var (
	// ErrUnavailable marks transport or service failures of the object store.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrNotFound is returned by Get when no object exists under the key.
	ErrNotFound = errors.New("object not found")
)

// Error describes a failed object store operation. It matches ErrUnavailable
// with errors.Is.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Storage unavailable: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrUnavailable }

// ObjectKey is the key of the first document issued for a certificate record.
// Keys are derived only from ids, never from user input.
func ObjectKey(customerID, recordID int64) string {
	return fmt.Sprintf("certificates/customer_%d/certificate_%d.pdf", customerID, recordID)
}

// ReissueKey is the key of a later document for the same record. The
// timestamp and random suffix keep earlier objects from being overwritten.
func ReissueKey(customerID, recordID int64, at time.Time) string {
	return fmt.Sprintf("certificates/customer_%d/certificate_%d_%s_%s.pdf",
		customerID, recordID, at.UTC().Format("20060102T150405Z"), platform.NewSuffix(12))
}
