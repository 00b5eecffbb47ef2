package model

import "time"

// CertificateType identifies which issuing authority produces a certificate.
// It is assigned at creation and never changes.
type CertificateType string

const (
	CertTypeFederalPolice CertificateType = "federal_police"
	CertTypeStatePolice   CertificateType = "state_police"
	CertTypeFederalCourt  CertificateType = "federal_court"
	CertTypeStateCourt    CertificateType = "state_court"
)

// CertificateTypes lists every known certificate type.
var CertificateTypes = []CertificateType{
	CertTypeFederalPolice,
	CertTypeStatePolice,
	CertTypeFederalCourt,
	CertTypeStateCourt,
}

// Valid reports whether t is one of the known certificate types.
func (t CertificateType) Valid() bool {
	for _, known := range CertificateTypes {
		if t == known {
			return true
		}
	}
	return false
}

// CertificateRecord is a request for one background-check certificate on
// behalf of a customer, together with the outcome of its latest attempt.
type CertificateRecord struct {
	ID              int64             `json:"id" db:"id"`
	CustomerID      int64             `json:"customer_id" db:"customer_id"`
	Type            CertificateType   `json:"type" db:"type"`
	Status          CertificateStatus `json:"status" db:"status"`
	RequestedAt     time.Time         `json:"requested_at" db:"requested_at"`
	IssuedAt        *time.Time        `json:"issued_at,omitempty" db:"issued_at"`
	ValidUntil      *time.Time        `json:"valid_until,omitempty" db:"valid_until"`
	SourcePortalURL *string           `json:"source_portal_url,omitempty" db:"source_portal_url"`
	StorageKey      *string           `json:"storage_key,omitempty" db:"storage_key"`
	Notes           *string           `json:"notes,omitempty" db:"notes"`
	Attempt         int               `json:"attempt" db:"attempt"`
	RequestedBy     *string           `json:"requested_by,omitempty" db:"requested_by"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// CertificateDocument is one stored object produced by a successful attempt.
// Older documents stay referencable after a re-issue; they are only marked
// as superseded.
type CertificateDocument struct {
	ID            int64      `json:"id" db:"id"`
	CertificateID int64      `json:"certificate_id" db:"certificate_id"`
	StorageKey    string     `json:"storage_key" db:"storage_key"`
	SizeBytes     int64      `json:"size_bytes" db:"size_bytes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	SupersededAt  *time.Time `json:"superseded_at,omitempty" db:"superseded_at"`
}

// CertificateFilter narrows a certificate listing.
type CertificateFilter struct {
	CustomerID *int64
	Status     *CertificateStatus
	Limit      int
	Cursor     int64
}
