package model

// CertificateStatus is the lifecycle state of a certificate record.
type CertificateStatus string

// Certificate status constants.
const (
	StatusPending    CertificateStatus = "pending"
	StatusInProgress CertificateStatus = "in_progress"
	StatusIssued     CertificateStatus = "issued"
	StatusFailed     CertificateStatus = "failed"
	StatusCancelled  CertificateStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s CertificateStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusIssued, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether an operator may still cancel a record in this status.
func (s CertificateStatus) Cancellable() bool {
	return s == StatusPending || s == StatusInProgress
}

// Emittable reports whether an emission attempt may start from this status.
// In-progress records are only re-claimed once their attempt lease expires.
func (s CertificateStatus) Emittable() bool {
	switch s {
	case StatusPending, StatusFailed, StatusIssued, StatusInProgress:
		return true
	}
	return false
}
