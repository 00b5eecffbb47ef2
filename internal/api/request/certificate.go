package request

import "github.com/edvin/backoffice/internal/model"

// CreateCertificate holds the request body for requesting a certificate.
type CreateCertificate struct {
	Type            model.CertificateType `json:"type" validate:"required,certificate_type"`
	SourcePortalURL *string               `json:"source_portal_url" validate:"omitempty,url,max=2048"`
}
