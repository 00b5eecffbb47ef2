package core

import (
	"github.com/rs/zerolog"

	"github.com/edvin/backoffice/internal/issuer"
	"github.com/edvin/backoffice/internal/storage"
)

type Services struct {
	Certificate *CertificateService
	Customer    *CustomerService
	Document    *DocumentService
	Emission    *EmissionService
	APIKey      *APIKeyService
}

func NewServices(db DB, renderer issuer.Renderer, gateway storage.Gateway, opts EmissionOptions, logger zerolog.Logger) *Services {
	certs := NewCertificateService(db)
	customers := NewCustomerService(db)
	return &Services{
		Certificate: certs,
		Customer:    customers,
		Document:    NewDocumentService(certs, gateway),
		Emission:    NewEmissionService(certs, customers, renderer, gateway, opts, logger),
		APIKey:      NewAPIKeyService(db),
	}
}
