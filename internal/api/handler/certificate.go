package handler

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	mw "github.com/edvin/backoffice/internal/api/middleware"
	"github.com/edvin/backoffice/internal/api/request"
	"github.com/edvin/backoffice/internal/api/response"
	"github.com/edvin/backoffice/internal/core"
	"github.com/edvin/backoffice/internal/issuer"
	"github.com/edvin/backoffice/internal/model"
	"github.com/edvin/backoffice/internal/runner"
	"github.com/edvin/backoffice/internal/storage"
)

// CertificateStore is satisfied by *core.CertificateService.
type CertificateStore interface {
	Create(ctx context.Context, rec *model.CertificateRecord) error
	GetByID(ctx context.Context, id int64) (*model.CertificateRecord, error)
	List(ctx context.Context, f model.CertificateFilter) ([]model.CertificateRecord, bool, error)
}

// CustomerReader is satisfied by *core.CustomerService.
type CustomerReader interface {
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
}

// Canceller is satisfied by *core.EmissionService.
type Canceller interface {
	Cancel(ctx context.Context, id int64) (*model.CertificateRecord, error)
}

// DocumentReader is satisfied by *core.DocumentService.
type DocumentReader interface {
	Current(ctx context.Context, id int64) (string, []byte, error)
	History(ctx context.Context, id int64) ([]model.CertificateDocument, error)
}

// Submitter is satisfied by *runner.Runner.
type Submitter interface {
	Submit(ctx context.Context, id int64) error
	Mode() runner.Mode
}

type Certificate struct {
	certs     CertificateStore
	customers CustomerReader
	canceller Canceller
	documents DocumentReader
	runner    Submitter
}

func NewCertificate(certs CertificateStore, customers CustomerReader, canceller Canceller, documents DocumentReader, runner Submitter) *Certificate {
	return &Certificate{
		certs:     certs,
		customers: customers,
		canceller: canceller,
		documents: documents,
		runner:    runner,
	}
}

// EmissionFailure is returned when a synchronous emission ends in failed.
type EmissionFailure struct {
	Error       string                   `json:"error"`
	Certificate *model.CertificateRecord `json:"certificate,omitempty"`
}

// Create godoc
//
//	@Summary		Request a certificate for a customer
//	@Description	Creates a pending record and submits it for emission. Returns 202 when queued, or the final record when the broker is unavailable and emission ran inline.
//	@Tags			Certificates
//	@Security		ApiKeyAuth
//	@Param			customerID path int true "Customer ID"
//	@Param			body body request.CreateCertificate true "Certificate request"
//	@Success		200 {object} model.CertificateRecord
//	@Success		202 {object} model.CertificateRecord
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		422 {object} EmissionFailure
//	@Failure		502 {object} EmissionFailure
//	@Failure		503 {object} response.ErrorResponse
//	@Router			/customers/{customerID}/certificates [post]
func (h *Certificate) Create(w http.ResponseWriter, r *http.Request) {
	customerID, err := request.RequireID(chi.URLParam(r, "customerID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateCertificate
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.customers.GetByID(r.Context(), customerID); err != nil {
		writeLookupError(w, err)
		return
	}

	rec := &model.CertificateRecord{
		CustomerID:      customerID,
		Type:            req.Type,
		SourcePortalURL: req.SourcePortalURL,
	}
	if operator := mw.GetOperator(r.Context()); operator != "" {
		rec.RequestedBy = &operator
	}

	if err := h.certs.Create(r.Context(), rec); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.submit(w, r, rec)
}

// List godoc
//
//	@Summary		List certificates with their current status
//	@Tags			Certificates
//	@Security		ApiKeyAuth
//	@Param			customer_id query int false "Filter by customer"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query int false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.CertificateRecord}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/certificates [get]
func (h *Certificate) List(w http.ResponseWriter, r *http.Request) {
	filter, err := request.ParseCertificateFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, hasMore, err := h.certs.List(r.Context(), filter)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if recs == nil {
		recs = []model.CertificateRecord{}
	}
	var nextCursor string
	if hasMore && len(recs) > 0 {
		nextCursor = strconv.FormatInt(recs[len(recs)-1].ID, 10)
	}
	response.WritePaginated(w, http.StatusOK, recs, nextCursor, hasMore)
}

// Get godoc
//
//	@Summary		Get a certificate
//	@Tags			Certificates
//	@Security		ApiKeyAuth
//	@Param			id path int true "Certificate ID"
//	@Success		200 {object} model.CertificateRecord
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/certificates/{id} [get]
func (h *Certificate) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.certs.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, rec)
}

// Emit godoc
//
//	@Summary		Retry or re-issue a certificate
//	@Description	Submits the record for another emission attempt. Failed records are retried; issued records get a new document.
//	@Tags			Certificates
//	@Security		ApiKeyAuth
//	@Param			id path int true "Certificate ID"
//	@Success		200 {object} model.CertificateRecord
//	@Success		202 {object} model.CertificateRecord
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		503 {object} response.ErrorResponse
//	@Router			/certificates/{id}/emit [post]
func (h *Certificate) Emit(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.certs.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	if !rec.Status.Emittable() {
		response.WriteError(w, http.StatusConflict, "certificate is "+string(rec.Status))
		return
	}

	h.submit(w, r, rec)
}

// Cancel godoc
//
//	@Summary		Cancel a pending or in-progress certificate
//	@Tags			Certificates
//	@Security		ApiKeyAuth
//	@Param			id path int true "Certificate ID"
//	@Success		200 {object} model.CertificateRecord
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Router			/certificates/{id}/cancel [post]
func (h *Certificate) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.canceller.Cancel(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrNotCancellable):
		response.WriteError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeLookupError(w, err)
	default:
		response.WriteJSON(w, http.StatusOK, rec)
	}
}

// Document godoc
//
//	@Summary		Download the current certificate document
//	@Tags			Certificates
//	@Security		ApiKeyAuth
//	@Produce		application/pdf
//	@Param			id path int true "Certificate ID"
//	@Success		200 {file} binary
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		503 {object} response.ErrorResponse
//	@Router			/certificates/{id}/document [get]
func (h *Certificate) Document(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, data, err := h.documents.Current(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.WritePDF(w, path.Base(key), data)
}

// Documents godoc
//
//	@Summary		List every stored document of a certificate
//	@Tags			Certificates
//	@Security		ApiKeyAuth
//	@Param			id path int true "Certificate ID"
//	@Success		200 {array} model.CertificateDocument
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/certificates/{id}/documents [get]
func (h *Certificate) Documents(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := h.documents.History(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	if docs == nil {
		docs = []model.CertificateDocument{}
	}
	response.WriteJSON(w, http.StatusOK, docs)
}

// submit hands rec to the runner. Async mode answers 202 with the record as
// submitted; degraded mode answers with the record as the attempt left it.
func (h *Certificate) submit(w http.ResponseWriter, r *http.Request, rec *model.CertificateRecord) {
	err := h.runner.Submit(r.Context(), rec.ID)

	if h.runner.Mode() == runner.ModeAsync {
		if err != nil {
			response.WriteError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		response.WriteJSON(w, http.StatusAccepted, rec)
		return
	}

	final, lookupErr := h.certs.GetByID(r.Context(), rec.ID)
	if lookupErr != nil {
		zerolog.Ctx(r.Context()).Error().Err(lookupErr).Int64("certificate_id", rec.ID).Msg("reload certificate after emission")
		final = nil
	}
	if err != nil {
		response.WriteJSON(w, emissionStatus(err), EmissionFailure{Error: err.Error(), Certificate: final})
		return
	}
	if final == nil {
		response.WriteError(w, http.StatusInternalServerError, lookupErr.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, final)
}

// emissionStatus maps a failed synchronous emission to an HTTP status.
func emissionStatus(err error) int {
	switch kind, _ := issuer.KindOf(err); {
	case kind == issuer.KindPrecondition:
		return http.StatusUnprocessableEntity
	case kind == issuer.KindUnsupported:
		return http.StatusNotImplemented
	case kind == issuer.KindIntegration:
		return http.StatusBadGateway
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		response.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
