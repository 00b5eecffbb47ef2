package request

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/edvin/backoffice/internal/model"
)

// ParseCertificateFilter extracts pagination and the customer_id and status
// filters from the query string.
func ParseCertificateFilter(r *http.Request) (model.CertificateFilter, error) {
	pg := ParsePagination(r)
	f := model.CertificateFilter{Limit: pg.Limit, Cursor: pg.Cursor}

	if v := r.URL.Query().Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, fmt.Errorf("invalid customer_id %q", v)
		}
		f.CustomerID = &id
	}

	if v := r.URL.Query().Get("status"); v != "" {
		status := model.CertificateStatus(v)
		if !status.Valid() {
			return f, fmt.Errorf("invalid status %q", v)
		}
		f.Status = &status
	}

	return f, nil
}
