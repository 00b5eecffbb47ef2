package request

import (
	"net/http"
	"strconv"
)

// Pagination holds parsed pagination parameters. Cursor is the last ID of
// the previous page; zero starts from the newest record.
type Pagination struct {
	Limit  int
	Cursor int64
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParsePagination extracts limit and cursor from query parameters.
func ParsePagination(r *http.Request) Pagination {
	p := Pagination{Limit: DefaultLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			p.Limit = limit
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if cursorStr := r.URL.Query().Get("cursor"); cursorStr != "" {
		if cursor, err := strconv.ParseInt(cursorStr, 10, 64); err == nil && cursor > 0 {
			p.Cursor = cursor
		}
	}

	return p
}
