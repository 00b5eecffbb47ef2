package model

import "time"

// APIKey authenticates a back-office operator against the API. Operator is
// recorded as requested_by on every certificate the key requests.
type APIKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Operator  string     `json:"operator"`
	KeyPrefix string     `json:"key_prefix,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}
