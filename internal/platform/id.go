package platform

import (
	"strings"

	"github.com/google/uuid"
)

func NewID() string {
	return uuid.New().String()
}

// NewSuffix returns n random lowercase hex characters, n <= 32.
func NewSuffix(n int) string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:n]
}
