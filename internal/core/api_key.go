package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/backoffice/internal/model"
	"github.com/edvin/backoffice/internal/platform"
)

// ErrInvalidAPIKey is returned by Authenticate for unknown or revoked keys.
var ErrInvalidAPIKey = errors.New("invalid API key")

// APIKeyService manages operator API keys.
type APIKeyService struct {
	db DB
}

func NewAPIKeyService(db DB) *APIKeyService {
	return &APIKeyService{db: db}
}

// Create generates a new key for operator and stores its hash. The raw key
// is returned once and cannot be recovered later.
func (s *APIKeyService) Create(ctx context.Context, name, operator string) (*model.APIKey, string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	rawKey := "bko_" + hex.EncodeToString(rawBytes)

	key := &model.APIKey{
		ID:        platform.NewID(),
		Name:      name,
		Operator:  operator,
		KeyPrefix: rawKey[:12],
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO api_keys (id, name, operator, key_hash, key_prefix) VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		key.ID, key.Name, key.Operator, hashKey(rawKey), key.KeyPrefix,
	).Scan(&key.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("insert api key: %w", err)
	}
	return key, rawKey, nil
}

// Authenticate resolves a raw key to its active API key.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*model.APIKey, error) {
	var k model.APIKey
	err := s.db.QueryRow(ctx,
		`SELECT id, name, operator, key_prefix, created_at FROM api_keys
		 WHERE key_hash = $1 AND revoked_at IS NULL`, hashKey(rawKey),
	).Scan(&k.ID, &k.Name, &k.Operator, &k.KeyPrefix, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate api key: %w", err)
	}
	return &k, nil
}

// Revoke soft-deletes an API key by setting revoked_at.
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL", id,
	)
	if err != nil {
		return fmt.Errorf("revoke api key %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key %s not found or already revoked", id)
	}
	return nil
}

func hashKey(rawKey string) string {
	hash := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(hash[:])
}
