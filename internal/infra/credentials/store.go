package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nawabsahab16/ancestral-ai/internal/infra"
	"github.com/nawabsahab16/ancestral-ai/internal/sqlinline"
)

const (
	ProviderReplicate = "replicate"
	ProviderStorage   = "storage"
)

// Providers lists every integration whose token may be stored.
var Providers = []string{ProviderReplicate, ProviderStorage}

// Store keeps provider tokens in the integration_tokens table so deployments
// can rotate keys without restarting with new environment variables.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// EnsureSchema creates the integration_tokens table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QEnsureIntegrationTokensTable)
	return err
}

func (s *Store) ReplicateToken(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderReplicate)
}

func (s *Store) StorageAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderStorage)
}

// Token returns the stored token, or "" when none exists.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetReplicateToken(ctx context.Context, token string) error {
	return s.Set(ctx, ProviderReplicate, token)
}

func (s *Store) SetStorageAPIKey(ctx context.Context, key string) error {
	return s.Set(ctx, ProviderStorage, key)
}

// Set upserts the token for a known provider.
func (s *Store) Set(ctx context.Context, provider, token string) error {
	if !Known(provider) {
		return errors.New("unsupported provider " + provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(provider + " token is required")
	}
	return s.upsert(ctx, provider, token, nil)
}

// Known reports whether provider is one of Providers.
func Known(provider string) bool {
	for _, p := range Providers {
		if p == provider {
			return true
		}
	}
	return false
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
