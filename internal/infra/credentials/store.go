package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mediastudio/internal/infra"
	"mediastudio/internal/sqlinline"
)

// Provider names accepted by the integration_tokens table.
const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
	ProviderCloudinary = "cloudinary"
)

// Providers lists every provider a key may be stored for.
var Providers = []string{ProviderOpenAI, ProviderGemini, ProviderElevenLabs, ProviderCloudinary}

// Store reads and writes provider API keys kept in the database so they can
// be rotated without redeploying.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if s == nil || s.sql == nil {
		return "", nil
	}
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

// Resolve prefers the configured key and falls back to the stored one.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	return s.Token(ctx, provider)
}

// SetToken upserts the key for provider.
func (s *Store) SetToken(ctx context.Context, provider, token string, props map[string]any) error {
	if !known(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
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

func known(provider string) bool {
	for _, p := range Providers {
		if p == provider {
			return true
		}
	}
	return false
}
