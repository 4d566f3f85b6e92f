package github

import (
	"context"
	"fmt"
	"log/slog"

	"article_sync/internal/crypto"
)

// CredentialSource loads a user's encrypted remote credential.
type CredentialSource interface {
	RemoteToken(ctx context.Context, userID string) (string, error)
}

// Factory builds per-user clients. The stored credential is decrypted
// immediately before each client is handed out and never cached.
type Factory struct {
	cfg         Config
	credentials CredentialSource
	vault       *crypto.Vault
	logger      *slog.Logger
}

func NewFactory(cfg Config, credentials CredentialSource, vault *crypto.Vault, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:         cfg,
		credentials: credentials,
		vault:       vault,
		logger:      logger,
	}
}

// ClientFor returns a client bound to the user's decrypted token.
func (f *Factory) ClientFor(ctx context.Context, userID string) (*Client, error) {
	encrypted, err := f.credentials.RemoteToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if encrypted == "" {
		return nil, fmt.Errorf("%w: no credential stored for user", ErrAuth)
	}

	token, err := f.vault.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt credential: %v", ErrAuth, err)
	}

	return New(f.cfg, token, f.logger), nil
}
