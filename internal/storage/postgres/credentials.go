package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CredentialStore reads per-user remote credentials. Tokens are stored
// encrypted; decryption happens in the crypto vault, never here.
type CredentialStore struct {
	db *sqlx.DB
}

func NewCredentialStore(db *sqlx.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// RemoteToken returns the encrypted credential blob, or "" when none is set.
func (s *CredentialStore) RemoteToken(ctx context.Context, userID string) (string, error) {
	var token sql.NullString
	query := `SELECT github_token FROM users WHERE id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &token, query, userID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("user %s not found", userID)
	}
	if err != nil {
		return "", fmt.Errorf("load remote token: %w", err)
	}
	return token.String, nil
}
