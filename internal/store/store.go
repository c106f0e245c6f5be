// Package store persists provider credentials. Two implementations share
// one contract: an in-memory store for tests and short-lived processes,
// and a SQLite store for durable multi-account state.
package store

import (
	"context"

	"github.com/byokey/byokey/internal/byok"
)

// DefaultAccount is the account id used by the single-account Save/Load
// convenience operations.
const DefaultAccount = "default"

// AccountToken pairs an account id with its token.
type AccountToken struct {
	AccountID string
	Token     byok.OAuthToken
}

// TokenStore is the credential persistence contract. All operations are
// safe for concurrent use. Account listings order the active account
// first, then remaining accounts by account id ascending.
type TokenStore interface {
	// Load returns the active account's token, or ErrTokenNotFound.
	Load(ctx context.Context, provider byok.Provider) (byok.OAuthToken, error)
	// Save upserts the token under the "default" account and keeps the
	// at-most-one-active invariant.
	Save(ctx context.Context, provider byok.Provider, token byok.OAuthToken) error
	// Remove deletes only the active account row. Other accounts are kept
	// and none is promoted.
	Remove(ctx context.Context, provider byok.Provider) error

	LoadAccount(ctx context.Context, provider byok.Provider, accountID string) (byok.OAuthToken, error)
	SaveAccount(ctx context.Context, provider byok.Provider, accountID, label string, token byok.OAuthToken) error
	RemoveAccount(ctx context.Context, provider byok.Provider, accountID string) error
	ListAccounts(ctx context.Context, provider byok.Provider) ([]byok.AccountInfo, error)
	// SetActive atomically demotes all accounts of the provider and
	// promotes the target; fails with ErrStorage if the target is absent.
	SetActive(ctx context.Context, provider byok.Provider, accountID string) error
	LoadAllTokens(ctx context.Context, provider byok.Provider) ([]AccountToken, error)

	Close() error
}
