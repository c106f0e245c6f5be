package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/byok"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO
)

// DefaultDBPath returns the default token database location,
// ~/.byokey/tokens.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", byok.WrapError(byok.ErrStorage, "cannot resolve home directory", err)
	}
	return filepath.Join(home, ".byokey", "tokens.db"), nil
}

// SQLiteStore is the durable TokenStore backed by a single accounts table:
// primary key (provider, account_id) with a partial unique index enforcing
// at most one active account per provider.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the token database at path, applies
// the schema, and migrates any legacy single-token table.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, byok.WrapError(byok.ErrStorage, "cannot create token db directory", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, byok.WrapError(byok.ErrStorage, "cannot open token db", err)
	}
	// Writers must serialize; modernc sqlite handles one connection best.
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err = s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	provider   TEXT NOT NULL,
	account_id TEXT NOT NULL,
	label      TEXT,
	is_active  INTEGER NOT NULL DEFAULT 0,
	token_json TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (provider, account_id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_active
	ON accounts(provider) WHERE is_active = 1;`
	if _, err := s.db.Exec(schema); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot apply token db schema", err)
	}
	return s.migrateLegacy()
}

// migrateLegacy moves rows from the old single-token tokens(provider,
// token_json) table into default active accounts, then drops the table.
func (s *SQLiteStore) migrateLegacy() error {
	var name string
	err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='tokens'`).Scan(&name)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot inspect token db", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot begin migration", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`SELECT provider, token_json FROM tokens`)
	if err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot read legacy tokens", err)
	}
	type legacyRow struct{ provider, tokenJSON string }
	var legacy []legacyRow
	for rows.Next() {
		var r legacyRow
		if err = rows.Scan(&r.provider, &r.tokenJSON); err != nil {
			_ = rows.Close()
			return byok.WrapError(byok.ErrStorage, "cannot scan legacy token", err)
		}
		legacy = append(legacy, r)
	}
	_ = rows.Close()

	now := time.Now().Unix()
	for _, r := range legacy {
		_, err = tx.Exec(
			`INSERT OR IGNORE INTO accounts (provider, account_id, label, is_active, token_json, created_at, updated_at)
			 VALUES (?, ?, NULL, 1, ?, ?, ?)`,
			r.provider, DefaultAccount, r.tokenJSON, now, now,
		)
		if err != nil {
			return byok.WrapError(byok.ErrStorage, "cannot migrate legacy token", err)
		}
	}
	if _, err = tx.Exec(`DROP TABLE tokens`); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot drop legacy tokens table", err)
	}
	if err = tx.Commit(); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot commit migration", err)
	}
	if len(legacy) > 0 {
		log.Infof("migrated %d legacy token(s) into accounts table", len(legacy))
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, provider byok.Provider) (byok.OAuthToken, error) {
	var tokenJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT token_json FROM accounts WHERE provider = ? AND is_active = 1`,
		string(provider),
	).Scan(&tokenJSON)
	if err == sql.ErrNoRows {
		return byok.OAuthToken{}, byok.TokenNotFoundError(provider)
	}
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrStorage, "cannot load token", err)
	}
	return decodeToken(tokenJSON)
}

func (s *SQLiteStore) Save(ctx context.Context, provider byok.Provider, token byok.OAuthToken) error {
	return s.SaveAccount(ctx, provider, DefaultAccount, "", token)
}

func (s *SQLiteStore) Remove(ctx context.Context, provider byok.Provider) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE provider = ? AND is_active = 1`, string(provider))
	if err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot remove token", err)
	}
	return nil
}

func (s *SQLiteStore) LoadAccount(ctx context.Context, provider byok.Provider, accountID string) (byok.OAuthToken, error) {
	var tokenJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT token_json FROM accounts WHERE provider = ? AND account_id = ?`,
		string(provider), accountID,
	).Scan(&tokenJSON)
	if err == sql.ErrNoRows {
		return byok.OAuthToken{}, byok.TokenNotFoundError(provider)
	}
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrStorage, "cannot load account token", err)
	}
	return decodeToken(tokenJSON)
}

func (s *SQLiteStore) SaveAccount(ctx context.Context, provider byok.Provider, accountID, label string, token byok.OAuthToken) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return byok.WrapError(byok.ErrSerialization, "cannot encode token", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot begin save", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The first account for a provider becomes active.
	var activeCount int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE provider = ? AND is_active = 1`,
		string(provider),
	).Scan(&activeCount); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot count active accounts", err)
	}
	active := 0
	if activeCount == 0 {
		active = 1
	}

	now := time.Now().Unix()
	var labelVal any
	if label != "" {
		labelVal = label
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (provider, account_id, label, is_active, token_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(provider, account_id) DO UPDATE SET
			token_json = excluded.token_json,
			label      = COALESCE(excluded.label, accounts.label),
			updated_at = excluded.updated_at`,
		string(provider), accountID, labelVal, active, string(tokenJSON), now, now,
	)
	if err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot save account token", err)
	}
	if err = tx.Commit(); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot commit save", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveAccount(ctx context.Context, provider byok.Provider, accountID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE provider = ? AND account_id = ?`,
		string(provider), accountID)
	if err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot remove account", err)
	}
	return nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context, provider byok.Provider) ([]byok.AccountInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, COALESCE(label, ''), is_active FROM accounts
		 WHERE provider = ? ORDER BY is_active DESC, account_id ASC`,
		string(provider))
	if err != nil {
		return nil, byok.WrapError(byok.ErrStorage, "cannot list accounts", err)
	}
	defer func() { _ = rows.Close() }()
	var infos []byok.AccountInfo
	for rows.Next() {
		var info byok.AccountInfo
		var active int
		if err = rows.Scan(&info.AccountID, &info.Label, &active); err != nil {
			return nil, byok.WrapError(byok.ErrStorage, "cannot scan account", err)
		}
		info.IsActive = active == 1
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteStore) SetActive(ctx context.Context, provider byok.Provider, accountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot begin set-active", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE provider = ? AND account_id = ?`,
		string(provider), accountID,
	).Scan(&exists); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot check account", err)
	}
	if exists == 0 {
		return byok.NewError(byok.ErrStorage, fmt.Sprintf("account %s not found for %s", accountID, provider))
	}
	now := time.Now().Unix()
	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET is_active = 0 WHERE provider = ?`, string(provider)); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot demote accounts", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET is_active = 1, updated_at = ? WHERE provider = ? AND account_id = ?`,
		now, string(provider), accountID); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot promote account", err)
	}
	if err = tx.Commit(); err != nil {
		return byok.WrapError(byok.ErrStorage, "cannot commit set-active", err)
	}
	return nil
}

func (s *SQLiteStore) LoadAllTokens(ctx context.Context, provider byok.Provider) ([]AccountToken, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, token_json FROM accounts
		 WHERE provider = ? ORDER BY is_active DESC, account_id ASC`,
		string(provider))
	if err != nil {
		return nil, byok.WrapError(byok.ErrStorage, "cannot load tokens", err)
	}
	defer func() { _ = rows.Close() }()
	var out []AccountToken
	for rows.Next() {
		var at AccountToken
		var tokenJSON string
		if err = rows.Scan(&at.AccountID, &tokenJSON); err != nil {
			return nil, byok.WrapError(byok.ErrStorage, "cannot scan token", err)
		}
		if at.Token, err = decodeToken(tokenJSON); err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func decodeToken(tokenJSON string) (byok.OAuthToken, error) {
	var tok byok.OAuthToken
	if err := json.Unmarshal([]byte(tokenJSON), &tok); err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrSerialization, "cannot decode stored token", err)
	}
	return tok, nil
}
