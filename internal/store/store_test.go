package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/byokey/byokey/internal/byok"
)

func openStores(t *testing.T) map[string]TokenStore {
	t.Helper()
	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "tokens.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]TokenStore{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tok := byok.NewToken("access-1").WithRefresh("refresh-1")
			if err := s.Save(ctx, byok.ProviderClaude, tok); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx, byok.ProviderClaude)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
				t.Fatalf("round trip mismatch: %+v", got)
			}
		})
	}
}

func TestLoadMissingIsTokenNotFound(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), byok.ProviderKimi)
			if err == nil {
				t.Fatal("expected error")
			}
			if be := byok.AsError(err); be.Kind != byok.ErrTokenNotFound {
				t.Fatalf("kind = %v, want ErrTokenNotFound", be.Kind)
			}
		})
	}
}

func TestFirstAccountBecomesActive(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.SaveAccount(ctx, byok.ProviderCodex, "work", "Work", byok.NewToken("a")); err != nil {
				t.Fatalf("SaveAccount: %v", err)
			}
			if err := s.SaveAccount(ctx, byok.ProviderCodex, "home", "Home", byok.NewToken("b")); err != nil {
				t.Fatalf("SaveAccount: %v", err)
			}
			infos, err := s.ListAccounts(ctx, byok.ProviderCodex)
			if err != nil {
				t.Fatalf("ListAccounts: %v", err)
			}
			if len(infos) != 2 {
				t.Fatalf("len = %d, want 2", len(infos))
			}
			if infos[0].AccountID != "work" || !infos[0].IsActive {
				t.Fatalf("first account should be active: %+v", infos)
			}
			if infos[1].IsActive {
				t.Fatalf("second account should not be active: %+v", infos)
			}
		})
	}
}

func TestAtMostOneActive(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"a", "b", "c"} {
				if err := s.SaveAccount(ctx, byok.ProviderQwen, id, "", byok.NewToken("t-"+id)); err != nil {
					t.Fatalf("SaveAccount(%s): %v", id, err)
				}
			}
			if err := s.SetActive(ctx, byok.ProviderQwen, "c"); err != nil {
				t.Fatalf("SetActive: %v", err)
			}
			infos, err := s.ListAccounts(ctx, byok.ProviderQwen)
			if err != nil {
				t.Fatalf("ListAccounts: %v", err)
			}
			activeCount := 0
			for _, info := range infos {
				if info.IsActive {
					activeCount++
					if info.AccountID != "c" {
						t.Fatalf("active account = %s, want c", info.AccountID)
					}
				}
			}
			if activeCount != 1 {
				t.Fatalf("active count = %d, want 1", activeCount)
			}
		})
	}
}

func TestSetActiveMissingAccount(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.SetActive(context.Background(), byok.ProviderGemini, "nope")
			if err == nil {
				t.Fatal("expected error for missing account")
			}
		})
	}
}

func TestRemoveDeletesOnlyActive(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.SaveAccount(ctx, byok.ProviderIFlow, "first", "", byok.NewToken("1")); err != nil {
				t.Fatal(err)
			}
			if err := s.SaveAccount(ctx, byok.ProviderIFlow, "second", "", byok.NewToken("2")); err != nil {
				t.Fatal(err)
			}
			if err := s.Remove(ctx, byok.ProviderIFlow); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			infos, err := s.ListAccounts(ctx, byok.ProviderIFlow)
			if err != nil {
				t.Fatal(err)
			}
			if len(infos) != 1 || infos[0].AccountID != "second" {
				t.Fatalf("remaining accounts = %+v, want only second", infos)
			}
			// Remove does not promote.
			if infos[0].IsActive {
				t.Fatal("remaining account should not have been promoted")
			}
		})
	}
}

func TestLoadAllTokensOrdering(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"bravo", "alpha", "charlie"} {
				if err := s.SaveAccount(ctx, byok.ProviderKiro, id, "", byok.NewToken("t-"+id)); err != nil {
					t.Fatal(err)
				}
			}
			all, err := s.LoadAllTokens(ctx, byok.ProviderKiro)
			if err != nil {
				t.Fatal(err)
			}
			// Active (bravo, first saved) then alphabetical.
			want := []string{"bravo", "alpha", "charlie"}
			if len(all) != len(want) {
				t.Fatalf("len = %d, want %d", len(all), len(want))
			}
			for i, w := range want {
				if all[i].AccountID != w {
					t.Fatalf("order[%d] = %s, want %s", i, all[i].AccountID, w)
				}
			}
		})
	}
}

func TestLegacyMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err = db.Exec(`CREATE TABLE tokens (provider TEXT PRIMARY KEY, token_json TEXT NOT NULL)`); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if _, err = db.Exec(`INSERT INTO tokens VALUES ('claude', '{"access_token":"legacy-tok"}')`); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	if err = db.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	tok, err := s.Load(ctx, byok.ProviderClaude)
	if err != nil {
		t.Fatalf("Load after migration: %v", err)
	}
	if tok.AccessToken != "legacy-tok" {
		t.Fatalf("token = %+v", tok)
	}
	infos, err := s.ListAccounts(ctx, byok.ProviderClaude)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].AccountID != DefaultAccount || !infos[0].IsActive {
		t.Fatalf("migrated account = %+v", infos)
	}
	// Legacy relation must be gone.
	var n int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tokens'`).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatal("legacy tokens table was not dropped")
	}
}
