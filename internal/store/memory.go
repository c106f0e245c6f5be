package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/byokey/byokey/internal/byok"
)

type memoryRecord struct {
	label     string
	isActive  bool
	token     byok.OAuthToken
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore is an in-memory TokenStore. State is lost on process exit.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[byok.Provider]map[string]*memoryRecord
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[byok.Provider]map[string]*memoryRecord)}
}

func (s *MemoryStore) Load(ctx context.Context, provider byok.Provider) (byok.OAuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.accounts[provider] {
		if rec.isActive {
			return rec.token, nil
		}
	}
	return byok.OAuthToken{}, byok.TokenNotFoundError(provider)
}

func (s *MemoryStore) Save(ctx context.Context, provider byok.Provider, token byok.OAuthToken) error {
	return s.SaveAccount(ctx, provider, DefaultAccount, "", token)
}

func (s *MemoryStore) Remove(ctx context.Context, provider byok.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.accounts[provider] {
		if rec.isActive {
			delete(s.accounts[provider], id)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) LoadAccount(ctx context.Context, provider byok.Provider, accountID string) (byok.OAuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.accounts[provider][accountID]; ok {
		return rec.token, nil
	}
	return byok.OAuthToken{}, byok.TokenNotFoundError(provider)
}

func (s *MemoryStore) SaveAccount(ctx context.Context, provider byok.Provider, accountID, label string, token byok.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[provider] == nil {
		s.accounts[provider] = make(map[string]*memoryRecord)
	}
	now := time.Now()
	if rec, ok := s.accounts[provider][accountID]; ok {
		rec.token = token
		if label != "" {
			rec.label = label
		}
		rec.updatedAt = now
		return nil
	}
	// First account for a provider becomes active; later saves do not
	// change which account is active.
	active := true
	for _, rec := range s.accounts[provider] {
		if rec.isActive {
			active = false
			break
		}
	}
	s.accounts[provider][accountID] = &memoryRecord{
		label:     label,
		isActive:  active,
		token:     token,
		createdAt: now,
		updatedAt: now,
	}
	return nil
}

func (s *MemoryStore) RemoveAccount(ctx context.Context, provider byok.Provider, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts[provider], accountID)
	return nil
}

func (s *MemoryStore) ListAccounts(ctx context.Context, provider byok.Provider) ([]byok.AccountInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]byok.AccountInfo, 0, len(s.accounts[provider]))
	for id, rec := range s.accounts[provider] {
		infos = append(infos, byok.AccountInfo{AccountID: id, Label: rec.label, IsActive: rec.isActive})
	}
	sortAccounts(infos)
	return infos, nil
}

func (s *MemoryStore) SetActive(ctx context.Context, provider byok.Provider, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.accounts[provider][accountID]
	if !ok {
		return byok.NewError(byok.ErrStorage, fmt.Sprintf("account %s not found for %s", accountID, provider))
	}
	for _, rec := range s.accounts[provider] {
		rec.isActive = false
	}
	target.isActive = true
	target.updatedAt = time.Now()
	return nil
}

func (s *MemoryStore) LoadAllTokens(ctx context.Context, provider byok.Provider) ([]AccountToken, error) {
	infos, err := s.ListAccounts(ctx, provider)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AccountToken, 0, len(infos))
	for _, info := range infos {
		out = append(out, AccountToken{AccountID: info.AccountID, Token: s.accounts[provider][info.AccountID].token})
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

// sortAccounts orders the active account first, then by account id.
func sortAccounts(infos []byok.AccountInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].IsActive != infos[j].IsActive {
			return infos[i].IsActive
		}
		return infos[i].AccountID < infos[j].AccountID
	})
}
