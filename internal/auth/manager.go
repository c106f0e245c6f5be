package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/store"
)

// refreshCooldown is the minimum spacing between refresh attempts for one
// provider. The timestamp is written before the refresh RPC is dispatched
// so concurrent callers serialize through the gate.
const refreshCooldown = 30 * time.Second

// Manager wraps a TokenStore with state classification, the refresh
// cooldown gate, and the per-provider refresh dispatch. It holds no
// long-lived token copies; the store owns persistence.
type Manager struct {
	store  store.TokenStore
	client *http.Client

	mu          sync.Mutex
	lastRefresh map[byok.Provider]time.Time
}

// NewManager builds a Manager over the given store. client is used for
// refresh RPCs and credential manifest fetches.
func NewManager(s store.TokenStore, client *http.Client) *Manager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Manager{
		store:       s,
		client:      client,
		lastRefresh: make(map[byok.Provider]time.Time),
	}
}

// Store exposes the underlying token store.
func (m *Manager) Store() store.TokenStore { return m.store }

// GetToken returns a usable token for the provider: valid tokens are
// returned as-is, expired ones are refreshed through the cooldown gate,
// and unrefreshable ones fail with ErrTokenExpired.
func (m *Manager) GetToken(ctx context.Context, provider byok.Provider) (byok.OAuthToken, error) {
	token, err := m.store.Load(ctx, provider)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	switch token.State(time.Now()) {
	case byok.TokenValid:
		return token, nil
	case byok.TokenExpired:
		return m.refresh(ctx, provider, token)
	default:
		return byok.OAuthToken{}, byok.TokenExpiredError(provider)
	}
}

// IsAuthenticated reports whether a stored token exists and is not in the
// Invalid state.
func (m *Manager) IsAuthenticated(ctx context.Context, provider byok.Provider) bool {
	token, err := m.store.Load(ctx, provider)
	if err != nil {
		return false
	}
	return token.State(time.Now()) != byok.TokenInvalid
}

// SaveToken stores a token for the provider's default account.
func (m *Manager) SaveToken(ctx context.Context, provider byok.Provider, token byok.OAuthToken) error {
	return m.store.Save(ctx, provider, token)
}

// RemoveToken deletes the provider's active account token.
func (m *Manager) RemoveToken(ctx context.Context, provider byok.Provider) error {
	return m.store.Remove(ctx, provider)
}

// Login runs the provider's interactive login flow and persists the token.
func (m *Manager) Login(ctx context.Context, provider byok.Provider) (byok.OAuthToken, error) {
	var token byok.OAuthToken
	var err error
	switch provider {
	case byok.ProviderClaude:
		token, err = LoginClaude(ctx, m.client)
	case byok.ProviderCodex:
		token, err = LoginCodex(ctx, m.client)
	case byok.ProviderGemini:
		token, err = LoginGemini(ctx, m.client)
	case byok.ProviderAntigravity:
		token, err = LoginAntigravity(ctx, m.client)
	case byok.ProviderCopilot:
		token, err = LoginCopilot(ctx, m.client)
	case byok.ProviderQwen:
		token, err = LoginQwen(ctx, m.client)
	case byok.ProviderKimi:
		token, err = LoginKimi(ctx, m.client)
	case byok.ProviderIFlow:
		token, err = LoginIFlow(ctx, m.client)
	case byok.ProviderFactory:
		token, err = LoginFactory(ctx, m.client)
	case byok.ProviderKiro:
		token, err = LoginKiro(ctx, m.client)
	default:
		return byok.OAuthToken{}, byok.AuthError(fmt.Sprintf("no login flow for %s", provider))
	}
	if err != nil {
		return byok.OAuthToken{}, err
	}
	if err = m.store.Save(ctx, provider, token); err != nil {
		return byok.OAuthToken{}, err
	}
	log.Infof("logged in to %s", provider)
	return token, nil
}

// refresh runs the provider's refresh RPC behind the cooldown gate and
// persists the new token. When the response omits a refresh token the old
// one is preserved.
func (m *Manager) refresh(ctx context.Context, provider byok.Provider, token byok.OAuthToken) (byok.OAuthToken, error) {
	m.mu.Lock()
	if last, ok := m.lastRefresh[provider]; ok && time.Since(last) < refreshCooldown {
		m.mu.Unlock()
		return byok.OAuthToken{}, byok.AuthError(fmt.Sprintf("refresh cooldown active for %s", provider))
	}
	m.lastRefresh[provider] = time.Now()
	m.mu.Unlock()

	refreshed, err := m.refreshRPC(ctx, provider, token.RefreshToken)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	if err = m.store.Save(ctx, provider, refreshed); err != nil {
		return byok.OAuthToken{}, err
	}
	log.Debugf("refreshed token for %s", provider)
	return refreshed, nil
}

func (m *Manager) refreshRPC(ctx context.Context, provider byok.Provider, refreshToken string) (byok.OAuthToken, error) {
	switch provider {
	case byok.ProviderClaude:
		return refreshClaude(ctx, m.client, refreshToken)
	case byok.ProviderCodex:
		return refreshCodex(ctx, m.client, refreshToken)
	case byok.ProviderGemini, byok.ProviderAntigravity:
		return refreshGoogle(ctx, m.client, provider, refreshToken)
	case byok.ProviderQwen:
		return refreshQwen(ctx, m.client, refreshToken)
	case byok.ProviderKimi:
		return refreshKimi(ctx, m.client, refreshToken)
	case byok.ProviderIFlow:
		return refreshIFlow(ctx, m.client, refreshToken)
	case byok.ProviderFactory:
		return refreshFactory(ctx, m.client, refreshToken)
	default:
		// Copilot GitHub tokens are long-lived and Kiro has no flow.
		return byok.OAuthToken{}, byok.AuthError(fmt.Sprintf("token refresh not supported for %s; please re-authenticate", provider))
	}
}
