// Package executor implements the per-provider upstream dispatch. One
// executor exists per provider; an executor instance is built per
// request and bound to either a configured API key or the auth
// manager, because its auth mode is captured at construction.
package executor

import (
	"context"
	"net/http"
	"time"

	"github.com/byokey/byokey/internal/auth"
	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/config"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

// Request is one chat-completion dispatch. Body is the raw
// OpenAI-format request; Model carries the canonical id after alias
// resolution and suffix stripping.
type Request struct {
	Model    string
	Body     []byte
	Stream   bool
	Thinking *translator.ThinkingConfig
}

// Response is either a complete JSON body or a channel of framed SSE
// events, never both.
type Response struct {
	Body   []byte
	Stream <-chan []byte
}

// Executor dispatches chat completions to one upstream provider.
type Executor interface {
	ChatCompletion(ctx context.Context, req Request) (*Response, error)
	SupportedModels() []string
}

// core carries the auth mode and HTTP client shared by all executors.
type core struct {
	client *http.Client
	apiKey string
	auth   *auth.Manager
}

func newCore(client *http.Client, apiKey string, manager *auth.Manager) core {
	if client == nil {
		client = &http.Client{Timeout: 300 * time.Second}
	}
	return core{client: client, apiKey: apiKey, auth: manager}
}

// bearer resolves the upstream credential: the configured API key
// wins, otherwise the stored OAuth token (refreshed when needed).
func (c core) bearer(ctx context.Context, provider byok.Provider) (string, error) {
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	token, err := c.auth.GetToken(ctx, provider)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// hasAPIKey reports whether the executor was bound to a config key.
func (c core) hasAPIKey() bool { return c.apiKey != "" }

// New builds the executor for a provider.
func New(provider byok.Provider, client *http.Client, apiKey string, manager *auth.Manager) Executor {
	c := newCore(client, apiKey, manager)
	switch provider {
	case byok.ProviderClaude:
		return &ClaudeExecutor{core: c}
	case byok.ProviderCodex:
		return &CodexExecutor{core: c}
	case byok.ProviderGemini:
		return &GeminiExecutor{core: c}
	case byok.ProviderAntigravity:
		return &AntigravityExecutor{core: c}
	case byok.ProviderCopilot:
		return NewCopilotExecutor(c)
	case byok.ProviderKiro:
		return &KiroExecutor{core: c}
	case byok.ProviderQwen:
		return &QwenExecutor{core: c}
	case byok.ProviderKimi:
		return &KimiExecutor{core: c}
	case byok.ProviderIFlow:
		return &IFlowExecutor{core: c}
	case byok.ProviderFactory:
		return &FactoryExecutor{core: c}
	}
	return nil
}

// ForModel resolves a model to its provider and builds the executor,
// honoring the provider's backend override and multi-key rotation.
func ForModel(model string, cfg *config.Config, client *http.Client, manager *auth.Manager) (Executor, error) {
	provider, err := registry.ResolveProvider(model)
	if err != nil {
		return nil, err
	}

	pc := cfg.Provider(provider)
	if pc.Backend != "" {
		backend := cfg.Provider(pc.Backend)
		if ex := New(pc.Backend, client, backend.APIKey, manager); ex != nil {
			return ex, nil
		}
		return nil, byok.NewError(byok.ErrUnsupportedModel, model)
	}

	keys := pc.AllAPIKeys()
	var ex Executor
	if len(keys) > 1 {
		ex = NewRetryExecutor(provider, keys, client, manager, defaultCooldown)
	} else {
		ex = New(provider, client, pc.APIKey, manager)
	}
	if ex == nil {
		return nil, byok.NewError(byok.ErrUnsupportedModel, model)
	}

	if pc.Fallback != "" {
		fallbackCfg := cfg.Provider(pc.Fallback)
		if fb := New(pc.Fallback, client, fallbackCfg.APIKey, manager); fb != nil {
			ex = &FallbackExecutor{primary: ex, fallback: fb}
		}
	}
	return ex, nil
}
