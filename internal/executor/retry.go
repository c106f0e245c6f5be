package executor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/auth"
	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
)

// maxRetryAttempts caps key rotation per request.
const maxRetryAttempts = 3

// RetryExecutor rotates a provider's API keys through a
// CredentialRouter. Each attempt binds a fresh executor to the
// selected key; retryable failures put the key into cooldown and move
// on, anything else returns immediately.
type RetryExecutor struct {
	provider byok.Provider
	router   *CredentialRouter
	client   *http.Client
	auth     *auth.Manager

	// build is swappable for tests.
	build func(key string) Executor
}

// NewRetryExecutor builds the rotation wrapper for a provider's keys.
func NewRetryExecutor(provider byok.Provider, keys []string, client *http.Client, manager *auth.Manager, cooldown time.Duration) *RetryExecutor {
	r := &RetryExecutor{
		provider: provider,
		router:   NewCredentialRouter(keys, cooldown),
		client:   client,
		auth:     manager,
	}
	r.build = func(key string) Executor {
		return New(provider, client, key, manager)
	}
	return r
}

func (r *RetryExecutor) SupportedModels() []string {
	return registry.Models(r.provider)
}

func (r *RetryExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	attempts := len(r.router.keys)
	if attempts > maxRetryAttempts {
		attempts = maxRetryAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		key, ok := r.router.NextKey()
		if !ok {
			break
		}
		resp, err := r.build(key).ChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !byok.IsRetryable(err) {
			return nil, err
		}
		log.Warnf("%s key rotated after retryable error: %v", r.provider, err)
		r.router.MarkError(key)
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, byok.HTTPError(fmt.Sprintf("%s: all API keys exhausted or in cooldown", r.provider))
}

// FallbackExecutor tries a primary executor and falls back to a second
// provider when it fails.
type FallbackExecutor struct {
	primary  Executor
	fallback Executor
}

func (f *FallbackExecutor) SupportedModels() []string {
	return f.primary.SupportedModels()
}

func (f *FallbackExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	resp, err := f.primary.ChatCompletion(ctx, req)
	if err == nil {
		return resp, nil
	}
	log.Warnf("primary provider failed, falling back: %v", err)
	return f.fallback.ChatCompletion(ctx, req)
}
