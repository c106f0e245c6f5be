package executor

import (
	"context"

	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

// Anthropic Messages API endpoint; the beta flag is required.
const claudeAPIURL = "https://api.anthropic.com/v1/messages?beta=true"

const anthropicVersion = "2023-06-01"

// oauth-2025-04-20 is required for OAuth Bearer tokens.
const anthropicBeta = "claude-code-20250219,oauth-2025-04-20,interleaved-thinking-2025-05-14,fine-grained-tool-streaming-2025-05-14,prompt-caching-2024-07-31"

const claudeUserAgent = "claude-cli/2.1.44 (external, sdk-cli)"

// ClaudeExecutor dispatches to the Anthropic Messages API with
// request and response translation from/to OpenAI format.
type ClaudeExecutor struct {
	core
}

func (e *ClaudeExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderClaude)
}

func (e *ClaudeExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	body := translator.OpenAIToClaude(req.Model, req.Body)
	body = translator.ApplyThinking(byok.ProviderClaude, body, req.Thinking)
	body = translator.InjectCacheControl(body)
	body, _ = sjson.SetBytes(body, "stream", req.Stream)

	headers := map[string]string{
		"anthropic-version": anthropicVersion,
		"anthropic-beta":    anthropicBeta,
		"anthropic-dangerous-direct-browser-access": "true",
		"x-app":      "cli",
		"User-Agent": claudeUserAgent,
	}
	if e.hasAPIKey() {
		headers["x-api-key"] = e.apiKey
	} else {
		token, err := e.bearer(ctx, byok.ProviderClaude)
		if err != nil {
			return nil, err
		}
		headers["Authorization"] = "Bearer " + token
	}
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	}

	resp, err := post(ctx, e.client, claudeAPIURL, headers, body)
	if err != nil {
		return nil, err
	}
	if req.Stream {
		sse := translator.NewClaudeStream()
		return &Response{Stream: translateStream(ctx, resp, sse.Push)}, nil
	}
	raw, err := readAll(resp)
	if err != nil {
		return nil, err
	}
	return &Response{Body: translator.ClaudeToOpenAI(raw)}, nil
}
