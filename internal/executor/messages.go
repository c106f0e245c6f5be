package executor

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/byokey/byokey/internal/byok"
)

// Messages posts an Anthropic-format body without translation. The
// beta argument extends the default anthropic-beta header.
func (e *ClaudeExecutor) Messages(ctx context.Context, body []byte, beta string, stream bool) (*http.Response, error) {
	headers := map[string]string{
		"anthropic-version": anthropicVersion,
		"anthropic-beta":    joinBeta(anthropicBeta, beta),
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
	if stream {
		headers["Accept"] = "text/event-stream"
	}
	return post(ctx, e.client, claudeAPIURL, headers, body)
}

// Messages posts an Anthropic-format body to the Copilot chat API,
// which speaks the Messages dialect on /v1/messages.
func (e *CopilotExecutor) Messages(ctx context.Context, body []byte, beta string, stream bool) (*http.Response, error) {
	base, apiToken, err := e.APIBase(ctx)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Authorization":     "Bearer " + apiToken,
		"X-Initiator":       initiator(body),
		"anthropic-version": anthropicVersion,
	}
	if beta != "" {
		headers["anthropic-beta"] = beta
	}
	for k, v := range copilotIdentityHeaders {
		headers[k] = v
	}
	if stream {
		headers["Accept"] = "text/event-stream"
	}
	return post(ctx, e.client, base+"/v1/messages", headers, body)
}

// Responses forwards a Responses-format body. API keys go to the
// public OpenAI endpoint, OAuth tokens to the Codex backend.
func (e *CodexExecutor) Responses(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	if e.hasAPIKey() {
		headers := map[string]string{"Authorization": "Bearer " + e.apiKey}
		if stream {
			headers["Accept"] = "text/event-stream"
		}
		return post(ctx, e.client, "https://api.openai.com/v1/responses", headers, body)
	}
	token, err := e.bearer(ctx, byok.ProviderCodex)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Version":       codexVersion,
		"Session_id":    uuid.NewString(),
		"Originator":    codexOriginator,
		"User-Agent":    codexUserAgent,
	}
	if stream {
		headers["Accept"] = "text/event-stream"
	}
	return post(ctx, e.client, codexAPIURL, headers, body)
}

const geminiNativeBase = "https://generativelanguage.googleapis.com/v1beta/models/"

// Native forwards a Gemini-format request to the native v1beta
// endpoint. The action is "model:method" and the query string passes
// through verbatim.
func (e *GeminiExecutor) Native(ctx context.Context, action, rawQuery string, body []byte, stream bool) (*http.Response, error) {
	headers := map[string]string{}
	if e.hasAPIKey() {
		headers["x-goog-api-key"] = e.apiKey
	} else {
		token, err := e.bearer(ctx, byok.ProviderGemini)
		if err != nil {
			return nil, err
		}
		headers["Authorization"] = "Bearer " + token
	}
	if stream {
		headers["Accept"] = "text/event-stream"
	}
	url := geminiNativeBase + action
	if rawQuery != "" {
		url += "?" + rawQuery
	}
	return post(ctx, e.client, url, headers, body)
}

// joinBeta appends extra beta flags to the defaults.
func joinBeta(base, extra string) string {
	if extra == "" {
		return base
	}
	return base + "," + extra
}
