package executor

import (
	"context"

	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

// Kiro serves an Anthropic-compatible Messages API at its own host.
const kiroAPIURL = "https://api.kiro.dev/v1/messages"

// KiroExecutor dispatches to the Kiro Messages API with the same
// request and response translation as Claude.
type KiroExecutor struct {
	core
}

func (e *KiroExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderKiro)
}

func (e *KiroExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	token, err := e.bearer(ctx, byok.ProviderKiro)
	if err != nil {
		return nil, err
	}

	body := translator.OpenAIToClaude(req.Model, req.Body)
	body = translator.ApplyThinking(byok.ProviderKiro, body, req.Thinking)
	body, _ = sjson.SetBytes(body, "stream", req.Stream)

	headers := map[string]string{
		"Authorization":     "Bearer " + token,
		"anthropic-version": anthropicVersion,
	}
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	}

	resp, err := post(ctx, e.client, kiroAPIURL, headers, body)
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
