package executor

import (
	"context"

	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

// Gemini OpenAI-compatible endpoint.
const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"

// GeminiExecutor dispatches to Google's OpenAI-compatible Gemini
// endpoint as a passthrough. API keys use x-goog-api-key; OAuth uses a
// Bearer token.
type GeminiExecutor struct {
	core
}

func (e *GeminiExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderGemini)
}

func (e *GeminiExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	body, _ := sjson.SetBytes(req.Body, "stream", req.Stream)
	body = translator.ApplyThinking(byok.ProviderGemini, body, req.Thinking)

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
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	}

	resp, err := post(ctx, e.client, geminiAPIURL, headers, body)
	if err != nil {
		return nil, err
	}
	if req.Stream {
		return &Response{Stream: passthroughStream(ctx, resp)}, nil
	}
	raw, err := readAll(resp)
	if err != nil {
		return nil, err
	}
	return &Response{Body: raw}, nil
}
