package executor

import (
	"context"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/translator"
)

// Factory LLM proxy base (OpenAI-compatible route).
const factoryLLMBase = "https://api.factory.ai/api/llm/o"

const factoryUserAgent = "factory-cli/0.62.1"

// FactoryExecutor routes through the Factory.ai LLM proxy. Factory is
// backend-only: it owns no models and is reached via a provider's
// backend override.
type FactoryExecutor struct {
	core
}

func (e *FactoryExecutor) SupportedModels() []string { return nil }

func (e *FactoryExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	token, err := e.bearer(ctx, byok.ProviderFactory)
	if err != nil {
		return nil, err
	}

	body, _ := sjson.SetBytes(req.Body, "stream", req.Stream)
	body = translator.ApplyThinking(byok.ProviderFactory, body, req.Thinking)

	headers := map[string]string{
		"Authorization":          "Bearer " + token,
		"User-Agent":             factoryUserAgent,
		"x-api-provider":         "openai",
		"x-session-id":           uuid.NewString(),
		"x-assistant-message-id": uuid.NewString(),
	}
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	}

	resp, err := post(ctx, e.client, factoryLLMBase+"/v1/chat/completions", headers, body)
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
