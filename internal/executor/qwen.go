package executor

import (
	"context"

	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

// Qwen OpenAI-compatible endpoint.
const qwenAPIURL = "https://portal.qwen.ai/v1/chat/completions"

const qwenUserAgent = "QwenCode/0.10.3 (darwin; arm64)"

// QwenExecutor dispatches to the Alibaba Qwen portal as an OpenAI
// passthrough.
type QwenExecutor struct {
	core
}

func (e *QwenExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderQwen)
}

func (e *QwenExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	token, err := e.bearer(ctx, byok.ProviderQwen)
	if err != nil {
		return nil, err
	}

	body, _ := sjson.SetBytes(req.Body, "stream", req.Stream)
	body = translator.ApplyThinking(byok.ProviderQwen, body, req.Thinking)
	if req.Stream {
		body, _ = sjson.SetRawBytes(body, "stream_options", []byte(`{"include_usage":true}`))
	}

	headers := map[string]string{
		"Authorization":          "Bearer " + token,
		"User-Agent":             qwenUserAgent,
		"x-dashscope-useragent":  qwenUserAgent,
		"x-dashscope-authtype":   "qwen-oauth",
		"x-dashscope-cachecontrol": "enable",
	}
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	} else {
		headers["Accept"] = "application/json"
	}

	resp, err := post(ctx, e.client, qwenAPIURL, headers, body)
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
