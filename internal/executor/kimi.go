package executor

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

// Kimi OpenAI-compatible coding endpoint.
const kimiAPIURL = "https://api.kimi.com/coding/v1/chat/completions"

const kimiUserAgent = "KimiCLI/1.10.6"

// KimiExecutor dispatches to the Moonshot Kimi coding API. The local
// kimi- model prefix is stripped before dispatch and the X-Msh device
// identity rides along on every call.
type KimiExecutor struct {
	core
}

func (e *KimiExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderKimi)
}

func (e *KimiExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	token, err := e.bearer(ctx, byok.ProviderKimi)
	if err != nil {
		return nil, err
	}

	body, _ := sjson.SetBytes(req.Body, "stream", req.Stream)
	body = translator.ApplyThinking(byok.ProviderKimi, body, req.Thinking)
	if model := gjson.GetBytes(body, "model").String(); model != "" {
		body, _ = sjson.SetBytes(body, "model", strings.TrimPrefix(model, "kimi-"))
	}
	if req.Stream {
		body, _ = sjson.SetRawBytes(body, "stream_options", []byte(`{"include_usage":true}`))
	}

	headers := map[string]string{
		"Authorization":      "Bearer " + token,
		"User-Agent":         kimiUserAgent,
		"X-Msh-Platform":     "kimi_cli",
		"X-Msh-Version":      "1.10.6",
		"X-Msh-Device-Name":  "byok-client",
		"X-Msh-Device-Model": "MacBookPro",
		"X-Msh-Device-Id":    uuid.NewString(),
	}
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	} else {
		headers["Accept"] = "application/json"
	}

	resp, err := post(ctx, e.client, kimiAPIURL, headers, body)
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
