package executor

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

const (
	openaiChatURL = "https://api.openai.com/v1/chat/completions"
	codexAPIURL   = "https://chatgpt.com/backend-api/codex/responses"

	codexVersion    = "0.101.0"
	codexOriginator = "codex_cli_rs"
	codexUserAgent  = "codex_cli_rs/0.101.0 (Mac OS 26.0.1; arm64) Apple_Terminal/464"
)

// CodexExecutor dispatches to OpenAI. With an API key it forwards the
// chat-completion request unchanged; with OAuth it speaks the Codex
// Responses protocol, which only streams. Non-streaming callers get
// the terminal response.completed object translated back.
type CodexExecutor struct {
	core
}

func (e *CodexExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderCodex)
}

func (e *CodexExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	if e.hasAPIKey() {
		return e.apiKeyPassthrough(ctx, req)
	}
	return e.oauthResponses(ctx, req)
}

func (e *CodexExecutor) apiKeyPassthrough(ctx context.Context, req Request) (*Response, error) {
	body, _ := sjson.SetBytes(req.Body, "stream", req.Stream)
	body = translator.ApplyThinking(byok.ProviderCodex, body, req.Thinking)
	headers := map[string]string{
		"Authorization": "Bearer " + e.apiKey,
	}
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	}
	resp, err := post(ctx, e.client, openaiChatURL, headers, body)
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

func (e *CodexExecutor) oauthResponses(ctx context.Context, req Request) (*Response, error) {
	token, err := e.bearer(ctx, byok.ProviderCodex)
	if err != nil {
		return nil, err
	}

	// The Responses backend only streams; the stream flag is always on.
	body := translator.OpenAIToCodex(req.Model, req.Body, true)
	body = translator.ApplyThinking(byok.ProviderCodex, body, req.Thinking)

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Version":       codexVersion,
		"Session_id":    uuid.NewString(),
		"Originator":    codexOriginator,
		"User-Agent":    codexUserAgent,
		"Accept":        "text/event-stream",
	}
	resp, err := post(ctx, e.client, codexAPIURL, headers, body)
	if err != nil {
		return nil, err
	}

	sse := translator.NewCodexStream(req.Model)
	if req.Stream {
		return &Response{Stream: translateStream(ctx, resp, sse.Push)}, nil
	}

	// Drain the stream synchronously and translate the terminal
	// response object.
	defer func() { _ = resp.Body.Close() }()
	buf := make([]byte, streamReadSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			sse.Push(buf[:n])
		}
		if readErr != nil {
			if readErr != io.EOF {
				return nil, byok.WrapError(byok.ErrHTTP, "codex stream read failed", readErr)
			}
			break
		}
	}
	completed := sse.Completed()
	if completed == nil {
		return nil, byok.NewError(byok.ErrUpstream, "codex stream ended without response.completed")
	}
	return &Response{Body: translator.CodexToOpenAI(completed)}, nil
}
