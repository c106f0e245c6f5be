package executor

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

const (
	antigravityPrimaryURL  = "https://daily-cloudcode-pa.googleapis.com"
	antigravityFallbackURL = "https://daily-cloudcode-pa.sandbox.googleapis.com"

	antigravityUserAgent = "antigravity/1.104.0 darwin/arm64"
)

// AntigravityExecutor dispatches to the Antigravity internal API. The
// Gemini-format request is wrapped in an agent envelope; on transport
// failure or HTTP 429 the call is retried once against the sandbox
// host.
type AntigravityExecutor struct {
	core
}

func (e *AntigravityExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderAntigravity)
}

func (e *AntigravityExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	token, err := e.bearer(ctx, byok.ProviderAntigravity)
	if err != nil {
		return nil, err
	}

	model := strings.TrimPrefix(req.Model, "ag-")
	gemini := translator.OpenAIToGemini(req.Body)
	gemini = translator.ApplyThinking(byok.ProviderAntigravity, gemini, req.Thinking)
	envelope := antigravityEnvelope(model, gemini)

	path := "/v1internal:generateContent"
	accept := "application/json"
	if req.Stream {
		path = "/v1internal:streamGenerateContent?alt=sse"
		accept = "text/event-stream"
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"User-Agent":    antigravityUserAgent,
		"Accept":        accept,
	}

	resp, err := post(ctx, e.client, antigravityPrimaryURL+path, headers, envelope)
	if retrySandbox(err) {
		resp, err = post(ctx, e.client, antigravityFallbackURL+path, headers, envelope)
	}
	if err != nil {
		return nil, err
	}

	if req.Stream {
		sse := translator.NewAntigravityStream(req.Model)
		return &Response{Stream: translateStream(ctx, resp, sse.Push)}, nil
	}
	raw, err := readAll(resp)
	if err != nil {
		return nil, err
	}
	inner := raw
	if response := gjson.GetBytes(raw, "response"); response.Exists() {
		inner = []byte(response.Raw)
	}
	return &Response{Body: translator.GeminiToOpenAI(inner)}, nil
}

// antigravityEnvelope wraps a Gemini request body in the agent
// envelope. safetySettings must be stripped; the envelope rejects
// them.
func antigravityEnvelope(model string, gemini []byte) []byte {
	for _, path := range []string{"safetySettings", "safety_settings"} {
		if gjson.GetBytes(gemini, path).Exists() {
			gemini, _ = sjson.DeleteBytes(gemini, path)
		}
	}
	id := uuid.NewString()
	out := []byte(`{"userAgent":"antigravity","requestType":"agent"}`)
	out, _ = sjson.SetBytes(out, "model", model)
	out, _ = sjson.SetBytes(out, "project", "useful-wave-"+id[:5])
	out, _ = sjson.SetBytes(out, "requestId", "agent-"+id)
	out, _ = sjson.SetRawBytes(out, "request", gemini)
	return out
}

// retrySandbox reports whether a primary-host failure is worth one
// attempt against the sandbox host.
func retrySandbox(err error) bool {
	if err == nil {
		return false
	}
	var be *byok.Error
	if !errors.As(err, &be) {
		return false
	}
	if be.Kind == byok.ErrHTTP {
		return true
	}
	return be.Kind == byok.ErrUpstream && be.Status == http.StatusTooManyRequests
}
