package executor

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

// iFlow OpenAI-compatible endpoint.
const iflowAPIURL = "https://apis.iflow.cn/v1/chat/completions"

// IFlowExecutor dispatches to the iFlow API. Every request is signed
// with an HMAC over the session id and a millisecond timestamp.
type IFlowExecutor struct {
	core
}

func (e *IFlowExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderIFlow)
}

// iflowSignature computes hex(HMAC-SHA256(api_key, "iFlow-Cli:<session>:<ms>")).
func iflowSignature(apiKey, sessionID string, timestampMS int64) string {
	payload := fmt.Sprintf("iFlow-Cli:%s:%d", sessionID, timestampMS)
	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (e *IFlowExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	apiKey, err := e.bearer(ctx, byok.ProviderIFlow)
	if err != nil {
		return nil, err
	}

	body, _ := sjson.SetBytes(req.Body, "stream", req.Stream)
	body = translator.ApplyThinking(byok.ProviderIFlow, body, req.Thinking)

	sessionID := "session-" + uuid.NewString()
	timestamp := time.Now().UnixMilli()
	headers := map[string]string{
		"Authorization":     "Bearer " + apiKey,
		"User-Agent":        "iFlow-Cli",
		"session-id":        sessionID,
		"x-iflow-timestamp": strconv.FormatInt(timestamp, 10),
		"x-iflow-signature": iflowSignature(apiKey, sessionID, timestamp),
	}
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	} else {
		headers["Accept"] = "application/json"
	}

	resp, err := post(ctx, e.client, iflowAPIURL, headers, body)
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
