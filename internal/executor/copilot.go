package executor

import (
	"context"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/registry"
	"github.com/byokey/byokey/internal/translator"
)

const (
	copilotTokenURL       = "https://api.github.com/copilot_internal/v2/token"
	copilotDefaultAPIBase = "https://api.githubcopilot.com"

	// copilotTokenTTL applies when the exchange omits expires_at.
	copilotTokenTTL = 1500 * time.Second
)

// copilotIdentityHeaders is the fixed VS Code identity the Copilot API
// expects on chat requests.
var copilotIdentityHeaders = map[string]string{
	"Editor-Version":         "vscode/1.95.0",
	"Editor-Plugin-Version":  "copilot-chat/0.22.0",
	"Copilot-Integration-Id": "vscode-chat",
	"User-Agent":             "GitHubCopilotChat/0.22.0",
	"Openai-Intent":          "conversation-panel",
}

// copilotToken is one cached exchange result.
type copilotToken struct {
	apiToken string
	apiBase  string
	deadline time.Time
}

// copilotCache maps GitHub tokens to short-lived Copilot API tokens.
// The cache is process-wide: executors are rebuilt per request but the
// exchange result must survive across them.
var copilotCache = struct {
	sync.Mutex
	tokens map[string]copilotToken
}{tokens: make(map[string]copilotToken)}

// CopilotExecutor dispatches to the GitHub Copilot chat API. The
// stored GitHub OAuth token is exchanged for a short-lived API token
// which is cached until its deadline.
type CopilotExecutor struct {
	core
	now func() time.Time
}

// NewCopilotExecutor builds a Copilot executor over the shared core.
func NewCopilotExecutor(c core) *CopilotExecutor {
	return &CopilotExecutor{core: c, now: time.Now}
}

func (e *CopilotExecutor) SupportedModels() []string {
	return registry.Models(byok.ProviderCopilot)
}

func (e *CopilotExecutor) ChatCompletion(ctx context.Context, req Request) (*Response, error) {
	githubToken, err := e.bearer(ctx, byok.ProviderCopilot)
	if err != nil {
		return nil, err
	}
	token, err := e.exchange(ctx, githubToken)
	if err != nil {
		return nil, err
	}

	body, _ := sjson.SetBytes(req.Body, "stream", req.Stream)
	body = translator.ApplyThinking(byok.ProviderCopilot, body, req.Thinking)

	headers := map[string]string{
		"Authorization": "Bearer " + token.apiToken,
		"X-Initiator":   initiator(req.Body),
	}
	for k, v := range copilotIdentityHeaders {
		headers[k] = v
	}
	if req.Stream {
		headers["Accept"] = "text/event-stream"
	}

	resp, err := post(ctx, e.client, token.apiBase+"/chat/completions", headers, body)
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

// APIBase returns the chat API base for the stored GitHub token, used
// by the ingress layer to reroute Anthropic-format traffic.
func (e *CopilotExecutor) APIBase(ctx context.Context) (string, string, error) {
	githubToken, err := e.bearer(ctx, byok.ProviderCopilot)
	if err != nil {
		return "", "", err
	}
	token, err := e.exchange(ctx, githubToken)
	if err != nil {
		return "", "", err
	}
	return token.apiBase, token.apiToken, nil
}

// exchange turns a GitHub OAuth token into a Copilot API token,
// consulting the cache first.
func (e *CopilotExecutor) exchange(ctx context.Context, githubToken string) (copilotToken, error) {
	copilotCache.Lock()
	cached, ok := copilotCache.tokens[githubToken]
	copilotCache.Unlock()
	if ok && e.now().Before(cached.deadline) {
		return cached, nil
	}

	resp, err := get(ctx, e.client, copilotTokenURL, map[string]string{
		"Authorization": "token " + githubToken,
		"User-Agent":    copilotIdentityHeaders["User-Agent"],
	})
	if err != nil {
		return copilotToken{}, err
	}
	raw, err := readAll(resp)
	if err != nil {
		return copilotToken{}, err
	}

	apiToken := gjson.GetBytes(raw, "token").String()
	if apiToken == "" {
		return copilotToken{}, byok.AuthError("copilot token exchange returned no token")
	}
	token := copilotToken{
		apiToken: apiToken,
		apiBase:  copilotDefaultAPIBase,
		deadline: e.now().Add(copilotTokenTTL),
	}
	if base := gjson.GetBytes(raw, "endpoints.api").String(); base != "" {
		token.apiBase = base
	}
	if expiresAt := gjson.GetBytes(raw, "expires_at").Int(); expiresAt > 0 {
		token.deadline = time.Unix(expiresAt, 0)
	}

	copilotCache.Lock()
	copilotCache.tokens[githubToken] = token
	copilotCache.Unlock()
	return token, nil
}

// initiator reports who is driving the conversation: agent when any
// message came from the assistant or a tool, user otherwise.
func initiator(body []byte) string {
	for _, m := range gjson.GetBytes(body, "messages").Array() {
		switch m.Get("role").String() {
		case "assistant", "tool":
			return "agent"
		}
	}
	return "user"
}
