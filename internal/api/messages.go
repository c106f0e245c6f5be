package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/executor"
	"github.com/byokey/byokey/internal/translator"
)

// handleMessages is the Anthropic-native passthrough. The body is
// sanitized and forwarded untranslated, to Anthropic or to Copilot's
// Messages dialect when the claude provider has a copilot backend.
func (s *Server) handleMessages(c *gin.Context) {
	s.serveMessages(c, false)
}

// handleCopilotMessages forces the Copilot route regardless of the
// configured backend.
func (s *Server) handleCopilotMessages(c *gin.Context) {
	s.serveMessages(c, true)
}

func (s *Server) serveMessages(c *gin.Context, forceCopilot bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, byok.HTTPError("cannot read request body"))
		return
	}

	cfg := s.cfg.Current()
	model := cfg.ResolveAlias(gjson.GetBytes(body, "model").String())
	model, thinking := translator.ParseModelSuffix(model)
	body, _ = sjson.SetBytes(body, "model", model)
	stream := gjson.GetBytes(body, "stream").Bool()

	body = sanitizeMessages(body)
	body = translator.ApplyThinking(byok.ProviderClaude, body, thinking)
	beta := extraBetas(c.GetHeader("anthropic-beta"), body)
	body, _ = sjson.DeleteBytes(body, "betas")

	claudeCfg := cfg.Provider(byok.ProviderClaude)
	var resp *http.Response
	if forceCopilot || claudeCfg.Backend == byok.ProviderCopilot {
		copilotCfg := cfg.Provider(byok.ProviderCopilot)
		ex := executor.New(byok.ProviderCopilot, s.http, copilotCfg.APIKey, s.auth).(*executor.CopilotExecutor)
		resp, err = ex.Messages(c.Request.Context(), body, beta, stream)
	} else {
		ex := executor.New(byok.ProviderClaude, s.http, claudeCfg.APIKey, s.auth).(*executor.ClaudeExecutor)
		resp, err = ex.Messages(c.Request.Context(), body, beta, stream)
	}
	if err != nil {
		s.usage.RecordFailure(model)
		writeError(c, err)
		return
	}

	if stream {
		s.relaySSE(c, model, resp)
		return
	}
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		s.usage.RecordFailure(model)
		writeError(c, byok.WrapError(byok.ErrHTTP, "cannot read upstream response", err))
		return
	}
	u := gjson.GetBytes(raw, "usage")
	s.usage.RecordSuccess(model, u.Get("input_tokens").Int(), u.Get("output_tokens").Int())
	c.Data(http.StatusOK, "application/json", raw)
}

// relaySSE relays an upstream SSE body verbatim.
func (s *Server) relaySSE(c *gin.Context, model string, resp *http.Response) {
	defer func() { _ = resp.Body.Close() }()
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)

	buf := make([]byte, 16*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				s.usage.RecordFailure(model)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err == io.EOF {
				s.usage.RecordSuccess(model, 0, 0)
			} else {
				s.usage.RecordFailure(model)
			}
			return
		}
	}
}

// sanitizeMessages drops a thinking block that the upstream would
// reject: forced tool choice is incompatible with extended thinking,
// and "auto" is not a valid thinking type.
func sanitizeMessages(body []byte) []byte {
	if !gjson.GetBytes(body, "thinking").Exists() {
		return body
	}
	toolChoice := gjson.GetBytes(body, "tool_choice.type").String()
	thinkingType := gjson.GetBytes(body, "thinking.type").String()
	if toolChoice == "any" || toolChoice == "tool" || thinkingType == "auto" {
		body, _ = sjson.DeleteBytes(body, "thinking")
	}
	return body
}

// extraBetas merges the client's anthropic-beta header with the betas
// array from the body into one comma-separated list.
func extraBetas(header string, body []byte) string {
	var betas []string
	seen := map[string]bool{}
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !seen[v] {
			seen[v] = true
			betas = append(betas, v)
		}
	}
	for _, v := range strings.Split(header, ",") {
		add(v)
	}
	for _, v := range gjson.GetBytes(body, "betas").Array() {
		add(v.String())
	}
	return strings.Join(betas, ",")
}
