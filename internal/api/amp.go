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

const ampBase = "https://ampcode.com"

// hopByHopHeaders are connection-scoped and never forwarded.
var hopByHopHeaders = []string{
	"connection", "keep-alive", "proxy-authenticate", "proxy-authorization",
	"te", "trailers", "transfer-encoding", "upgrade", "host",
}

// handleAmpLogin sends the Amp CLI to the real login page.
func (s *Server) handleAmpLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, ampBase+"/login")
}

// handleAmpCLILogin forwards the CLI login callback with its query intact.
func (s *Server) handleAmpCLILogin(c *gin.Context) {
	target := ampBase + "/auth/cli-login"
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	c.Redirect(http.StatusFound, target)
}

// handleAmpProxy transparently forwards unmatched /api/ traffic to the
// Amp management plane. With an upstream key configured, client
// credentials are stripped and replaced.
func (s *Server) handleAmpProxy(c *gin.Context) {
	path := c.Request.URL.Path
	if !strings.HasPrefix(path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": apiError{"not found", "invalid_request_error", "not_found"}})
		return
	}

	target := ampBase + path
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
	if err != nil {
		writeError(c, byok.HTTPError("cannot build proxy request"))
		return
	}
	copyProxyHeaders(req.Header, c.Request.Header)
	if key := s.cfg.Current().Amp.UpstreamKey; key != "" {
		req.Header.Del("Authorization")
		req.Header.Del("X-Api-Key")
		req.Header.Del("X-Goog-Api-Key")
		req.Header.Set("Authorization", "Bearer "+key)
		req.Header.Set("X-Api-Key", key)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		writeError(c, byok.WrapError(byok.ErrHTTP, "amp upstream request failed", err))
		return
	}
	relayResponse(c, resp)
}

// copyProxyHeaders copies all but the hop-by-hop headers.
func copyProxyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if isHopByHop(k) {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func isHopByHop(name string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

// relayResponse copies the upstream status, headers, and body to the client.
func relayResponse(c *gin.Context, resp *http.Response) {
	defer func() { _ = resp.Body.Close() }()
	for k, vs := range resp.Header {
		if isHopByHop(k) {
			continue
		}
		for _, v := range vs {
			c.Writer.Header().Add(k, v)
		}
	}
	c.Writer.WriteHeader(resp.StatusCode)
	flusher, _ := c.Writer.(http.Flusher)
	buf := make([]byte, 16*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

// handleOpenAIResponses forwards a Responses-format request through the
// codex provider, untouched either way.
func (s *Server) handleOpenAIResponses(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, byok.HTTPError("cannot read request body"))
		return
	}
	cfg := s.cfg.Current()
	model := cfg.ResolveAlias(gjson.GetBytes(body, "model").String())
	model, _ = translator.ParseModelSuffix(model)
	body, _ = sjson.SetBytes(body, "model", model)
	stream := gjson.GetBytes(body, "stream").Bool()

	ex := executor.New(byok.ProviderCodex, s.http, cfg.Provider(byok.ProviderCodex).APIKey, s.auth).(*executor.CodexExecutor)
	resp, err := ex.Responses(c.Request.Context(), body, stream)
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

// handleGeminiNative serves the Gemini v1beta surface. The :action
// parameter is "model:method". Without a backend override the request
// passes through to Google; with one it is translated to OpenAI
// format, dispatched, and translated back.
func (s *Server) handleGeminiNative(c *gin.Context) {
	action := c.Param("action")
	model, method, ok := strings.Cut(action, ":")
	if !ok {
		writeError(c, byok.NewError(byok.ErrTranslation, "malformed model action: "+action))
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, byok.HTTPError("cannot read request body"))
		return
	}

	cfg := s.cfg.Current()
	model = cfg.ResolveAlias(model)
	model, thinking := translator.ParseModelSuffix(model)
	stream := strings.HasPrefix(method, "streamGenerateContent")

	geminiCfg := cfg.Provider(byok.ProviderGemini)
	if geminiCfg.Backend == "" {
		ex := executor.New(byok.ProviderGemini, s.http, geminiCfg.APIKey, s.auth).(*executor.GeminiExecutor)
		resp, nerr := ex.Native(c.Request.Context(), model+":"+method, c.Request.URL.RawQuery, body, stream)
		if nerr != nil {
			s.usage.RecordFailure(model)
			writeError(c, nerr)
			return
		}
		if stream {
			s.relaySSE(c, model, resp)
			return
		}
		raw, rerr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if rerr != nil {
			s.usage.RecordFailure(model)
			writeError(c, byok.WrapError(byok.ErrHTTP, "cannot read upstream response", rerr))
			return
		}
		u := gjson.GetBytes(raw, "usageMetadata")
		s.usage.RecordSuccess(model, u.Get("promptTokenCount").Int(), u.Get("candidatesTokenCount").Int())
		c.Data(http.StatusOK, "application/json", raw)
		return
	}

	// Backend override: run through the OpenAI pipeline.
	backend := cfg.Provider(geminiCfg.Backend)
	ex := executor.New(geminiCfg.Backend, s.http, backend.APIKey, s.auth)
	if ex == nil {
		writeError(c, byok.NewError(byok.ErrUnsupportedModel, model))
		return
	}
	translated := translator.GeminiNativeToOpenAI(model, body)
	resp, err := ex.ChatCompletion(c.Request.Context(), executor.Request{
		Model:    model,
		Body:     translated,
		Stream:   stream,
		Thinking: thinking,
	})
	if err != nil {
		s.usage.RecordFailure(model)
		writeError(c, err)
		return
	}
	if stream {
		s.streamGeminiNative(c, model, resp.Stream)
		return
	}
	u := gjson.GetBytes(resp.Body, "usage")
	s.usage.RecordSuccess(model, u.Get("prompt_tokens").Int(), u.Get("completion_tokens").Int())
	c.Data(http.StatusOK, "application/json", translator.OpenAIToGeminiNative(model, resp.Body))
}

// streamGeminiNative re-frames OpenAI chunk events as Gemini SSE.
func (s *Server) streamGeminiNative(c *gin.Context, model string, stream <-chan []byte) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)

	for event := range stream {
		out := translator.OpenAIChunkToGeminiNative(model, event)
		if out == nil {
			continue
		}
		if _, err := c.Writer.Write(out); err != nil {
			s.usage.RecordFailure(model)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	s.usage.RecordSuccess(model, 0, 0)
}
