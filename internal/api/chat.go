package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/executor"
	"github.com/byokey/byokey/internal/translator"
)

// handleChatCompletions is the OpenAI chat-completion entry point.
// The model string is alias-resolved, the thinking suffix parsed off,
// and the request dispatched to the provider the model resolves to.
func (s *Server) handleChatCompletions(c *gin.Context) {
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

	ex, err := executor.ForModel(model, cfg, s.http, s.auth)
	if err != nil {
		writeError(c, err)
		return
	}
	s.dispatch(c, ex, executor.Request{
		Model:    model,
		Body:     body,
		Stream:   stream,
		Thinking: thinking,
	})
}

// handleCopilotChatCompletions routes unconditionally through Copilot
// regardless of what provider the model resolves to.
func (s *Server) handleCopilotChatCompletions(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, byok.HTTPError("cannot read request body"))
		return
	}
	cfg := s.cfg.Current()
	model := cfg.ResolveAlias(gjson.GetBytes(body, "model").String())
	model, thinking := translator.ParseModelSuffix(model)
	body, _ = sjson.SetBytes(body, "model", model)

	ex := executor.New(byok.ProviderCopilot, s.http, cfg.Provider(byok.ProviderCopilot).APIKey, s.auth)
	s.dispatch(c, ex, executor.Request{
		Model:    model,
		Body:     body,
		Stream:   gjson.GetBytes(body, "stream").Bool(),
		Thinking: thinking,
	})
}

// dispatch invokes the executor and renders either the JSON body or
// the SSE stream, recording usage either way.
func (s *Server) dispatch(c *gin.Context, ex executor.Executor, req executor.Request) {
	resp, err := ex.ChatCompletion(c.Request.Context(), req)
	if err != nil {
		s.usage.RecordFailure(req.Model)
		writeError(c, err)
		return
	}

	if resp.Stream != nil {
		s.streamResponse(c, req.Model, resp.Stream)
		return
	}

	usage := gjson.GetBytes(resp.Body, "usage")
	s.usage.RecordSuccess(req.Model, usage.Get("prompt_tokens").Int(), usage.Get("completion_tokens").Int())
	c.Data(http.StatusOK, "application/json", resp.Body)
}

// streamResponse copies SSE events to the client as they arrive.
// Token usage is scraped from chunks that carry a usage object.
func (s *Server) streamResponse(c *gin.Context, model string, stream <-chan []byte) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)

	var promptTokens, completionTokens int64
	for event := range stream {
		if usage := gjson.GetBytes(event, "usage"); usage.Exists() {
			promptTokens = usage.Get("prompt_tokens").Int()
			completionTokens = usage.Get("completion_tokens").Int()
		}
		if _, err := c.Writer.Write(event); err != nil {
			s.usage.RecordFailure(model)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	s.usage.RecordSuccess(model, promptTokens, completionTokens)
}
