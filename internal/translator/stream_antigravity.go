package translator

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// AntigravityStream translates the Antigravity event stream into
// OpenAI chat.completion.chunk events. Each upstream data line is a
// Gemini stream chunk wrapped in a {response: …} envelope.
type AntigravityStream struct {
	lines lineBuffer
	model string
}

// NewAntigravityStream returns a translator reporting the given model
// in every emitted chunk.
func NewAntigravityStream(model string) *AntigravityStream {
	return &AntigravityStream{model: model}
}

// Push feeds one upstream chunk and returns zero or more framed
// OpenAI SSE events. The terminal [DONE] line is forwarded as-is.
func (s *AntigravityStream) Push(chunk []byte) [][]byte {
	var events [][]byte
	for _, line := range s.lines.Push(chunk) {
		payload := dataPayload(line)
		if payload == nil {
			continue
		}
		if bytes.Equal(payload, []byte("[DONE]")) {
			events = append(events, append([]byte(nil), doneEvent...))
			continue
		}
		response := gjson.GetBytes(payload, "response")
		if !response.Exists() {
			continue
		}
		if out := s.translateChunk([]byte(response.Raw)); out != nil {
			events = append(events, out)
		}
	}
	return events
}

func (s *AntigravityStream) translateChunk(geminiChunk []byte) []byte {
	candidate := gjson.GetBytes(geminiChunk, "candidates.0")
	if !candidate.Exists() {
		return nil
	}

	finish := ""
	switch candidate.Get("finishReason").String() {
	case "STOP":
		finish = "stop"
	case "MAX_TOKENS":
		finish = "length"
	}

	delta := []byte(`{}`)
	hasContent := false
	for _, part := range candidate.Get("content.parts").Array() {
		if t := part.Get("text"); t.Exists() {
			delta, _ = sjson.SetBytes(delta, "content", t.String())
			hasContent = true
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			name := fc.Get("name").String()
			call := []byte(`{"index":0,"type":"function"}`)
			call, _ = sjson.SetBytes(call, "id", name+"-"+uuid.NewString()[:8])
			call, _ = sjson.SetBytes(call, "function.name", name)
			args := "{}"
			if a := fc.Get("args"); a.Exists() {
				args = a.Raw
			}
			call, _ = sjson.SetBytes(call, "function.arguments", args)
			deltaCalls := []byte(`[]`)
			deltaCalls, _ = sjson.SetRawBytes(deltaCalls, "-1", call)
			delta, _ = sjson.SetRawBytes(delta, "tool_calls", deltaCalls)
			hasContent = true
		}
	}
	if !hasContent && finish == "" {
		return nil
	}

	out := []byte(`{"id":"chatcmpl-antigravity","object":"chat.completion.chunk","choices":[{"index":0}]}`)
	out, _ = sjson.SetBytes(out, "model", s.model)
	out, _ = sjson.SetRawBytes(out, "choices.0.delta", delta)
	if finish != "" {
		out, _ = sjson.SetBytes(out, "choices.0.finish_reason", finish)
	} else {
		out, _ = sjson.SetRawBytes(out, "choices.0.finish_reason", []byte("null"))
	}
	return frameEvent(out)
}
