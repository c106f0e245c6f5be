package translator

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// CodexStream translates Codex Responses typed events into OpenAI
// chat.completion.chunk events. Function-call items open at a
// monotonically increasing tool-call index; argument deltas always
// target the most recently opened call.
type CodexStream struct {
	lines lineBuffer

	model         string
	toolCallIndex int
	hasToolCalls  bool
	done          bool

	// completed holds the final response object from
	// response.completed, used to build a non-streaming reply.
	completed []byte
}

// NewCodexStream returns a translator reporting the given model in
// every emitted chunk.
func NewCodexStream(model string) *CodexStream {
	return &CodexStream{model: model, toolCallIndex: -1}
}

// Done reports whether response.completed has been seen.
func (s *CodexStream) Done() bool { return s.done }

// Completed returns the raw response object carried by the
// response.completed event, or nil before it arrives.
func (s *CodexStream) Completed() []byte { return s.completed }

// Push feeds one upstream chunk and returns zero or more framed
// OpenAI SSE events.
func (s *CodexStream) Push(chunk []byte) [][]byte {
	var events [][]byte
	for _, line := range s.lines.Push(chunk) {
		payload := dataPayload(line)
		if payload == nil {
			continue
		}
		events = append(events, s.translate(payload)...)
	}
	return events
}

func (s *CodexStream) translate(payload []byte) [][]byte {
	switch gjson.GetBytes(payload, "type").String() {
	case "response.reasoning_summary_text.delta":
		delta, _ := sjson.Set(`{}`, "reasoning_content", gjson.GetBytes(payload, "delta").String())
		return [][]byte{s.chunk([]byte(delta), "")}
	case "response.output_text.delta":
		delta, _ := sjson.Set(`{}`, "content", gjson.GetBytes(payload, "delta").String())
		return [][]byte{s.chunk([]byte(delta), "")}
	case "response.output_item.added":
		item := gjson.GetBytes(payload, "item")
		if item.Get("type").String() != "function_call" {
			return nil
		}
		s.toolCallIndex++
		s.hasToolCalls = true
		call := []byte(`{"type":"function"}`)
		call, _ = sjson.SetBytes(call, "index", s.toolCallIndex)
		call, _ = sjson.SetBytes(call, "id", item.Get("call_id").String())
		call, _ = sjson.SetBytes(call, "function.name", item.Get("name").String())
		call, _ = sjson.SetBytes(call, "function.arguments", "")
		delta := []byte(`{"tool_calls":[]}`)
		delta, _ = sjson.SetRawBytes(delta, "tool_calls.-1", call)
		return [][]byte{s.chunk(delta, "")}
	case "response.function_call_arguments.delta":
		if s.toolCallIndex < 0 {
			return nil
		}
		call := []byte(`{}`)
		call, _ = sjson.SetBytes(call, "index", s.toolCallIndex)
		call, _ = sjson.SetBytes(call, "function.arguments", gjson.GetBytes(payload, "delta").String())
		delta := []byte(`{"tool_calls":[]}`)
		delta, _ = sjson.SetRawBytes(delta, "tool_calls.-1", call)
		return [][]byte{s.chunk(delta, "")}
	case "response.completed":
		s.done = true
		if response := gjson.GetBytes(payload, "response"); response.Exists() {
			s.completed = []byte(response.Raw)
		}
		finish := "stop"
		if s.hasToolCalls {
			finish = "tool_calls"
		}
		return [][]byte{
			s.chunk([]byte(`{}`), finish),
			append([]byte(nil), doneEvent...),
		}
	}
	return nil
}

func (s *CodexStream) chunk(delta []byte, finish string) []byte {
	out := []byte(`{"id":"chatcmpl-codex","object":"chat.completion.chunk","choices":[{"index":0}]}`)
	out, _ = sjson.SetBytes(out, "model", s.model)
	out, _ = sjson.SetRawBytes(out, "choices.0.delta", delta)
	if finish != "" {
		out, _ = sjson.SetBytes(out, "choices.0.finish_reason", finish)
	} else {
		out, _ = sjson.SetRawBytes(out, "choices.0.finish_reason", []byte("null"))
	}
	return frameEvent(out)
}
