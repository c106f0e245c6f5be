package translator

import (
	"bytes"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ClaudeStream translates an Anthropic Messages event stream into
// OpenAI chat.completion.chunk events. It is a per-request state
// machine: the message id and model are captured from message_start,
// and tool-call deltas carry a monotonically increasing index.
type ClaudeStream struct {
	lines lineBuffer

	id            string
	model         string
	done          bool
	toolCallIndex int
	inToolUse     bool
}

// NewClaudeStream returns a translator with placeholder identity used
// until message_start arrives.
func NewClaudeStream() *ClaudeStream {
	return &ClaudeStream{
		id:            "chatcmpl-claude",
		model:         "claude",
		toolCallIndex: -1,
	}
}

// Done reports whether message_stop has been seen.
func (s *ClaudeStream) Done() bool { return s.done }

// Push feeds one upstream chunk and returns zero or more framed
// OpenAI SSE events in upstream order.
func (s *ClaudeStream) Push(chunk []byte) [][]byte {
	var events [][]byte
	for _, line := range s.lines.Push(chunk) {
		payload := dataPayload(line)
		if payload == nil {
			continue
		}
		if out := s.translate(payload); out != nil {
			events = append(events, out)
		}
	}
	return events
}

func (s *ClaudeStream) translate(payload []byte) []byte {
	switch gjson.GetBytes(payload, "type").String() {
	case "message_start":
		if id := gjson.GetBytes(payload, "message.id").String(); id != "" {
			s.id = "chatcmpl-" + id
		}
		if model := gjson.GetBytes(payload, "message.model").String(); model != "" {
			s.model = model
		}
		delta, _ := sjson.Set(`{"role":"assistant"}`, "content", "")
		return s.chunk([]byte(delta), nil)
	case "content_block_start":
		block := gjson.GetBytes(payload, "content_block")
		if block.Get("type").String() != "tool_use" {
			s.inToolUse = false
			return nil
		}
		s.inToolUse = true
		s.toolCallIndex++
		call := []byte(`{"type":"function"}`)
		call, _ = sjson.SetBytes(call, "index", s.toolCallIndex)
		call, _ = sjson.SetBytes(call, "id", block.Get("id").String())
		call, _ = sjson.SetBytes(call, "function.name", block.Get("name").String())
		call, _ = sjson.SetBytes(call, "function.arguments", "")
		delta := []byte(`{"tool_calls":[]}`)
		delta, _ = sjson.SetRawBytes(delta, "tool_calls.-1", call)
		return s.chunk(delta, nil)
	case "content_block_delta":
		d := gjson.GetBytes(payload, "delta")
		switch d.Get("type").String() {
		case "text_delta":
			delta, _ := sjson.Set(`{}`, "content", d.Get("text").String())
			return s.chunk([]byte(delta), nil)
		case "input_json_delta":
			if !s.inToolUse {
				return nil
			}
			call := []byte(`{}`)
			call, _ = sjson.SetBytes(call, "index", s.toolCallIndex)
			call, _ = sjson.SetBytes(call, "function.arguments", d.Get("partial_json").String())
			delta := []byte(`{"tool_calls":[]}`)
			delta, _ = sjson.SetRawBytes(delta, "tool_calls.-1", call)
			return s.chunk(delta, nil)
		}
		return nil
	case "message_delta":
		finish := "stop"
		switch gjson.GetBytes(payload, "delta.stop_reason").String() {
		case "max_tokens":
			finish = "length"
		case "tool_use":
			finish = "tool_calls"
		}
		return s.chunk([]byte(`{}`), []byte(`"`+finish+`"`))
	case "message_stop":
		s.done = true
		return append([]byte(nil), doneEvent...)
	}
	// ping and content_block_stop carry nothing translatable.
	return nil
}

// chunk frames one chat.completion.chunk with the given delta and an
// optional raw finish_reason.
func (s *ClaudeStream) chunk(delta, finish []byte) []byte {
	out := []byte(`{"object":"chat.completion.chunk","choices":[{"index":0}]}`)
	out, _ = sjson.SetBytes(out, "id", s.id)
	out, _ = sjson.SetBytes(out, "model", s.model)
	out, _ = sjson.SetRawBytes(out, "choices.0.delta", delta)
	if finish != nil {
		out, _ = sjson.SetRawBytes(out, "choices.0.finish_reason", finish)
	} else {
		out, _ = sjson.SetRawBytes(out, "choices.0.finish_reason", []byte("null"))
	}
	return frameEvent(out)
}

// Flush drains any buffered partial line. Claude streams end with a
// newline so this normally returns nothing.
func (s *ClaudeStream) Flush() [][]byte {
	if len(s.lines.buf) == 0 {
		return nil
	}
	tail := s.lines.buf
	s.lines.buf = nil
	return s.Push(append(bytes.TrimRight(tail, "\r"), '\n'))
}
