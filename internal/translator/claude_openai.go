package translator

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ClaudeToOpenAI converts a complete Anthropic Messages response into
// an OpenAI chat-completion response. Text blocks concatenate into the
// assistant content; tool_use blocks become tool_calls entries.
func ClaudeToOpenAI(body []byte) []byte {
	id := "chatcmpl-unknown"
	if v := gjson.GetBytes(body, "id").String(); v != "" {
		id = "chatcmpl-" + v
	}

	var text strings.Builder
	toolCalls := []byte(`[]`)
	hasToolCalls := false
	for _, block := range gjson.GetBytes(body, "content").Array() {
		switch block.Get("type").String() {
		case "text":
			text.WriteString(block.Get("text").String())
		case "tool_use":
			call := []byte(`{"type":"function"}`)
			call, _ = sjson.SetBytes(call, "id", block.Get("id").String())
			call, _ = sjson.SetBytes(call, "function.name", block.Get("name").String())
			input := "{}"
			if in := block.Get("input"); in.Exists() {
				input = in.Raw
			}
			call, _ = sjson.SetBytes(call, "function.arguments", input)
			toolCalls, _ = sjson.SetRawBytes(toolCalls, "-1", call)
			hasToolCalls = true
		}
	}

	finish := "stop"
	switch gjson.GetBytes(body, "stop_reason").String() {
	case "max_tokens":
		finish = "length"
	case "tool_use":
		finish = "tool_calls"
	}

	out := []byte(`{"object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant"}}]}`)
	out, _ = sjson.SetBytes(out, "id", id)
	out, _ = sjson.SetBytes(out, "model", gjson.GetBytes(body, "model").String())
	out, _ = sjson.SetBytes(out, "choices.0.message.content", text.String())
	if hasToolCalls {
		out, _ = sjson.SetRawBytes(out, "choices.0.message.tool_calls", toolCalls)
	}
	out, _ = sjson.SetBytes(out, "choices.0.finish_reason", finish)

	if usage := gjson.GetBytes(body, "usage"); usage.Exists() {
		in := usage.Get("input_tokens").Int()
		outTok := usage.Get("output_tokens").Int()
		out, _ = sjson.SetBytes(out, "usage.prompt_tokens", in)
		out, _ = sjson.SetBytes(out, "usage.completion_tokens", outTok)
		out, _ = sjson.SetBytes(out, "usage.total_tokens", in+outTok)
	}
	return out
}
