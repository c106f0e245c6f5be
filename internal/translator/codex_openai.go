package translator

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// CodexToOpenAI converts a complete Codex Responses object into an
// OpenAI chat-completion response.
func CodexToOpenAI(body []byte) []byte {
	id := "chatcmpl-codex"
	if v := gjson.GetBytes(body, "id").String(); v != "" {
		id = "chatcmpl-" + v
	}

	var text strings.Builder
	var reasoning string
	toolCalls := []byte(`[]`)
	hasToolCalls := false
	for _, item := range gjson.GetBytes(body, "output").Array() {
		switch item.Get("type").String() {
		case "message":
			for _, part := range item.Get("content").Array() {
				if part.Get("type").String() == "output_text" {
					text.WriteString(part.Get("text").String())
				}
			}
		case "reasoning":
			for _, summary := range item.Get("summary").Array() {
				if summary.Get("type").String() == "summary_text" && reasoning == "" {
					reasoning = summary.Get("text").String()
				}
			}
		case "function_call":
			call := []byte(`{"type":"function"}`)
			call, _ = sjson.SetBytes(call, "id", item.Get("call_id").String())
			call, _ = sjson.SetBytes(call, "function.name", item.Get("name").String())
			call, _ = sjson.SetBytes(call, "function.arguments", item.Get("arguments").String())
			toolCalls, _ = sjson.SetRawBytes(toolCalls, "-1", call)
			hasToolCalls = true
		}
	}

	out := []byte(`{"object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant"}}]}`)
	out, _ = sjson.SetBytes(out, "id", id)
	out, _ = sjson.SetBytes(out, "model", gjson.GetBytes(body, "model").String())

	finish := "stop"
	if hasToolCalls {
		finish = "tool_calls"
		out, _ = sjson.SetRawBytes(out, "choices.0.message.tool_calls", toolCalls)
		if text.Len() == 0 {
			out, _ = sjson.SetRawBytes(out, "choices.0.message.content", []byte("null"))
		} else {
			out, _ = sjson.SetBytes(out, "choices.0.message.content", text.String())
		}
	} else {
		out, _ = sjson.SetBytes(out, "choices.0.message.content", text.String())
	}
	if reasoning != "" {
		out, _ = sjson.SetBytes(out, "choices.0.message.reasoning_content", reasoning)
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
