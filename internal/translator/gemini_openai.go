package translator

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GeminiToOpenAI converts a complete Gemini generateContent response
// into an OpenAI chat-completion response.
func GeminiToOpenAI(body []byte) []byte {
	out := []byte(`{"id":"chatcmpl-gemini","object":"chat.completion","model":"gemini","choices":[{"index":0,"message":{"role":"assistant"}}]}`)

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text").String()
	out, _ = sjson.SetBytes(out, "choices.0.message.content", text)

	finish := "stop"
	if gjson.GetBytes(body, "candidates.0.finishReason").String() == "MAX_TOKENS" {
		finish = "length"
	}
	out, _ = sjson.SetBytes(out, "choices.0.finish_reason", finish)

	if usage := gjson.GetBytes(body, "usageMetadata"); usage.Exists() {
		in := usage.Get("promptTokenCount").Int()
		outTok := usage.Get("candidatesTokenCount").Int()
		out, _ = sjson.SetBytes(out, "usage.prompt_tokens", in)
		out, _ = sjson.SetBytes(out, "usage.completion_tokens", outTok)
		out, _ = sjson.SetBytes(out, "usage.total_tokens", in+outTok)
	}
	return out
}
