package translator

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GeminiNativeToOpenAI converts a Gemini-native generateContent request
// into an OpenAI chat-completion request, used when Gemini-native
// traffic is rerouted through an OpenAI-compatible backend.
func GeminiNativeToOpenAI(model string, body []byte) []byte {
	out := []byte(`{"messages":[]}`)
	out, _ = sjson.SetBytes(out, "model", model)

	if si := gjson.GetBytes(body, "systemInstruction"); si.Exists() {
		if text := joinParts(si.Get("parts")); text != "" {
			msg, _ := sjson.Set(`{"role":"system"}`, "content", text)
			out, _ = sjson.SetRawBytes(out, "messages.-1", []byte(msg))
		}
	}

	for _, content := range gjson.GetBytes(body, "contents").Array() {
		parts := content.Get("parts")
		if hasPartKind(parts, "functionCall") {
			out, _ = sjson.SetRawBytes(out, "messages.-1", nativeAssistantCalls(parts))
			continue
		}
		if hasPartKind(parts, "functionResponse") {
			for _, p := range parts.Array() {
				fr := p.Get("functionResponse")
				if !fr.Exists() {
					continue
				}
				msg := []byte(`{"role":"tool"}`)
				msg, _ = sjson.SetBytes(msg, "tool_call_id", fr.Get("name").String()+"-0")
				msg, _ = sjson.SetBytes(msg, "content", fr.Get("response.result").String())
				out, _ = sjson.SetRawBytes(out, "messages.-1", msg)
			}
			continue
		}
		role := "user"
		if content.Get("role").String() == "model" {
			role = "assistant"
		}
		msg := []byte(`{}`)
		msg, _ = sjson.SetBytes(msg, "role", role)
		msg, _ = sjson.SetBytes(msg, "content", joinParts(parts))
		out, _ = sjson.SetRawBytes(out, "messages.-1", msg)
	}

	if mt := gjson.GetBytes(body, "generationConfig.maxOutputTokens"); mt.Exists() {
		out, _ = sjson.SetBytes(out, "max_tokens", mt.Int())
	}
	if t := gjson.GetBytes(body, "generationConfig.temperature"); t.Exists() {
		out, _ = sjson.SetBytes(out, "temperature", t.Num)
	}
	out = nativeTools(out, body)
	return out
}

func joinParts(parts gjson.Result) string {
	var texts []string
	for _, p := range parts.Array() {
		if t := p.Get("text"); t.Exists() {
			texts = append(texts, t.String())
		}
	}
	return strings.Join(texts, "\n")
}

func hasPartKind(parts gjson.Result, kind string) bool {
	for _, p := range parts.Array() {
		if p.Get(kind).Exists() {
			return true
		}
	}
	return false
}

// nativeAssistantCalls maps functionCall parts to an assistant message
// with synthetic call ids, keeping any text alongside.
func nativeAssistantCalls(parts gjson.Result) []byte {
	msg := []byte(`{"role":"assistant","tool_calls":[]}`)
	if text := joinParts(parts); text != "" {
		msg, _ = sjson.SetBytes(msg, "content", text)
	}
	i := 0
	for _, p := range parts.Array() {
		fc := p.Get("functionCall")
		if !fc.Exists() {
			continue
		}
		call := []byte(`{"type":"function"}`)
		call, _ = sjson.SetBytes(call, "id", "call_"+strconv.Itoa(i))
		call, _ = sjson.SetBytes(call, "function.name", fc.Get("name").String())
		args := "{}"
		if a := fc.Get("args"); a.Exists() {
			args = a.Raw
		}
		call, _ = sjson.SetBytes(call, "function.arguments", args)
		msg, _ = sjson.SetRawBytes(msg, "tool_calls.-1", call)
		i++
	}
	return msg
}

func nativeTools(out, body []byte) []byte {
	decls := gjson.GetBytes(body, "tools.0.functionDeclarations")
	if decls.IsArray() && len(decls.Array()) > 0 {
		tools := []byte(`[]`)
		for _, d := range decls.Array() {
			tool := []byte(`{"type":"function"}`)
			tool, _ = sjson.SetRawBytes(tool, "function", []byte(d.Raw))
			tools, _ = sjson.SetRawBytes(tools, "-1", tool)
		}
		out, _ = sjson.SetRawBytes(out, "tools", tools)
	}

	cfg := gjson.GetBytes(body, "toolConfig.functionCallingConfig")
	switch cfg.Get("mode").String() {
	case "NONE":
		out, _ = sjson.SetBytes(out, "tool_choice", "none")
	case "ANY":
		if name := cfg.Get("allowedFunctionNames.0").String(); name != "" {
			tc, _ := sjson.Set(`{"type":"function"}`, "function.name", name)
			out, _ = sjson.SetRawBytes(out, "tool_choice", []byte(tc))
		} else {
			out, _ = sjson.SetBytes(out, "tool_choice", "auto")
		}
	case "AUTO":
		out, _ = sjson.SetBytes(out, "tool_choice", "auto")
	}
	return out
}

// OpenAIToGeminiNative converts a complete OpenAI chat-completion
// response back into Gemini-native generateContent shape.
func OpenAIToGeminiNative(model string, body []byte) []byte {
	message := gjson.GetBytes(body, "choices.0.message")
	parts := openAIMessageParts(message.Get("content"), message.Get("tool_calls"))

	candidate := []byte(`{"content":{"role":"model"},"index":0}`)
	candidate, _ = sjson.SetRawBytes(candidate, "content.parts", parts)
	finish := "STOP"
	if gjson.GetBytes(body, "choices.0.finish_reason").String() == "length" {
		finish = "MAX_TOKENS"
	}
	candidate, _ = sjson.SetBytes(candidate, "finishReason", finish)
	if sr := gjson.GetBytes(body, "choices.0.safety_ratings"); sr.Exists() {
		candidate, _ = sjson.SetRawBytes(candidate, "safetyRatings", []byte(sr.Raw))
	}

	out := []byte(`{"candidates":[]}`)
	out, _ = sjson.SetRawBytes(out, "candidates.-1", candidate)
	out, _ = sjson.SetBytes(out, "modelVersion", model)
	if usage := gjson.GetBytes(body, "usage"); usage.Exists() {
		prompt := usage.Get("prompt_tokens").Int()
		completion := usage.Get("completion_tokens").Int()
		out, _ = sjson.SetBytes(out, "usageMetadata.promptTokenCount", prompt)
		out, _ = sjson.SetBytes(out, "usageMetadata.candidatesTokenCount", completion)
		out, _ = sjson.SetBytes(out, "usageMetadata.totalTokenCount", prompt+completion)
	}
	return out
}

// OpenAIChunkToGeminiNative translates one OpenAI SSE line into a
// Gemini-native SSE event. Non-data lines and the [DONE] sentinel
// return nil; Gemini streams end when the connection closes.
func OpenAIChunkToGeminiNative(model string, line []byte) []byte {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, []byte("data: ")) {
		return nil
	}
	payload := bytes.TrimPrefix(line, []byte("data: "))
	if bytes.Equal(payload, []byte("[DONE]")) {
		return nil
	}

	delta := gjson.GetBytes(payload, "choices.0.delta")
	finishReason := gjson.GetBytes(payload, "choices.0.finish_reason")
	if !delta.Exists() && !finishReason.Exists() {
		return nil
	}

	parts := openAIMessageParts(delta.Get("content"), delta.Get("tool_calls"))
	candidate := []byte(`{"content":{"role":"model"},"index":0}`)
	candidate, _ = sjson.SetRawBytes(candidate, "content.parts", parts)
	if finishReason.Exists() && finishReason.Type == gjson.String {
		finish := "STOP"
		if finishReason.String() == "length" {
			finish = "MAX_TOKENS"
		}
		candidate, _ = sjson.SetBytes(candidate, "finishReason", finish)
	}

	out := []byte(`{"candidates":[]}`)
	out, _ = sjson.SetRawBytes(out, "candidates.-1", candidate)
	out, _ = sjson.SetBytes(out, "modelVersion", model)

	framed := make([]byte, 0, len(out)+10)
	framed = append(framed, "data: "...)
	framed = append(framed, out...)
	framed = append(framed, "\r\n\r\n"...)
	return framed
}

// openAIMessageParts maps message or delta content and tool_calls to
// Gemini parts. Empty content still yields one empty text part so the
// candidate is well-formed.
func openAIMessageParts(content, toolCalls gjson.Result) []byte {
	parts := []byte(`[]`)
	if content.Type == gjson.String && content.String() != "" {
		part, _ := sjson.Set(`{}`, "text", content.String())
		parts, _ = sjson.SetRawBytes(parts, "-1", []byte(part))
	}
	for _, call := range toolCalls.Array() {
		name := call.Get("function.name").String()
		argsRaw := call.Get("function.arguments").String()
		if name == "" && argsRaw == "" {
			continue
		}
		part := []byte(`{}`)
		part, _ = sjson.SetBytes(part, "functionCall.name", name)
		args := "{}"
		if argsRaw != "" && gjson.Valid(argsRaw) {
			args = argsRaw
		}
		part, _ = sjson.SetRawBytes(part, "functionCall.args", []byte(args))
		parts, _ = sjson.SetRawBytes(parts, "-1", part)
	}
	if gjson.GetBytes(parts, "#").Int() == 0 {
		parts = []byte(`[{"text":""}]`)
	}
	return parts
}
