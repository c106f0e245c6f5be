package translator

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// OpenAIToGemini converts an OpenAI chat-completion request into a
// Gemini generateContent request. Adjacent same-role messages are
// merged first so the contents array alternates roles the way Gemini
// expects.
func OpenAIToGemini(body []byte) []byte {
	body = MergeAdjacentMessages(body)

	out := []byte(`{"contents":[]}`)
	var systems []string
	for _, m := range gjson.GetBytes(body, "messages").Array() {
		role := m.Get("role").String()
		switch role {
		case "system":
			systems = append(systems, m.Get("content").String())
		case "tool":
			out, _ = sjson.SetRawBytes(out, "contents.-1", geminiFunctionResponse(m))
		default:
			out, _ = sjson.SetRawBytes(out, "contents.-1", geminiContent(m, role))
		}
	}

	if len(systems) > 0 {
		si := []byte(`{"parts":[]}`)
		for _, s := range systems {
			part, _ := sjson.Set(`{}`, "text", s)
			si, _ = sjson.SetRawBytes(si, "parts.-1", []byte(part))
		}
		out, _ = sjson.SetRawBytes(out, "systemInstruction", si)
	}

	if mt := gjson.GetBytes(body, "max_tokens"); mt.Exists() {
		out, _ = sjson.SetBytes(out, "generationConfig.maxOutputTokens", mt.Int())
	}
	if t := gjson.GetBytes(body, "temperature"); t.Exists() {
		out, _ = sjson.SetBytes(out, "generationConfig.temperature", t.Num)
	}
	out = geminiTools(out, body)
	return out
}

// geminiContent maps a user or assistant message to one contents
// entry. Assistant tool_calls become functionCall parts.
func geminiContent(m gjson.Result, role string) []byte {
	geminiRole := "user"
	if role == "assistant" {
		geminiRole = "model"
	}
	content := []byte(`{"parts":[]}`)
	content, _ = sjson.SetBytes(content, "role", geminiRole)

	body := m.Get("content")
	if body.Type == gjson.String && body.String() != "" {
		part, _ := sjson.Set(`{}`, "text", body.String())
		content, _ = sjson.SetRawBytes(content, "parts.-1", []byte(part))
	} else if body.IsArray() {
		for _, block := range body.Array() {
			if block.Get("type").String() == "text" {
				part, _ := sjson.Set(`{}`, "text", block.Get("text").String())
				content, _ = sjson.SetRawBytes(content, "parts.-1", []byte(part))
			}
		}
	}

	for _, call := range m.Get("tool_calls").Array() {
		part := []byte(`{}`)
		part, _ = sjson.SetBytes(part, "functionCall.name", call.Get("function.name").String())
		args := "{}"
		if a := call.Get("function.arguments").String(); a != "" && gjson.Valid(a) {
			args = a
		}
		part, _ = sjson.SetRawBytes(part, "functionCall.args", []byte(args))
		content, _ = sjson.SetRawBytes(content, "parts.-1", part)
	}
	return content
}

// geminiFunctionResponse maps a tool message to a user-role content
// carrying a functionResponse part. Gemini has no tool-call id, so the
// function name is recovered from the id's leading segment.
func geminiFunctionResponse(m gjson.Result) []byte {
	name := m.Get("tool_call_id").String()
	if idx := strings.Index(name, "-"); idx > 0 {
		name = name[:idx]
	}
	content := []byte(`{"role":"user","parts":[]}`)
	part := []byte(`{}`)
	part, _ = sjson.SetBytes(part, "functionResponse.name", name)
	part, _ = sjson.SetBytes(part, "functionResponse.response.result", m.Get("content").String())
	content, _ = sjson.SetRawBytes(content, "parts.-1", part)
	return content
}

func geminiTools(out, body []byte) []byte {
	tools := gjson.GetBytes(body, "tools")
	if tools.IsArray() && len(tools.Array()) > 0 {
		decls := []byte(`[]`)
		for _, t := range tools.Array() {
			decls, _ = sjson.SetRawBytes(decls, "-1", []byte(t.Get("function").Raw))
		}
		out, _ = sjson.SetRawBytes(out, "tools.0.functionDeclarations", decls)
	}

	choice := gjson.GetBytes(body, "tool_choice")
	switch {
	case choice.Type == gjson.String && choice.String() == "auto":
		out, _ = sjson.SetBytes(out, "toolConfig.functionCallingConfig.mode", "AUTO")
	case choice.Type == gjson.String && choice.String() == "none":
		out, _ = sjson.SetBytes(out, "toolConfig.functionCallingConfig.mode", "NONE")
	case choice.IsObject():
		if name := choice.Get("function.name").String(); name != "" {
			out, _ = sjson.SetBytes(out, "toolConfig.functionCallingConfig.mode", "ANY")
			out, _ = sjson.SetBytes(out, "toolConfig.functionCallingConfig.allowedFunctionNames.0", name)
		}
	}
	return out
}
