package translator

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// OpenAIToClaude converts an OpenAI chat-completion request into an
// Anthropic Messages request. System messages move to the top-level
// system string, tool results are batched into a single user message
// of tool_result blocks, and assistant tool_calls become tool_use
// content blocks.
func OpenAIToClaude(model string, body []byte) []byte {
	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "model", model)

	maxTokens := int64(4096)
	if mt := gjson.GetBytes(body, "max_tokens"); mt.Exists() {
		maxTokens = mt.Int()
	}
	out, _ = sjson.SetBytes(out, "max_tokens", maxTokens)
	if t := gjson.GetBytes(body, "temperature"); t.Exists() {
		out, _ = sjson.SetBytes(out, "temperature", t.Num)
	}
	if s := gjson.GetBytes(body, "stream"); s.Exists() {
		out, _ = sjson.SetBytes(out, "stream", s.Bool())
	}

	var systems []string
	messages := []byte(`[]`)
	pendingTools := []byte(`[]`)
	pendingCount := 0

	flushTools := func() {
		if pendingCount == 0 {
			return
		}
		msg := []byte(`{"role":"user"}`)
		msg, _ = sjson.SetRawBytes(msg, "content", pendingTools)
		messages, _ = sjson.SetRawBytes(messages, "-1", msg)
		pendingTools = []byte(`[]`)
		pendingCount = 0
	}

	for _, m := range gjson.GetBytes(body, "messages").Array() {
		role := m.Get("role").String()
		switch role {
		case "system":
			systems = append(systems, m.Get("content").String())
		case "tool":
			block := []byte(`{"type":"tool_result"}`)
			block, _ = sjson.SetBytes(block, "tool_use_id", m.Get("tool_call_id").String())
			block, _ = sjson.SetBytes(block, "content", m.Get("content").String())
			pendingTools, _ = sjson.SetRawBytes(pendingTools, "-1", block)
			pendingCount++
		case "assistant":
			flushTools()
			if calls := m.Get("tool_calls"); calls.IsArray() {
				messages, _ = sjson.SetRawBytes(messages, "-1", assistantToolUse(m, calls))
				continue
			}
			messages, _ = sjson.SetRawBytes(messages, "-1", plainMessage(role, m.Get("content")))
		default:
			flushTools()
			messages, _ = sjson.SetRawBytes(messages, "-1", plainMessage(role, m.Get("content")))
		}
	}
	flushTools()

	if len(systems) > 0 {
		out, _ = sjson.SetBytes(out, "system", strings.Join(systems, "\n"))
	}
	out, _ = sjson.SetRawBytes(out, "messages", messages)
	out = claudeTools(out, body)
	return out
}

// assistantToolUse rebuilds an assistant message as Claude content
// blocks: an optional leading text block followed by one tool_use
// block per call. Arguments that fail to parse fall back to {}.
func assistantToolUse(m, calls gjson.Result) []byte {
	content := []byte(`[]`)
	if text := m.Get("content").String(); text != "" {
		block, _ := sjson.Set(`{"type":"text"}`, "text", text)
		content, _ = sjson.SetRawBytes(content, "-1", []byte(block))
	}
	for _, call := range calls.Array() {
		block := []byte(`{"type":"tool_use"}`)
		block, _ = sjson.SetBytes(block, "id", call.Get("id").String())
		block, _ = sjson.SetBytes(block, "name", call.Get("function.name").String())
		input := "{}"
		if args := call.Get("function.arguments").String(); args != "" && gjson.Valid(args) {
			input = args
		}
		block, _ = sjson.SetRawBytes(block, "input", []byte(input))
		content, _ = sjson.SetRawBytes(content, "-1", block)
	}
	msg := []byte(`{"role":"assistant"}`)
	msg, _ = sjson.SetRawBytes(msg, "content", content)
	return msg
}

func plainMessage(role string, content gjson.Result) []byte {
	msg := []byte(`{}`)
	msg, _ = sjson.SetBytes(msg, "role", role)
	if content.Exists() {
		msg, _ = sjson.SetRawBytes(msg, "content", []byte(content.Raw))
	} else {
		msg, _ = sjson.SetBytes(msg, "content", "")
	}
	return msg
}

// claudeTools maps OpenAI tool definitions and tool_choice to the
// Claude equivalents.
func claudeTools(out, body []byte) []byte {
	tools := gjson.GetBytes(body, "tools")
	if tools.IsArray() && len(tools.Array()) > 0 {
		converted := []byte(`[]`)
		for _, t := range tools.Array() {
			fn := t.Get("function")
			tool := []byte(`{}`)
			tool, _ = sjson.SetBytes(tool, "name", fn.Get("name").String())
			if desc := fn.Get("description"); desc.Exists() {
				tool, _ = sjson.SetBytes(tool, "description", desc.String())
			}
			schema := `{"type":"object"}`
			if params := fn.Get("parameters"); params.Exists() {
				schema = params.Raw
			}
			tool, _ = sjson.SetRawBytes(tool, "input_schema", []byte(schema))
			converted, _ = sjson.SetRawBytes(converted, "-1", tool)
		}
		out, _ = sjson.SetRawBytes(out, "tools", converted)
	}

	choice := gjson.GetBytes(body, "tool_choice")
	switch {
	case choice.Type == gjson.String && choice.String() == "auto":
		out, _ = sjson.SetRawBytes(out, "tool_choice", []byte(`{"type":"auto"}`))
	case choice.Type == gjson.String && choice.String() == "required":
		out, _ = sjson.SetRawBytes(out, "tool_choice", []byte(`{"type":"any"}`))
	case choice.IsObject():
		if name := choice.Get("function.name").String(); name != "" {
			tc, _ := sjson.Set(`{"type":"tool"}`, "name", name)
			out, _ = sjson.SetRawBytes(out, "tool_choice", []byte(tc))
		}
	}
	return out
}
