package translator

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// codexToolNameMax caps tool names; the Responses API rejects longer.
const codexToolNameMax = 64

// OpenAIToCodex converts an OpenAI chat-completion request into a
// Codex Responses request. System messages become the top-level
// instructions string; tool calls and tool results become standalone
// input items.
func OpenAIToCodex(model string, body []byte, stream bool) []byte {
	out := []byte(`{"input":[]}`)
	out, _ = sjson.SetBytes(out, "model", model)
	out, _ = sjson.SetBytes(out, "stream", stream)
	out, _ = sjson.SetRawBytes(out, "include", []byte(`["reasoning.encrypted_content"]`))

	var instructions []string
	for _, m := range gjson.GetBytes(body, "messages").Array() {
		role := m.Get("role").String()
		switch role {
		case "system":
			instructions = append(instructions, m.Get("content").String())
		case "tool":
			item := []byte(`{"type":"function_call_output"}`)
			item, _ = sjson.SetBytes(item, "call_id", m.Get("tool_call_id").String())
			item, _ = sjson.SetBytes(item, "output", m.Get("content").String())
			out, _ = sjson.SetRawBytes(out, "input.-1", item)
		default:
			if content := m.Get("content"); content.Exists() && content.Type != gjson.Null {
				out, _ = sjson.SetRawBytes(out, "input.-1", codexMessage(role, content))
			}
			for _, call := range m.Get("tool_calls").Array() {
				item := []byte(`{"type":"function_call"}`)
				item, _ = sjson.SetBytes(item, "call_id", call.Get("id").String())
				item, _ = sjson.SetBytes(item, "name", truncateName(call.Get("function.name").String()))
				item, _ = sjson.SetBytes(item, "arguments", call.Get("function.arguments").String())
				out, _ = sjson.SetRawBytes(out, "input.-1", item)
			}
		}
	}
	if len(instructions) > 0 {
		out, _ = sjson.SetBytes(out, "instructions", strings.Join(instructions, "\n"))
	}

	if mt := gjson.GetBytes(body, "max_tokens"); mt.Exists() {
		out, _ = sjson.SetBytes(out, "max_output_tokens", mt.Int())
	}
	if t := gjson.GetBytes(body, "temperature"); t.Exists() {
		out, _ = sjson.SetBytes(out, "temperature", t.Num)
	}
	out = codexTools(out, body)
	return out
}

// codexMessage builds a {type: "message"} input item. Assistant text
// uses output_text parts, everything else input_text.
func codexMessage(role string, content gjson.Result) []byte {
	textType := "input_text"
	if role == "assistant" {
		textType = "output_text"
	}
	item := []byte(`{"type":"message","content":[]}`)
	item, _ = sjson.SetBytes(item, "role", role)

	if content.Type == gjson.String {
		part, _ := sjson.Set(`{}`, "type", textType)
		part, _ = sjson.Set(part, "text", content.String())
		item, _ = sjson.SetRawBytes(item, "content.-1", []byte(part))
		return item
	}
	for _, block := range content.Array() {
		switch block.Get("type").String() {
		case "text":
			part, _ := sjson.Set(`{}`, "type", textType)
			part, _ = sjson.Set(part, "text", block.Get("text").String())
			item, _ = sjson.SetRawBytes(item, "content.-1", []byte(part))
		case "image_url":
			part, _ := sjson.Set(`{"type":"input_image"}`, "image_url", block.Get("image_url.url").String())
			item, _ = sjson.SetRawBytes(item, "content.-1", []byte(part))
		default:
			item, _ = sjson.SetRawBytes(item, "content.-1", []byte(block.Raw))
		}
	}
	return item
}

// codexTools flattens OpenAI tool definitions: the Responses API takes
// name/description/parameters at the top level of each tool.
func codexTools(out, body []byte) []byte {
	tools := gjson.GetBytes(body, "tools")
	if !tools.IsArray() || len(tools.Array()) == 0 {
		return out
	}
	flat := []byte(`[]`)
	for _, t := range tools.Array() {
		fn := t.Get("function")
		tool := []byte(`{"type":"function"}`)
		tool, _ = sjson.SetBytes(tool, "name", truncateName(fn.Get("name").String()))
		if desc := fn.Get("description"); desc.Exists() {
			tool, _ = sjson.SetBytes(tool, "description", desc.String())
		}
		if params := fn.Get("parameters"); params.Exists() {
			tool, _ = sjson.SetRawBytes(tool, "parameters", []byte(params.Raw))
		}
		flat, _ = sjson.SetRawBytes(flat, "-1", tool)
	}
	out, _ = sjson.SetRawBytes(out, "tools", flat)
	return out
}

func truncateName(name string) string {
	if len(name) > codexToolNameMax {
		return name[:codexToolNameMax]
	}
	return name
}
