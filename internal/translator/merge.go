package translator

import (
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MergeAdjacentMessages collapses runs of consecutive user or
// assistant messages into one message whose content is a block array.
// String content is normalized to a single text block before parts are
// appended, so the operation is idempotent. Roles tool and function
// are never merged; a message carrying tool_calls ends the current run.
func MergeAdjacentMessages(body []byte) []byte {
	messages := gjson.GetBytes(body, "messages")
	if !messages.IsArray() {
		return body
	}

	merged := []byte(`[]`)
	count := 0
	lastRole := ""
	for _, m := range messages.Array() {
		role := m.Get("role").String()
		mergeable := (role == "user" || role == "assistant") &&
			!m.Get("tool_calls").Exists()
		if mergeable && role == lastRole && count > 0 {
			idx := strconv.Itoa(count - 1)
			prev := gjson.GetBytes(merged, idx)
			parts := contentBlocks(prev.Get("content"))
			parts = append(parts, contentBlocks(m.Get("content"))...)
			merged = setBlockArray(merged, idx+".content", parts)
			continue
		}
		merged, _ = sjson.SetRawBytes(merged, "-1", []byte(m.Raw))
		if mergeable {
			lastRole = role
		} else {
			lastRole = ""
		}
		count++
	}
	body, _ = sjson.SetRawBytes(body, "messages", merged)
	return body
}

// contentBlocks normalizes a message content value to a slice of raw
// block objects. A plain string becomes one text block.
func contentBlocks(content gjson.Result) []string {
	if content.IsArray() {
		blocks := make([]string, 0, len(content.Array()))
		for _, b := range content.Array() {
			blocks = append(blocks, b.Raw)
		}
		return blocks
	}
	if content.Type == gjson.String {
		block, _ := sjson.Set(`{"type":"text"}`, "text", content.String())
		return []string{block}
	}
	return nil
}

func setBlockArray(body []byte, path string, blocks []string) []byte {
	body, _ = sjson.SetRawBytes(body, path, []byte(`[]`))
	for _, b := range blocks {
		body, _ = sjson.SetRawBytes(body, path+".-1", []byte(b))
	}
	return body
}
