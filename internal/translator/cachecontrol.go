package translator

import (
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ephemeral = []byte(`{"type":"ephemeral"}`)

// InjectCacheControl marks the three prompt positions Anthropic caches
// best: the last tool definition, the last system block, and the
// second-to-last user message. Positions that already carry a
// cache_control marker are left alone. The body must be in Claude
// Messages format.
func InjectCacheControl(body []byte) []byte {
	body = cacheLastTool(body)
	body = cacheSystem(body)
	body = cacheUserCheckpoint(body)
	return body
}

func cacheLastTool(body []byte) []byte {
	tools := gjson.GetBytes(body, "tools")
	if !tools.IsArray() {
		return body
	}
	n := len(tools.Array())
	if n == 0 {
		return body
	}
	path := "tools." + strconv.Itoa(n-1)
	if gjson.GetBytes(body, path+".cache_control").Exists() {
		return body
	}
	body, _ = sjson.SetRawBytes(body, path+".cache_control", ephemeral)
	return body
}

func cacheSystem(body []byte) []byte {
	system := gjson.GetBytes(body, "system")
	switch {
	case system.Type == gjson.String:
		block, _ := sjson.Set(`{"type":"text"}`, "text", system.String())
		block, _ = sjson.SetRaw(block, "cache_control", string(ephemeral))
		body, _ = sjson.SetRawBytes(body, "system", []byte("["+block+"]"))
	case system.IsArray() && len(system.Array()) > 0:
		path := "system." + strconv.Itoa(len(system.Array())-1)
		if !gjson.GetBytes(body, path+".cache_control").Exists() {
			body, _ = sjson.SetRawBytes(body, path+".cache_control", ephemeral)
		}
	}
	return body
}

// cacheUserCheckpoint marks the second-to-last user message so the
// prefix up to the previous turn is reusable across requests.
func cacheUserCheckpoint(body []byte) []byte {
	messages := gjson.GetBytes(body, "messages")
	if !messages.IsArray() {
		return body
	}
	var userIndices []int
	for i, m := range messages.Array() {
		if m.Get("role").String() == "user" {
			userIndices = append(userIndices, i)
		}
	}
	if len(userIndices) < 2 {
		return body
	}
	target := userIndices[len(userIndices)-2]
	path := "messages." + strconv.Itoa(target) + ".content"
	content := gjson.GetBytes(body, path)
	if content.Type == gjson.String {
		block, _ := sjson.Set(`{"type":"text"}`, "text", content.String())
		block, _ = sjson.SetRaw(block, "cache_control", string(ephemeral))
		body, _ = sjson.SetRawBytes(body, path, []byte("["+block+"]"))
		return body
	}
	if content.IsArray() && len(content.Array()) > 0 {
		last := path + "." + strconv.Itoa(len(content.Array())-1)
		if !gjson.GetBytes(body, last+".cache_control").Exists() {
			body, _ = sjson.SetRawBytes(body, last+".cache_control", ephemeral)
		}
	}
	return body
}
