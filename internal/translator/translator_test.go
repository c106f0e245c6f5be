package translator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/byokey/byokey/internal/byok"
)

func TestParseModelSuffix(t *testing.T) {
	tests := []struct {
		in    string
		model string
		cfg   *ThinkingConfig
	}{
		{"claude-opus-4-5(16384)", "claude-opus-4-5", &ThinkingConfig{Budget: 16384}},
		{"model(high)", "model", &ThinkingConfig{Level: ThinkingHigh}},
		{"model(med)", "model", &ThinkingConfig{Level: ThinkingMedium}},
		{"model(off)", "model", &ThinkingConfig{Disabled: true}},
		{"claude-opus-4-5-thinking-10000", "claude-opus-4-5", &ThinkingConfig{Budget: 10000}},
		{"claude-opus-4-5", "claude-opus-4-5", nil},
		{"gpt-4o", "gpt-4o", nil},
	}
	for _, tt := range tests {
		model, cfg := ParseModelSuffix(tt.in)
		if model != tt.model {
			t.Errorf("parse(%q) model = %q, want %q", tt.in, model, tt.model)
		}
		if (cfg == nil) != (tt.cfg == nil) {
			t.Errorf("parse(%q) cfg = %+v, want %+v", tt.in, cfg, tt.cfg)
			continue
		}
		if cfg != nil && *cfg != *tt.cfg {
			t.Errorf("parse(%q) cfg = %+v, want %+v", tt.in, cfg, tt.cfg)
		}
	}
}

func TestApplyClaudeThinkingRaisesMaxTokens(t *testing.T) {
	body := []byte(`{"model":"claude-opus-4-5","max_tokens":4096}`)
	out := ApplyThinking(byok.ProviderClaude, body, &ThinkingConfig{Budget: 16384})
	if got := gjson.GetBytes(out, "thinking.budget_tokens").Int(); got != 16384 {
		t.Fatalf("budget_tokens = %d", got)
	}
	// 16384 + max(16384/10, 1024)
	if got := gjson.GetBytes(out, "max_tokens").Int(); got != 16384+1638 {
		t.Fatalf("max_tokens = %d", got)
	}
}

func TestApplyClaudeThinkingCap(t *testing.T) {
	out := ApplyThinking(byok.ProviderClaude, []byte(`{}`), &ThinkingConfig{Budget: 50000})
	if got := gjson.GetBytes(out, "thinking.budget_tokens").Int(); got != 32000 {
		t.Fatalf("budget_tokens = %d, want capped 32000", got)
	}
}

func TestApplyThinkingPerProvider(t *testing.T) {
	cfg := &ThinkingConfig{Level: ThinkingHigh}
	out := ApplyThinking(byok.ProviderCodex, []byte(`{}`), cfg)
	if got := gjson.GetBytes(out, "reasoning.effort").String(); got != "high" {
		t.Fatalf("codex effort = %q", got)
	}
	out = ApplyThinking(byok.ProviderGemini, []byte(`{}`), cfg)
	if got := gjson.GetBytes(out, "generationConfig.thinkingConfig.thinkingBudget").Int(); got != 32768 {
		t.Fatalf("gemini budget = %d", got)
	}
	out = ApplyThinking(byok.ProviderCopilot, []byte(`{}`), cfg)
	if got := gjson.GetBytes(out, "reasoning_effort").String(); got != "high" {
		t.Fatalf("copilot effort = %q", got)
	}
}

func TestApplyThinkingDisabledStripsFields(t *testing.T) {
	body := []byte(`{"thinking":{"type":"enabled"},"reasoning_effort":"high"}`)
	out := ApplyThinking(byok.ProviderClaude, body, &ThinkingConfig{Disabled: true})
	if gjson.GetBytes(out, "thinking").Exists() || gjson.GetBytes(out, "reasoning_effort").Exists() {
		t.Fatalf("thinking fields survived: %s", out)
	}
}

func TestOpenAIToClaudeBasic(t *testing.T) {
	body := []byte(`{"model":"claude-opus-4-5","messages":[{"role":"system","content":"You are helpful."},{"role":"user","content":"Hi"}]}`)
	out := OpenAIToClaude("claude-opus-4-5", body)
	if got := gjson.GetBytes(out, "system").String(); got != "You are helpful." {
		t.Fatalf("system = %q", got)
	}
	if got := gjson.GetBytes(out, "messages.#").Int(); got != 1 {
		t.Fatalf("messages.len = %d, want 1", got)
	}
	if got := gjson.GetBytes(out, "messages.0.role").String(); got != "user" {
		t.Fatalf("role = %q", got)
	}
	if got := gjson.GetBytes(out, "max_tokens").Int(); got != 4096 {
		t.Fatalf("max_tokens = %d, want default 4096", got)
	}
}

func TestOpenAIToClaudeToolResults(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"weather?"},
		{"role":"assistant","content":"checking","tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"SF\"}"}}]},
		{"role":"tool","tool_call_id":"call_1","content":"sunny"},
		{"role":"tool","tool_call_id":"call_2","content":"warm"},
		{"role":"user","content":"thanks"}
	]}`)
	out := OpenAIToClaude("claude-opus-4-5", body)

	assistant := gjson.GetBytes(out, "messages.1.content")
	if got := assistant.Get("0.type").String(); got != "text" {
		t.Fatalf("first block = %q, want text", got)
	}
	if got := assistant.Get("1.type").String(); got != "tool_use" {
		t.Fatalf("second block = %q, want tool_use", got)
	}
	if got := assistant.Get("1.input.city").String(); got != "SF" {
		t.Fatalf("input.city = %q", got)
	}

	// Two buffered tool results flush as one user message.
	results := gjson.GetBytes(out, "messages.2")
	if got := results.Get("role").String(); got != "user" {
		t.Fatalf("flush role = %q", got)
	}
	if got := results.Get("content.#").Int(); got != 2 {
		t.Fatalf("tool_result count = %d", got)
	}
	if got := results.Get("content.0.tool_use_id").String(); got != "call_1" {
		t.Fatalf("tool_use_id = %q", got)
	}
	if got := gjson.GetBytes(out, "messages.3.content").String(); got != "thanks" {
		t.Fatalf("trailing user = %q", got)
	}
}

func TestOpenAIToClaudeToolChoice(t *testing.T) {
	body := []byte(`{"messages":[],"tools":[{"type":"function","function":{"name":"f","parameters":{"type":"object","properties":{}}}}],"tool_choice":{"type":"function","function":{"name":"f"}}}`)
	out := OpenAIToClaude("m", body)
	if got := gjson.GetBytes(out, "tool_choice.type").String(); got != "tool" {
		t.Fatalf("tool_choice.type = %q", got)
	}
	if got := gjson.GetBytes(out, "tools.0.input_schema.type").String(); got != "object" {
		t.Fatalf("input_schema = %s", gjson.GetBytes(out, "tools.0").Raw)
	}
}

func TestClaudeToOpenAIExample(t *testing.T) {
	body := []byte(`{"id":"msg_abc123","model":"claude-opus-4-5","content":[{"type":"text","text":"Hello there!"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`)
	out := ClaudeToOpenAI(body)
	if got := gjson.GetBytes(out, "choices.0.message.content").String(); got != "Hello there!" {
		t.Fatalf("content = %q", got)
	}
	if got := gjson.GetBytes(out, "choices.0.finish_reason").String(); got != "stop" {
		t.Fatalf("finish_reason = %q", got)
	}
	if id := gjson.GetBytes(out, "id").String(); !strings.HasPrefix(id, "chatcmpl-") {
		t.Fatalf("id = %q", id)
	}
	if got := gjson.GetBytes(out, "usage.total_tokens").Int(); got != 15 {
		t.Fatalf("total_tokens = %d", got)
	}
}

func TestClaudeToOpenAIToolUse(t *testing.T) {
	body := []byte(`{"id":"msg_1","content":[{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{"city":"SF"}}],"stop_reason":"tool_use"}`)
	out := ClaudeToOpenAI(body)
	if got := gjson.GetBytes(out, "choices.0.finish_reason").String(); got != "tool_calls" {
		t.Fatalf("finish_reason = %q", got)
	}
	call := gjson.GetBytes(out, "choices.0.message.tool_calls.0")
	if call.Get("id").String() != "toolu_1" || call.Get("function.name").String() != "get_weather" {
		t.Fatalf("tool call = %s", call.Raw)
	}
	if got := gjson.Get(call.Get("function.arguments").String(), "city").String(); got != "SF" {
		t.Fatalf("arguments = %q", call.Get("function.arguments").String())
	}
}

func TestHelloRoundTripClaude(t *testing.T) {
	req := []byte(`{"model":"claude-opus-4-5","messages":[{"role":"user","content":"hello"}]}`)
	claudeReq := OpenAIToClaude("claude-opus-4-5", req)
	if got := gjson.GetBytes(claudeReq, "messages.0.content").String(); got != "hello" {
		t.Fatalf("request content = %q", got)
	}
	claudeResp := []byte(`{"id":"msg_1","model":"claude-opus-4-5","content":[{"type":"text","text":"hello"}],"stop_reason":"end_turn"}`)
	out := ClaudeToOpenAI(claudeResp)
	if got := gjson.GetBytes(out, "choices.0.message.content").String(); got != "hello" {
		t.Fatalf("response content = %q", got)
	}
}

func TestMergeAdjacentMessages(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"a"},
		{"role":"user","content":"b"},
		{"role":"assistant","content":"c"},
		{"role":"tool","tool_call_id":"t","content":"x"},
		{"role":"tool","tool_call_id":"u","content":"y"}
	]}`)
	out := MergeAdjacentMessages(body)
	if got := gjson.GetBytes(out, "messages.#").Int(); got != 4 {
		t.Fatalf("messages.len = %d, want 4: %s", got, out)
	}
	first := gjson.GetBytes(out, "messages.0.content")
	if !first.IsArray() || len(first.Array()) != 2 {
		t.Fatalf("merged content = %s", first.Raw)
	}
	if first.Get("0.text").String() != "a" || first.Get("1.text").String() != "b" {
		t.Fatalf("merged text = %s", first.Raw)
	}
}

func TestMergeAdjacentIdempotent(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"a"},{"role":"user","content":"b"},{"role":"assistant","content":"c"}]}`)
	once := MergeAdjacentMessages(body)
	twice := MergeAdjacentMessages(once)
	if !bytes.Equal(once, twice) {
		t.Fatalf("merge is not idempotent:\nonce:  %s\ntwice: %s", once, twice)
	}
}

func TestInjectCacheControl(t *testing.T) {
	body := []byte(`{"system":"be nice","tools":[{"name":"a"},{"name":"b"}],"messages":[
		{"role":"user","content":"one"},
		{"role":"assistant","content":"ok"},
		{"role":"user","content":"two"}
	]}`)
	out := InjectCacheControl(body)
	if got := gjson.GetBytes(out, "tools.1.cache_control.type").String(); got != "ephemeral" {
		t.Fatalf("last tool cache = %q", got)
	}
	if gjson.GetBytes(out, "tools.0.cache_control").Exists() {
		t.Fatal("first tool should not be marked")
	}
	system := gjson.GetBytes(out, "system")
	if !system.IsArray() || system.Get("0.cache_control.type").String() != "ephemeral" {
		t.Fatalf("system = %s", system.Raw)
	}
	// Second-to-last user message is index 0 here.
	marked := gjson.GetBytes(out, "messages.0.content")
	if marked.Get("0.cache_control.type").String() != "ephemeral" {
		t.Fatalf("user checkpoint = %s", marked.Raw)
	}
	if gjson.GetBytes(out, "messages.2.content").Type != gjson.String {
		t.Fatal("last user message must stay untouched")
	}
}

func TestInjectCacheControlSingleUser(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"only"}]}`)
	out := InjectCacheControl(body)
	if gjson.GetBytes(out, "messages.0.content").Type != gjson.String {
		t.Fatal("single user message must not be rewritten")
	}
}

func TestOpenAIToGemini(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"system","content":"sys"},
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"","tool_calls":[{"id":"get_weather-1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"SF\"}"}}]},
		{"role":"tool","tool_call_id":"get_weather-1","content":"sunny"}
	],"max_tokens":100,"temperature":0.5,
	"tools":[{"type":"function","function":{"name":"get_weather","parameters":{"type":"object"}}}],
	"tool_choice":"auto"}`)
	out := OpenAIToGemini(body)

	if got := gjson.GetBytes(out, "systemInstruction.parts.0.text").String(); got != "sys" {
		t.Fatalf("systemInstruction = %q", got)
	}
	if got := gjson.GetBytes(out, "contents.0.role").String(); got != "user" {
		t.Fatalf("first role = %q", got)
	}
	call := gjson.GetBytes(out, "contents.1.parts.0.functionCall")
	if call.Get("name").String() != "get_weather" || call.Get("args.city").String() != "SF" {
		t.Fatalf("functionCall = %s", call.Raw)
	}
	fr := gjson.GetBytes(out, "contents.2.parts.0.functionResponse")
	if fr.Get("name").String() != "get_weather" || fr.Get("response.result").String() != "sunny" {
		t.Fatalf("functionResponse = %s", fr.Raw)
	}
	if got := gjson.GetBytes(out, "generationConfig.maxOutputTokens").Int(); got != 100 {
		t.Fatalf("maxOutputTokens = %d", got)
	}
	if got := gjson.GetBytes(out, "tools.0.functionDeclarations.0.name").String(); got != "get_weather" {
		t.Fatalf("declarations = %s", gjson.GetBytes(out, "tools").Raw)
	}
	if got := gjson.GetBytes(out, "toolConfig.functionCallingConfig.mode").String(); got != "AUTO" {
		t.Fatalf("mode = %q", got)
	}
}

func TestGeminiToOpenAI(t *testing.T) {
	body := []byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]},"finishReason":"MAX_TOKENS"}],"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":3}}`)
	out := GeminiToOpenAI(body)
	if got := gjson.GetBytes(out, "choices.0.message.content").String(); got != "hello" {
		t.Fatalf("content = %q", got)
	}
	if got := gjson.GetBytes(out, "choices.0.finish_reason").String(); got != "length" {
		t.Fatalf("finish_reason = %q", got)
	}
	if got := gjson.GetBytes(out, "usage.total_tokens").Int(); got != 10 {
		t.Fatalf("total = %d", got)
	}
}

func TestGeminiNativeToOpenAIRequest(t *testing.T) {
	body := []byte(`{
		"systemInstruction":{"parts":[{"text":"sys"}]},
		"contents":[
			{"role":"user","parts":[{"text":"hi"}]},
			{"role":"model","parts":[{"functionCall":{"name":"lookup","args":{"q":"x"}}}]},
			{"parts":[{"functionResponse":{"name":"lookup","response":{"result":"found"}}}]}
		],
		"generationConfig":{"maxOutputTokens":64,"temperature":0.2},
		"tools":[{"functionDeclarations":[{"name":"lookup"}]}],
		"toolConfig":{"functionCallingConfig":{"mode":"ANY","allowedFunctionNames":["lookup"]}}
	}`)
	out := GeminiNativeToOpenAI("gemini-2.5-pro", body)

	if got := gjson.GetBytes(out, "messages.0.role").String(); got != "system" {
		t.Fatalf("first role = %q", got)
	}
	call := gjson.GetBytes(out, "messages.2.tool_calls.0")
	if call.Get("id").String() != "call_0" || call.Get("function.name").String() != "lookup" {
		t.Fatalf("tool call = %s", call.Raw)
	}
	toolMsg := gjson.GetBytes(out, "messages.3")
	if toolMsg.Get("role").String() != "tool" || toolMsg.Get("tool_call_id").String() != "lookup-0" {
		t.Fatalf("tool msg = %s", toolMsg.Raw)
	}
	if got := gjson.GetBytes(out, "max_tokens").Int(); got != 64 {
		t.Fatalf("max_tokens = %d", got)
	}
	if got := gjson.GetBytes(out, "tool_choice.function.name").String(); got != "lookup" {
		t.Fatalf("tool_choice = %s", gjson.GetBytes(out, "tool_choice").Raw)
	}
}

func TestOpenAIToGeminiNativeResponse(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"role":"assistant","content":"hey"},"finish_reason":"length"}],"usage":{"prompt_tokens":4,"completion_tokens":2}}`)
	out := OpenAIToGeminiNative("gemini-2.5-pro", body)
	if got := gjson.GetBytes(out, "candidates.0.content.parts.0.text").String(); got != "hey" {
		t.Fatalf("text = %q", got)
	}
	if got := gjson.GetBytes(out, "candidates.0.finishReason").String(); got != "MAX_TOKENS" {
		t.Fatalf("finishReason = %q", got)
	}
	if got := gjson.GetBytes(out, "usageMetadata.totalTokenCount").Int(); got != 6 {
		t.Fatalf("totalTokenCount = %d", got)
	}
	if got := gjson.GetBytes(out, "modelVersion").String(); got != "gemini-2.5-pro" {
		t.Fatalf("modelVersion = %q", got)
	}
}

func TestOpenAIChunkToGeminiNative(t *testing.T) {
	out := OpenAIChunkToGeminiNative("g", []byte(`data: {"choices":[{"delta":{"content":"hi"}}]}`))
	if out == nil {
		t.Fatal("expected an event")
	}
	if !bytes.HasPrefix(out, []byte("data: ")) || !bytes.HasSuffix(out, []byte("\r\n\r\n")) {
		t.Fatalf("framing = %q", out)
	}
	payload := bytes.TrimSuffix(bytes.TrimPrefix(out, []byte("data: ")), []byte("\r\n\r\n"))
	if got := gjson.GetBytes(payload, "candidates.0.content.parts.0.text").String(); got != "hi" {
		t.Fatalf("text = %q", got)
	}

	if got := OpenAIChunkToGeminiNative("g", []byte("data: [DONE]")); got != nil {
		t.Fatalf("[DONE] must be dropped, got %q", got)
	}
	if got := OpenAIChunkToGeminiNative("g", []byte(": keepalive")); got != nil {
		t.Fatalf("non-data line must be dropped, got %q", got)
	}
}

func TestOpenAIToCodex(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"system","content":"one"},
		{"role":"system","content":"two"},
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"calling","tool_calls":[{"id":"call_9","function":{"name":"f","arguments":"{}"}}]},
		{"role":"tool","tool_call_id":"call_9","content":"out"}
	],"max_tokens":256}`)
	out := OpenAIToCodex("o3", body, true)

	if got := gjson.GetBytes(out, "instructions").String(); got != "one\ntwo" {
		t.Fatalf("instructions = %q", got)
	}
	if got := gjson.GetBytes(out, "input.0.content.0.type").String(); got != "input_text" {
		t.Fatalf("user part = %q", got)
	}
	if got := gjson.GetBytes(out, "input.1.content.0.type").String(); got != "output_text" {
		t.Fatalf("assistant part = %q", got)
	}
	fc := gjson.GetBytes(out, "input.2")
	if fc.Get("type").String() != "function_call" || fc.Get("call_id").String() != "call_9" {
		t.Fatalf("function_call item = %s", fc.Raw)
	}
	fco := gjson.GetBytes(out, "input.3")
	if fco.Get("type").String() != "function_call_output" || fco.Get("output").String() != "out" {
		t.Fatalf("function_call_output item = %s", fco.Raw)
	}
	if got := gjson.GetBytes(out, "max_output_tokens").Int(); got != 256 {
		t.Fatalf("max_output_tokens = %d", got)
	}
	if got := gjson.GetBytes(out, "include.0").String(); got != "reasoning.encrypted_content" {
		t.Fatalf("include = %s", gjson.GetBytes(out, "include").Raw)
	}
}

func TestOpenAIToCodexToolNameTruncation(t *testing.T) {
	long := strings.Repeat("x", 80)
	body := []byte(`{"messages":[],"tools":[{"type":"function","function":{"name":"` + long + `","parameters":{}}}]}`)
	out := OpenAIToCodex("o3", body, false)
	if got := gjson.GetBytes(out, "tools.0.name").String(); len(got) != 64 {
		t.Fatalf("tool name len = %d", len(got))
	}
	if gjson.GetBytes(out, "tools.0.function").Exists() {
		t.Fatal("codex tools must be flattened")
	}
}

func TestCodexToOpenAI(t *testing.T) {
	body := []byte(`{"id":"resp_1","model":"o3","output":[
		{"type":"reasoning","summary":[{"type":"summary_text","text":"thought"}]},
		{"type":"message","content":[{"type":"output_text","text":"answer"}]},
		{"type":"function_call","call_id":"call_1","name":"f","arguments":"{\"a\":1}"}
	],"usage":{"input_tokens":9,"output_tokens":4}}`)
	out := CodexToOpenAI(body)

	if got := gjson.GetBytes(out, "id").String(); got != "chatcmpl-resp_1" {
		t.Fatalf("id = %q", got)
	}
	if got := gjson.GetBytes(out, "choices.0.message.content").String(); got != "answer" {
		t.Fatalf("content = %q", got)
	}
	if got := gjson.GetBytes(out, "choices.0.message.reasoning_content").String(); got != "thought" {
		t.Fatalf("reasoning = %q", got)
	}
	if got := gjson.GetBytes(out, "choices.0.finish_reason").String(); got != "tool_calls" {
		t.Fatalf("finish_reason = %q", got)
	}
	if got := gjson.GetBytes(out, "usage.total_tokens").Int(); got != 13 {
		t.Fatalf("total = %d", got)
	}
}

func TestCodexToOpenAINullContentWithToolCalls(t *testing.T) {
	body := []byte(`{"output":[{"type":"function_call","call_id":"c","name":"f","arguments":"{}"}]}`)
	out := CodexToOpenAI(body)
	if content := gjson.GetBytes(out, "choices.0.message.content"); content.Type != gjson.Null {
		t.Fatalf("content = %s, want null", content.Raw)
	}
}

func TestClaudeStreamStateMachine(t *testing.T) {
	s := NewClaudeStream()
	upstream := "" +
		`data: {"type":"message_start","message":{"id":"msg_1","model":"claude-opus-4-5"}}` + "\n\n" +
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text"}}` + "\n\n" +
		`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hel"}}` + "\n\n" +
		`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"lo"}}` + "\n\n" +
		`data: {"type":"ping"}` + "\n\n" +
		`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"}}` + "\n\n" +
		`data: {"type":"message_stop"}` + "\n\n"

	// Feed in awkwardly split chunks to exercise line reassembly.
	var events [][]byte
	for _, chunk := range splitBytes([]byte(upstream), 17) {
		events = append(events, s.Push(chunk)...)
	}

	if !s.Done() {
		t.Fatal("stream not done")
	}
	// role chunk, two text deltas, finish chunk, [DONE]
	if len(events) != 5 {
		t.Fatalf("events = %d: %q", len(events), events)
	}
	first := payloadOf(t, events[0])
	if gjson.GetBytes(first, "choices.0.delta.role").String() != "assistant" {
		t.Fatalf("first chunk = %s", first)
	}
	if gjson.GetBytes(first, "id").String() != "chatcmpl-msg_1" {
		t.Fatalf("id = %s", gjson.GetBytes(first, "id").Raw)
	}
	if gjson.GetBytes(payloadOf(t, events[1]), "choices.0.delta.content").String() != "Hel" {
		t.Fatalf("second chunk = %s", events[1])
	}
	finish := payloadOf(t, events[3])
	if gjson.GetBytes(finish, "choices.0.finish_reason").String() != "stop" {
		t.Fatalf("finish chunk = %s", finish)
	}
	if !bytes.Equal(events[4], []byte("data: [DONE]\n\n")) {
		t.Fatalf("terminator = %q", events[4])
	}
}

func TestClaudeStreamToolCalls(t *testing.T) {
	s := NewClaudeStream()
	upstream := "" +
		`data: {"type":"message_start","message":{"id":"msg_2","model":"m"}}` + "\n" +
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"f"}}` + "\n" +
		`data: {"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"a\":"}}` + "\n" +
		`data: {"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"1}"}}` + "\n" +
		`data: {"type":"message_delta","delta":{"stop_reason":"tool_use"}}` + "\n"
	events := s.Push([]byte(upstream))
	if len(events) != 5 {
		t.Fatalf("events = %d", len(events))
	}
	open := payloadOf(t, events[1])
	call := gjson.GetBytes(open, "choices.0.delta.tool_calls.0")
	if call.Get("index").Int() != 0 || call.Get("id").String() != "toolu_1" || call.Get("function.name").String() != "f" {
		t.Fatalf("open chunk = %s", open)
	}
	argDelta := payloadOf(t, events[2])
	if got := gjson.GetBytes(argDelta, "choices.0.delta.tool_calls.0.function.arguments").String(); got != `{"a":` {
		t.Fatalf("arg delta = %q", got)
	}
	finish := payloadOf(t, events[4])
	if gjson.GetBytes(finish, "choices.0.finish_reason").String() != "tool_calls" {
		t.Fatalf("finish = %s", finish)
	}
}

func TestClaudeStreamChunkBudget(t *testing.T) {
	// N data lines in, at most N chunks plus one [DONE] out.
	s := NewClaudeStream()
	upstream := []byte("" +
		`data: {"type":"message_start","message":{"id":"m","model":"m"}}` + "\n" +
		`data: {"type":"ping"}` + "\n" +
		`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"x"}}` + "\n" +
		`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"}}` + "\n" +
		`data: {"type":"message_stop"}` + "\n")
	events := s.Push(upstream)
	done := 0
	for _, e := range events {
		if bytes.Equal(e, []byte("data: [DONE]\n\n")) {
			done++
		}
	}
	if done != 1 {
		t.Fatalf("[DONE] count = %d", done)
	}
	if len(events) > 5+1 {
		t.Fatalf("more chunks than upstream lines: %d", len(events))
	}
}

func TestAntigravityStream(t *testing.T) {
	s := NewAntigravityStream("ag-model")
	upstream := "" +
		`data: {"response":{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}}` + "\n" +
		`data: {"response":{"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}]}}` + "\n" +
		`data: [DONE]` + "\n"
	events := s.Push([]byte(upstream))
	if len(events) != 3 {
		t.Fatalf("events = %d: %q", len(events), events)
	}
	first := payloadOf(t, events[0])
	if got := gjson.GetBytes(first, "choices.0.delta.content").String(); got != "hi" {
		t.Fatalf("content = %q", got)
	}
	if got := gjson.GetBytes(first, "id").String(); got != "chatcmpl-antigravity" {
		t.Fatalf("id = %q", got)
	}
	finish := payloadOf(t, events[1])
	if got := gjson.GetBytes(finish, "choices.0.finish_reason").String(); got != "stop" {
		t.Fatalf("finish = %q", got)
	}
	if !bytes.Equal(events[2], []byte("data: [DONE]\n\n")) {
		t.Fatalf("terminator = %q", events[2])
	}
}

func TestAntigravityStreamFunctionCall(t *testing.T) {
	s := NewAntigravityStream("m")
	events := s.Push([]byte(`data: {"response":{"candidates":[{"content":{"parts":[{"functionCall":{"name":"f","args":{"a":1}}}]}}]}}` + "\n"))
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	call := gjson.GetBytes(payloadOf(t, events[0]), "choices.0.delta.tool_calls.0")
	if call.Get("function.name").String() != "f" {
		t.Fatalf("call = %s", call.Raw)
	}
	if !strings.HasPrefix(call.Get("id").String(), "f-") {
		t.Fatalf("call id = %q", call.Get("id").String())
	}
	if got := gjson.Get(call.Get("function.arguments").String(), "a").Int(); got != 1 {
		t.Fatalf("arguments = %q", call.Get("function.arguments").String())
	}
}

func TestCodexStream(t *testing.T) {
	s := NewCodexStream("o3")
	upstream := "" +
		`data: {"type":"response.reasoning_summary_text.delta","delta":"think"}` + "\n" +
		`data: {"type":"response.output_text.delta","delta":"hi"}` + "\n" +
		`data: {"type":"response.output_item.added","item":{"type":"function_call","call_id":"call_1","name":"f"}}` + "\n" +
		`data: {"type":"response.function_call_arguments.delta","delta":"{\"a\":1}"}` + "\n" +
		`data: {"type":"response.completed","response":{"id":"resp_1"}}` + "\n"
	events := s.Push([]byte(upstream))

	if !s.Done() {
		t.Fatal("stream not done")
	}
	if len(events) != 6 {
		t.Fatalf("events = %d", len(events))
	}
	if got := gjson.GetBytes(payloadOf(t, events[0]), "choices.0.delta.reasoning_content").String(); got != "think" {
		t.Fatalf("reasoning = %q", got)
	}
	if got := gjson.GetBytes(payloadOf(t, events[1]), "choices.0.delta.content").String(); got != "hi" {
		t.Fatalf("content = %q", got)
	}
	open := gjson.GetBytes(payloadOf(t, events[2]), "choices.0.delta.tool_calls.0")
	if open.Get("index").Int() != 0 || open.Get("id").String() != "call_1" {
		t.Fatalf("open = %s", open.Raw)
	}
	finish := payloadOf(t, events[4])
	if got := gjson.GetBytes(finish, "choices.0.finish_reason").String(); got != "tool_calls" {
		t.Fatalf("finish = %q", got)
	}
	if !bytes.Equal(events[5], []byte("data: [DONE]\n\n")) {
		t.Fatalf("terminator = %q", events[5])
	}
	if got := gjson.GetBytes(s.Completed(), "id").String(); got != "resp_1" {
		t.Fatalf("completed = %s", s.Completed())
	}
}

func TestCodexStreamMonotonicIndexes(t *testing.T) {
	s := NewCodexStream("o3")
	upstream := "" +
		`data: {"type":"response.output_item.added","item":{"type":"function_call","call_id":"c1","name":"a"}}` + "\n" +
		`data: {"type":"response.output_item.added","item":{"type":"function_call","call_id":"c2","name":"b"}}` + "\n" +
		`data: {"type":"response.function_call_arguments.delta","delta":"{}"}` + "\n"
	events := s.Push([]byte(upstream))
	idx := func(i int) int64 {
		return gjson.GetBytes(payloadOf(t, events[i]), "choices.0.delta.tool_calls.0.index").Int()
	}
	if idx(0) != 0 || idx(1) != 1 || idx(2) != 1 {
		t.Fatalf("indexes = %d,%d,%d", idx(0), idx(1), idx(2))
	}
}

func payloadOf(t *testing.T, event []byte) []byte {
	t.Helper()
	if !bytes.HasPrefix(event, []byte("data: ")) || !bytes.HasSuffix(event, []byte("\n\n")) {
		t.Fatalf("bad framing: %q", event)
	}
	return bytes.TrimSuffix(bytes.TrimPrefix(event, []byte("data: ")), []byte("\n\n"))
}

func splitBytes(b []byte, size int) [][]byte {
	var chunks [][]byte
	for len(b) > size {
		chunks = append(chunks, b[:size])
		b = b[size:]
	}
	return append(chunks, b)
}
