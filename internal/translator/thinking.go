// Package translator converts chat payloads between the OpenAI,
// Anthropic, Gemini and Codex wire formats. Every function is a pure
// value transformation over raw JSON bytes using gjson for lookups and
// sjson for construction; no translator performs I/O.
package translator

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/byokey/byokey/internal/byok"
)

// claudeThinkingCap is the hard upper bound Anthropic accepts for
// budget_tokens.
const claudeThinkingCap = 32000

// ThinkingLevel is a named reasoning-effort tier.
type ThinkingLevel string

const (
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
)

// levelBudgets maps named tiers to token budgets for providers that
// only understand numeric budgets.
var levelBudgets = map[ThinkingLevel]int64{
	ThinkingLow:    4096,
	ThinkingMedium: 16384,
	ThinkingHigh:   32768,
}

// ThinkingConfig is a parsed thinking directive from a model-name
// suffix. Exactly one of the three shapes holds: a numeric budget, a
// named level, or disabled.
type ThinkingConfig struct {
	Budget   int64
	Level    ThinkingLevel
	Disabled bool
}

// budget resolves the config to a numeric token budget.
func (c ThinkingConfig) budget() int64 {
	if c.Level != "" {
		return levelBudgets[c.Level]
	}
	return c.Budget
}

// effort resolves the config to a named effort tier.
func (c ThinkingConfig) effort() ThinkingLevel {
	if c.Level != "" {
		return c.Level
	}
	switch {
	case c.Budget <= 4096:
		return ThinkingLow
	case c.Budget <= 16384:
		return ThinkingMedium
	default:
		return ThinkingHigh
	}
}

// ParseModelSuffix splits a thinking directive off a model name. Two
// grammars are recognized: a parenthesized value such as
// "claude-opus-4-5(16384)" or "model(high)", and the legacy
// "-thinking-<N>" suffix. The returned model has the suffix removed;
// cfg is nil when the name carries no directive.
func ParseModelSuffix(model string) (string, *ThinkingConfig) {
	if strings.HasSuffix(model, ")") {
		if open := strings.LastIndex(model, "("); open > 0 {
			value := model[open+1 : len(model)-1]
			if cfg := parseThinkingValue(value); cfg != nil {
				return model[:open], cfg
			}
		}
	}
	if idx := strings.LastIndex(model, "-thinking-"); idx >= 0 {
		suffix := model[idx+len("-thinking-"):]
		if n, err := strconv.ParseInt(suffix, 10, 64); err == nil && n >= 0 {
			return model[:idx], &ThinkingConfig{Budget: n}
		}
	}
	return model, nil
}

func parseThinkingValue(value string) *ThinkingConfig {
	switch value {
	case "low":
		return &ThinkingConfig{Level: ThinkingLow}
	case "medium", "med":
		return &ThinkingConfig{Level: ThinkingMedium}
	case "high":
		return &ThinkingConfig{Level: ThinkingHigh}
	case "none", "disabled", "off":
		return &ThinkingConfig{Disabled: true}
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil && n >= 0 {
		return &ThinkingConfig{Budget: n}
	}
	return nil
}

// ApplyThinking writes the thinking directive into a provider request
// body. The body is assumed to already be in the provider's native
// format; the fields touched differ per provider.
func ApplyThinking(provider byok.Provider, body []byte, cfg *ThinkingConfig) []byte {
	if cfg == nil {
		return body
	}
	if cfg.Disabled {
		return stripThinking(body)
	}
	switch provider {
	case byok.ProviderClaude, byok.ProviderKiro:
		return applyClaudeThinking(body, cfg.budget())
	case byok.ProviderCodex:
		body, _ = sjson.SetBytes(body, "reasoning.effort", string(cfg.effort()))
		return body
	case byok.ProviderGemini, byok.ProviderAntigravity:
		body, _ = sjson.SetBytes(body, "generationConfig.thinkingConfig.thinkingBudget", cfg.budget())
		return body
	default:
		body, _ = sjson.SetBytes(body, "reasoning_effort", string(cfg.effort()))
		return body
	}
}

// applyClaudeThinking caps the budget and raises max_tokens so the
// model keeps headroom to answer after thinking.
func applyClaudeThinking(body []byte, budget int64) []byte {
	effective := budget
	if effective > claudeThinkingCap {
		effective = claudeThinkingCap
	}
	headroom := effective / 10
	if headroom < 1024 {
		headroom = 1024
	}
	if gjson.GetBytes(body, "max_tokens").Int() <= effective {
		body, _ = sjson.SetBytes(body, "max_tokens", effective+headroom)
	}
	body, _ = sjson.SetRawBytes(body, "thinking", []byte(`{"type":"enabled","budget_tokens":`+strconv.FormatInt(effective, 10)+`}`))
	return body
}

func stripThinking(body []byte) []byte {
	for _, path := range []string{
		"thinking",
		"reasoning",
		"reasoning_effort",
		"generationConfig.thinkingConfig",
	} {
		if gjson.GetBytes(body, path).Exists() {
			body, _ = sjson.DeleteBytes(body, path)
		}
	}
	return body
}
