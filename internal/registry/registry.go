// Package registry carries the static model lists and the model-name
// to provider resolution rules.
package registry

import (
	"strings"

	"github.com/byokey/byokey/internal/byok"
)

// models maps each provider to its advertised model identifiers.
// Factory is backend-only and advertises nothing.
var models = map[byok.Provider][]string{
	byok.ProviderClaude: {
		"claude-opus-4-6",
		"claude-opus-4-5",
		"claude-sonnet-4-5",
		"claude-haiku-4-5-20251001",
	},
	byok.ProviderCodex: {
		"o4-mini",
		"o3",
		"gpt-4-turbo",
		"gpt-4",
	},
	byok.ProviderGemini: {
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
	},
	byok.ProviderAntigravity: {
		"ag-gemini-2.5-pro",
		"ag-gemini-2.5-flash",
	},
	byok.ProviderCopilot: {
		"gpt-4o",
		"gpt-4.1",
		"gpt-5-mini",
		"gpt-5.1",
		"raptor-mini",
		"goldeneye",
		"grok-code-fast-1",
	},
	byok.ProviderKiro: {
		"kiro-default",
		"kiro-claude-sonnet-4-5",
	},
	byok.ProviderQwen: {
		"qwen3-coder-plus",
		"qwen3-coder-flash",
	},
	byok.ProviderKimi: {
		"kimi-k2",
		"kimi-k2-thinking",
	},
	byok.ProviderIFlow: {
		"glm-4.6",
		"glm-4.5",
		"kimi-k2",
		"kimi-k2-thinking",
	},
	byok.ProviderFactory: nil,
}

// copilotModels is the membership set for Copilot resolution; gpt-5.*
// is additionally matched by prefix.
var copilotModels = map[string]bool{
	"gpt-4o":           true,
	"gpt-4.1":          true,
	"gpt-5-mini":       true,
	"raptor-mini":      true,
	"goldeneye":        true,
	"grok-code-fast-1": true,
}

var codexModels = map[string]bool{
	"o4-mini":     true,
	"o3":          true,
	"gpt-4-turbo": true,
	"gpt-4":       true,
}

// Models returns the advertised model list for a provider.
func Models(provider byok.Provider) []string {
	return models[provider]
}

// ResolveProvider maps a model string to its backing provider. Prefix
// rules run before membership sets; thinking suffixes must already be
// stripped by the caller.
func ResolveProvider(model string) (byok.Provider, error) {
	switch {
	case strings.HasPrefix(model, "ag-"):
		return byok.ProviderAntigravity, nil
	case strings.HasPrefix(model, "claude-"):
		return byok.ProviderClaude, nil
	case strings.HasPrefix(model, "gemini-"):
		return byok.ProviderGemini, nil
	case strings.HasPrefix(model, "kiro-"):
		return byok.ProviderKiro, nil
	case strings.HasPrefix(model, "qwen"):
		return byok.ProviderQwen, nil
	case strings.HasPrefix(model, "glm-"), strings.HasPrefix(model, "kimi-"):
		return byok.ProviderIFlow, nil
	case copilotModels[model], strings.HasPrefix(model, "gpt-5."):
		return byok.ProviderCopilot, nil
	case codexModels[model]:
		return byok.ProviderCodex, nil
	}
	return "", byok.NewError(byok.ErrUnsupportedModel, model)
}
