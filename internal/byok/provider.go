// Package byok defines the core value types shared across the gateway:
// provider identifiers, OAuth token records, and the error taxonomy used
// by the store, auth, translator, executor, and API layers.
package byok

import "fmt"

// Provider identifies one of the ten supported upstream AI providers.
type Provider string

const (
	ProviderClaude      Provider = "claude"
	ProviderCodex       Provider = "codex"
	ProviderGemini      Provider = "gemini"
	ProviderAntigravity Provider = "antigravity"
	ProviderCopilot     Provider = "copilot"
	ProviderKiro        Provider = "kiro"
	ProviderQwen        Provider = "qwen"
	ProviderKimi        Provider = "kimi"
	ProviderIFlow       Provider = "iflow"
	ProviderFactory     Provider = "factory"
)

// Providers lists every supported provider in canonical order.
var Providers = []Provider{
	ProviderClaude,
	ProviderCodex,
	ProviderGemini,
	ProviderAntigravity,
	ProviderCopilot,
	ProviderKiro,
	ProviderQwen,
	ProviderKimi,
	ProviderIFlow,
	ProviderFactory,
}

// providerAliases maps well-known alternate names onto canonical providers.
var providerAliases = map[string]Provider{
	"anthropic": ProviderClaude,
	"openai":    ProviderCodex,
	"google":    ProviderGemini,
	"github":    ProviderCopilot,
	"moonshot":  ProviderKimi,
	"zai":       ProviderIFlow,
	"glm":       ProviderIFlow,
	"alibaba":   ProviderQwen,
	"droid":     ProviderFactory,
}

// ParseProvider resolves a provider name or alias to its canonical Provider.
// Unknown names fail with an UnsupportedModel error.
func ParseProvider(name string) (Provider, error) {
	for _, p := range Providers {
		if string(p) == name {
			return p, nil
		}
	}
	if p, ok := providerAliases[name]; ok {
		return p, nil
	}
	return "", NewError(ErrUnsupportedModel, fmt.Sprintf("unknown provider: %s", name))
}

func (p Provider) String() string { return string(p) }
