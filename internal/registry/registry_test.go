package registry

import (
	"testing"

	"github.com/byokey/byokey/internal/byok"
)

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		model string
		want  byok.Provider
	}{
		{"claude-opus-4-5", byok.ProviderClaude},
		{"ag-gemini-2.5-pro", byok.ProviderAntigravity},
		{"gemini-2.5-flash", byok.ProviderGemini},
		{"kiro-default", byok.ProviderKiro},
		{"qwen3-coder-plus", byok.ProviderQwen},
		{"glm-4.6", byok.ProviderIFlow},
		{"kimi-k2", byok.ProviderIFlow},
		{"gpt-4o", byok.ProviderCopilot},
		{"gpt-5.1", byok.ProviderCopilot},
		{"grok-code-fast-1", byok.ProviderCopilot},
		{"o3", byok.ProviderCodex},
		{"gpt-4-turbo", byok.ProviderCodex},
	}
	for _, tt := range tests {
		got, err := ResolveProvider(tt.model)
		if err != nil {
			t.Errorf("ResolveProvider(%q): %v", tt.model, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveProvider(%q) = %s, want %s", tt.model, got, tt.want)
		}
	}
}

func TestResolveProviderUnknown(t *testing.T) {
	_, err := ResolveProvider("nonexistent-model-xyz")
	if be := byok.AsError(err); be.Kind != byok.ErrUnsupportedModel {
		t.Fatalf("kind = %v, want ErrUnsupportedModel", be.Kind)
	}
}

func TestModelsResolveToOwner(t *testing.T) {
	// Every advertised model must resolve back to a provider.
	for _, provider := range byok.Providers {
		for _, m := range Models(provider) {
			if _, err := ResolveProvider(m); err != nil {
				t.Errorf("model %q of %s does not resolve: %v", m, provider, err)
			}
		}
	}
}
