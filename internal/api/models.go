package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/config"
	"github.com/byokey/byokey/internal/registry"
)

// modelEntry is one row of the OpenAI model listing.
type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// handleListModels advertises every model of every enabled provider,
// with exclusions and aliases from the config applied.
func (s *Server) handleListModels(c *gin.Context) {
	cfg := s.cfg.Current()

	data := make([]modelEntry, 0)
	for _, provider := range byok.Providers {
		pc := cfg.Provider(provider)
		if !pc.IsEnabled() {
			continue
		}
		excluded := make(map[string]bool, len(pc.ExcludeModels))
		for _, m := range pc.ExcludeModels {
			excluded[m] = true
		}
		for _, model := range registry.Models(provider) {
			if excluded[model] {
				continue
			}
			for _, id := range aliasNames(model, cfg.Aliases(provider)) {
				data = append(data, modelEntry{ID: id, Object: "model", OwnedBy: provider.String()})
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}

// aliasNames returns the client-facing names for a model: the alias in
// place of the canonical id, or both when the rule forks.
func aliasNames(model string, aliases []config.ModelAlias) []string {
	for _, a := range aliases {
		if a.Name != model {
			continue
		}
		if a.Fork {
			return []string{model, a.Alias}
		}
		return []string{a.Alias}
	}
	return []string{model}
}
