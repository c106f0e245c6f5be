package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/byokey/byokey/internal/byok"
)

// factoryProviderRoutes maps the public provider segment to Factory's
// internal single-letter route.
var factoryProviderRoutes = map[string]string{
	"anthropic": "a",
	"openai":    "o",
	"google":    "g",
}

// handleFactoryProxy forwards /factory/<provider>/<path> to the
// Factory.ai LLM proxy with the stored Factory credential.
func (s *Server) handleFactoryProxy(c *gin.Context) {
	segment := c.Param("provider")
	route, ok := factoryProviderRoutes[segment]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": apiError{"unknown factory provider: " + segment, "invalid_request_error", "not_found"}})
		return
	}

	cfg := s.cfg.Current()
	token := cfg.Provider(byok.ProviderFactory).APIKey
	if token == "" {
		stored, err := s.auth.GetToken(c.Request.Context(), byok.ProviderFactory)
		if err != nil {
			writeError(c, err)
			return
		}
		token = stored.AccessToken
	}

	target := "https://api.factory.ai/api/llm/" + route + strings.TrimSuffix(c.Param("path"), "/")
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
	if err != nil {
		writeError(c, byok.HTTPError("cannot build proxy request"))
		return
	}
	copyProxyHeaders(req.Header, c.Request.Header)
	req.Header.Del("Authorization")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "factory-cli/0.62.1")
	req.Header.Set("x-api-provider", segment)
	req.Header.Set("x-session-id", uuid.NewString())
	req.Header.Set("x-assistant-message-id", uuid.NewString())

	resp, err := s.http.Do(req)
	if err != nil {
		writeError(c, byok.WrapError(byok.ErrHTTP, "factory upstream request failed", err))
		return
	}
	relayResponse(c, resp)
}
