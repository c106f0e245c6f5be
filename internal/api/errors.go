// Package api provides the HTTP ingress for the gateway: the
// OpenAI-compatible chat surface, the Anthropic-native passthrough,
// the Amp and Factory proxies, and the management endpoints.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/byokey/byokey/internal/byok"
)

// apiError is the OpenAI-compatible error body.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// classify maps a gateway error to its HTTP status and client-visible
// error type and code.
func classify(err *byok.Error) (int, apiError) {
	msg := err.Error()
	switch err.Kind {
	case byok.ErrAuth:
		return http.StatusUnauthorized, apiError{msg, "authentication_error", "invalid_api_key"}
	case byok.ErrTokenNotFound, byok.ErrTokenExpired:
		return http.StatusUnauthorized, apiError{msg, "authentication_error", "token_not_found"}
	case byok.ErrUnsupportedModel:
		return http.StatusBadRequest, apiError{msg, "invalid_request_error", "model_not_found"}
	case byok.ErrTranslation:
		return http.StatusBadRequest, apiError{msg, "invalid_request_error", "translation_error"}
	case byok.ErrHTTP:
		switch {
		case strings.Contains(msg, "429"):
			return http.StatusTooManyRequests, apiError{msg, "rate_limit_error", "rate_limit_exceeded"}
		case strings.Contains(msg, "401"):
			return http.StatusUnauthorized, apiError{msg, "authentication_error", "invalid_api_key"}
		case strings.Contains(msg, "403"):
			return http.StatusForbidden, apiError{msg, "permission_error", "insufficient_quota"}
		}
		return http.StatusBadGateway, apiError{msg, "server_error", "upstream_error"}
	case byok.ErrUpstream:
		status := err.Status
		if status < 100 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, apiError{msg, "server_error", "upstream_error"}
	default:
		return http.StatusInternalServerError, apiError{msg, "server_error", "internal_error"}
	}
}

// writeError renders an error as the OpenAI-compatible JSON body.
func writeError(c *gin.Context, err error) {
	status, body := classify(byok.AsError(err))
	c.JSON(status, gin.H{"error": body})
}
