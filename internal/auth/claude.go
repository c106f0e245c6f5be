package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/browser"
	"github.com/byokey/byokey/internal/byok"
)

// Claude OAuth constants. The client is public; no secret exists.
const (
	claudeClientID     = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
	claudeCallbackPort = 54545
	claudeAuthURL      = "https://claude.ai/oauth/authorize"
	claudeTokenURL     = "https://console.anthropic.com/v1/oauth/token"
	claudeRedirectURI  = "http://localhost:54545/callback"
	// Only user-level scopes: org:create_api_key would trigger an API key
	// creation prompt during consent.
	claudeScope = "user:profile user:inference"
)

// BuildClaudeAuthURL builds the claude.ai authorization URL for a PKCE
// login. The non-standard code=true flag makes the consent page display
// the authorization code for manual copy if the redirect fails.
func BuildClaudeAuthURL(codeChallenge, state string) string {
	return fmt.Sprintf(
		"%s?client_id=%s&code=true&code_challenge=%s&code_challenge_method=S256&redirect_uri=%s&response_type=code&scope=%s&state=%s",
		claudeAuthURL, claudeClientID, codeChallenge,
		"http%3A%2F%2Flocalhost%3A54545%2Fcallback",
		"user%3Aprofile+user%3Ainference", state,
	)
}

// LoginClaude runs the Claude authorization-code + PKCE flow and returns
// the resulting token.
func LoginClaude(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	pkce, err := GeneratePKCECodes()
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "pkce generation failed", err)
	}
	state, err := RandomState()
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "state generation failed", err)
	}
	// Bind before the browser opens so the redirect cannot race the listener.
	server, err := NewCallbackServer(claudeCallbackPort)
	if err != nil {
		return byok.OAuthToken{}, err
	}

	authURL := BuildClaudeAuthURL(pkce.CodeChallenge, state)
	log.Info("opening browser for Claude login")
	browser.Open(authURL)

	params, err := server.Wait()
	if err != nil {
		return byok.OAuthToken{}, err
	}
	if err = verifyState(params, state); err != nil {
		return byok.OAuthToken{}, err
	}
	code := params["code"]
	if code == "" {
		return byok.OAuthToken{}, byok.AuthError("callback missing authorization code")
	}
	return exchangeClaudeCode(ctx, client, code, state, pkce.CodeVerifier)
}

// exchangeClaudeCode trades the authorization code for a token. Anthropic
// expects a JSON body carrying the state alongside the verifier.
func exchangeClaudeCode(ctx context.Context, client *http.Client, code, state, verifier string) (byok.OAuthToken, error) {
	payload, _ := json.Marshal(map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"state":         state,
		"client_id":     claudeClientID,
		"redirect_uri":  claudeRedirectURI,
		"code_verifier": verifier,
	})
	body, err := postJSON(ctx, client, claudeTokenURL, payload)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(body)
}

// refreshClaude exchanges a refresh token for a fresh access token.
func refreshClaude(ctx context.Context, client *http.Client, refreshToken string) (byok.OAuthToken, error) {
	payload, _ := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     claudeClientID,
	})
	body, err := postJSON(ctx, client, claudeTokenURL, payload)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(body)
}
