package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/browser"
	"github.com/byokey/byokey/internal/byok"
)

// Codex (OpenAI) OAuth constants.
const (
	codexClientID     = "app_EMoamEEZ73f0CkXaXp7hrann"
	codexCallbackPort = 1455
	codexAuthURL      = "https://auth.openai.com/oauth/authorize"
	codexTokenURL     = "https://auth.openai.com/oauth/token"
	codexRedirectURI  = "http://localhost:1455/auth/callback"
	codexScope        = "openid email profile offline_access"
)

// BuildCodexAuthURL builds the auth.openai.com authorization URL with the
// Codex CLI's simplified-flow flags.
func BuildCodexAuthURL(codeChallenge, state string) string {
	return fmt.Sprintf(
		"%s?client_id=%s&code_challenge=%s&code_challenge_method=S256&codex_cli_simplified_flow=true&id_token_add_organizations=true&prompt=login&redirect_uri=%s&response_type=code&scope=%s&state=%s",
		codexAuthURL, codexClientID, codeChallenge,
		"http%3A%2F%2Flocalhost%3A1455%2Fauth%2Fcallback",
		"openid+email+profile+offline_access", state,
	)
}

// LoginCodex runs the Codex authorization-code + PKCE flow.
func LoginCodex(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	pkce, err := GeneratePKCECodes()
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "pkce generation failed", err)
	}
	state, err := RandomState()
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "state generation failed", err)
	}
	server, err := NewCallbackServer(codexCallbackPort)
	if err != nil {
		return byok.OAuthToken{}, err
	}

	log.Info("opening browser for Codex login")
	browser.Open(BuildCodexAuthURL(pkce.CodeChallenge, state))

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

	body, err := postForm(ctx, client, codexTokenURL, nil, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {codexRedirectURI},
		"client_id":     {codexClientID},
		"code_verifier": {pkce.CodeVerifier},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(body)
}

// refreshCodex exchanges a refresh token at auth.openai.com.
func refreshCodex(ctx context.Context, client *http.Client, refreshToken string) (byok.OAuthToken, error) {
	body, err := postForm(ctx, client, codexTokenURL, nil, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {codexClientID},
		"scope":         {codexScope},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(body)
}
