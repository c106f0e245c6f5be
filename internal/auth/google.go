package auth

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/byokey/byokey/internal/browser"
	"github.com/byokey/byokey/internal/byok"
)

// Google OAuth 2.0 endpoints, shared by Gemini and Antigravity.
const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	geminiCallbackPort      = 8085
	antigravityCallbackPort = 51121
)

var geminiScopes = []string{
	"openid",
	"email",
	"https://www.googleapis.com/auth/generative-language.retriever",
}

var antigravityScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
}

// LoginGemini runs the Google OAuth flow for Gemini. Client credentials
// are fetched from the published manifest at login time.
func LoginGemini(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	return loginGoogle(ctx, client, byok.ProviderGemini, geminiCallbackPort, geminiScopes)
}

// LoginAntigravity runs the Google OAuth flow for Antigravity.
func LoginAntigravity(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	return loginGoogle(ctx, client, byok.ProviderAntigravity, antigravityCallbackPort, antigravityScopes)
}

// loginGoogle is the shared Google authorization-code + PKCE flow with
// offline access, so a refresh token is always granted.
func loginGoogle(ctx context.Context, client *http.Client, provider byok.Provider, port int, scopes []string) (byok.OAuthToken, error) {
	creds, err := FetchCredentials(ctx, client, provider)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI(port),
		Scopes:       scopes,
		Endpoint:     oauth2.Endpoint{AuthURL: googleAuthURL, TokenURL: tokenURL},
	}

	pkce, err := GeneratePKCECodes()
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "pkce generation failed", err)
	}
	state, err := RandomState()
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "state generation failed", err)
	}
	server, err := NewCallbackServer(port)
	if err != nil {
		return byok.OAuthToken{}, err
	}

	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge", pkce.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	log.Infof("opening browser for %s login", provider)
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

	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	tok, err := conf.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", pkce.CodeVerifier))
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "google token exchange failed", err)
	}
	out := byok.NewToken(tok.AccessToken)
	if tok.RefreshToken != "" {
		out = out.WithRefresh(tok.RefreshToken)
	}
	if !tok.Expiry.IsZero() {
		out.ExpiresAt = tok.Expiry.Unix()
	}
	return out, nil
}

// refreshGoogle exchanges a refresh token at the Google token endpoint.
// The client credentials are re-fetched from the manifest.
func refreshGoogle(ctx context.Context, client *http.Client, provider byok.Provider, refreshToken string) (byok.OAuthToken, error) {
	creds, err := FetchCredentials(ctx, client, provider)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	values := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {creds.ClientID},
	}
	if creds.ClientSecret != "" {
		values.Set("client_secret", creds.ClientSecret)
	}
	body, err := postForm(ctx, client, tokenURL, nil, values)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(body)
}

func redirectURI(port int) string {
	return "http://localhost:" + strconv.Itoa(port) + "/callback"
}
