package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/byokey/byokey/internal/browser"
	"github.com/byokey/byokey/internal/byok"
)

// iFlow OAuth constants. Client credentials come from the published
// manifest; the secret travels in a Basic auth header, not the form body.
const (
	iflowCallbackPort = 11451
	iflowAuthURL      = "https://iflow.cn/oauth"
	iflowTokenURL     = "https://iflow.cn/oauth/token"
	iflowUserInfoURL  = "https://iflow.cn/api/oauth/getUserInfo"
	iflowRedirectURI  = "http://localhost:11451/callback"
)

// BuildIFlowAuthURL builds the iflow.cn authorization URL. The phone
// login-method flags select the consent page variant the CLI expects.
func BuildIFlowAuthURL(clientID, state string) string {
	return fmt.Sprintf(
		"%s?response_type=code&client_id=%s&redirect_uri=%s&state=%s&loginMethod=phone&type=phone",
		iflowAuthURL, clientID, "http%3A%2F%2Flocalhost%3A11451%2Fcallback", state,
	)
}

// iflowBasicAuth formats the Basic header from client credentials.
func iflowBasicAuth(clientID, clientSecret string) string {
	cred := clientID + ":" + clientSecret
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(cred))
}

// LoginIFlow runs the iFlow authorization-code flow, then swaps the OAuth
// access token for the account's long-lived API key.
func LoginIFlow(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	creds, err := FetchCredentials(ctx, client, byok.ProviderIFlow)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	state, err := RandomState()
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "state generation failed", err)
	}
	server, err := NewCallbackServer(iflowCallbackPort)
	if err != nil {
		return byok.OAuthToken{}, err
	}

	log.Info("opening browser for iFlow login")
	browser.Open(BuildIFlowAuthURL(creds.ClientID, state))

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

	headers := map[string]string{"Authorization": iflowBasicAuth(creds.ClientID, creds.ClientSecret)}
	body, err := postForm(ctx, client, iflowTokenURL, headers, url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {creds.ClientID},
		"code":         {code},
		"redirect_uri": {iflowRedirectURI},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	token, err := parseTokenResponse(body)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return iflowSwapAPIKey(ctx, client, token)
}

// refreshIFlow refreshes the OAuth token and re-swaps the API key.
func refreshIFlow(ctx context.Context, client *http.Client, refreshToken string) (byok.OAuthToken, error) {
	creds, err := FetchCredentials(ctx, client, byok.ProviderIFlow)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	headers := map[string]string{"Authorization": iflowBasicAuth(creds.ClientID, creds.ClientSecret)}
	body, err := postForm(ctx, client, iflowTokenURL, headers, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {creds.ClientID},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	token, err := parseTokenResponse(body)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return iflowSwapAPIKey(ctx, client, token)
}

// iflowSwapAPIKey replaces the OAuth access token with the account API key
// from the userInfo endpoint; the upstream chat API only accepts the key.
func iflowSwapAPIKey(ctx context.Context, client *http.Client, token byok.OAuthToken) (byok.OAuthToken, error) {
	reqURL := fmt.Sprintf("%s?accessToken=%s", iflowUserInfoURL, url.QueryEscape(token.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "cannot build userinfo request", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrHTTP, "iflow userinfo request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrHTTP, "cannot read userinfo response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return byok.OAuthToken{}, byok.AuthError(fmt.Sprintf("iflow userinfo returned %d", resp.StatusCode))
	}
	apiKey := gjson.GetBytes(body, "data.apiKey").String()
	if apiKey == "" {
		return byok.OAuthToken{}, byok.AuthError("iflow userinfo response missing apiKey")
	}
	token.AccessToken = apiKey
	return token, nil
}
