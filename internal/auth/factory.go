package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/byokey/byokey/internal/browser"
	"github.com/byokey/byokey/internal/byok"
)

// Factory (Droid) device-flow constants. The grant runs through WorkOS;
// after login the token must be bound to a WorkOS organization.
const (
	factoryClientID      = "client_01HNM792M5G5G1A2THWPXKFMXB"
	factoryDeviceCodeURL = "https://api.workos.com/user_management/authorize/device"
	factoryTokenURL      = "https://api.workos.com/user_management/authenticate"
	factoryAPIBase       = "https://api.factory.ai"
)

// LoginFactory runs the WorkOS device-authorization flow and resolves the
// user's Factory organization.
func LoginFactory(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	body, err := postForm(ctx, client, factoryDeviceCodeURL, nil, url.Values{
		"client_id": {factoryClientID},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	dc, err := parseDeviceCode(body, 300*time.Second)
	if err != nil {
		return byok.OAuthToken{}, err
	}

	fmt.Printf("Enter code %s at %s\n", dc.UserCode, dc.VerificationURI)
	log.Info("opening browser for Factory device login")
	browser.Open(dc.VerificationURI)

	tokenBody, err := pollDeviceToken(ctx, dc, slowDownAdd, func(ctx context.Context) ([]byte, error) {
		return postForm(ctx, client, factoryTokenURL, nil, url.Values{
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
			"device_code": {dc.DeviceCode},
			"client_id":   {factoryClientID},
		})
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	token, err := parseFactoryToken(tokenBody)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	if _, err = resolveFactoryOrg(ctx, client, token.AccessToken); err != nil {
		return byok.OAuthToken{}, err
	}
	return token, nil
}

// refreshFactory refreshes the WorkOS token and re-binds the organization.
func refreshFactory(ctx context.Context, client *http.Client, refreshToken string) (byok.OAuthToken, error) {
	body, err := postForm(ctx, client, factoryTokenURL, nil, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {factoryClientID},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	token, err := parseFactoryToken(body)
	if err != nil {
		return byok.OAuthToken{}, err
	}
	if _, err = resolveFactoryOrg(ctx, client, token.AccessToken); err != nil {
		return byok.OAuthToken{}, err
	}
	return token, nil
}

// parseFactoryToken parses the WorkOS token response. Factory access
// tokens are JWTs; the expiry comes from the exp claim when the response
// omits expires_in.
func parseFactoryToken(body []byte) (byok.OAuthToken, error) {
	access := gjson.GetBytes(body, "access_token").String()
	if access == "" {
		return byok.OAuthToken{}, byok.AuthError("token response missing access_token")
	}
	token := byok.NewToken(access)
	if r := gjson.GetBytes(body, "refresh_token").String(); r != "" {
		token = token.WithRefresh(r)
	}
	if exp, ok := decodeJWTExpiry(access); ok {
		token.ExpiresAt = exp
	} else if exp := gjson.GetBytes(body, "expires_in").Int(); exp > 0 {
		token = token.WithExpiry(exp)
	}
	return token, nil
}

// decodeJWTExpiry best-effort decodes the exp claim from a JWT payload.
func decodeJWTExpiry(jwt string) (int64, bool) {
	parts := strings.Split(jwt, ".")
	if len(parts) != 3 {
		return 0, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, false
	}
	exp := gjson.GetBytes(payload, "exp")
	if !exp.Exists() {
		return 0, false
	}
	return exp.Int(), true
}

// resolveFactoryOrg resolves the user's WorkOS organization id. A token
// without an organization cannot call the Factory LLM proxy.
func resolveFactoryOrg(ctx context.Context, client *http.Client, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, factoryAPIBase+"/api/cli/org", nil)
	if err != nil {
		return "", byok.WrapError(byok.ErrAuth, "cannot build org request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := client.Do(req)
	if err != nil {
		return "", byok.WrapError(byok.ErrHTTP, "factory org resolution failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", byok.WrapError(byok.ErrHTTP, "cannot read org response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", byok.AuthError(fmt.Sprintf("factory org resolution failed: %s", string(body)))
	}
	org := gjson.GetBytes(body, "workosOrgIds.0").String()
	if org == "" {
		return "", byok.AuthError("no organization found; visit https://app.factory.ai/cli-onboarding")
	}
	return org, nil
}
