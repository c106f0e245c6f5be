package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/browser"
	"github.com/byokey/byokey/internal/byok"
)

// Qwen device-flow constants. Qwen layers PKCE on top of the device grant:
// the device request carries the challenge and every poll the verifier.
const (
	qwenClientID      = "f0304373b74a44d2b584a3fb70ca9e56"
	qwenDeviceCodeURL = "https://chat.qwen.ai/api/v1/oauth2/device/code"
	qwenTokenURL      = "https://chat.qwen.ai/api/v1/oauth2/token"
	qwenScope         = "openid profile email model.completion"
)

// LoginQwen runs the Qwen device-authorization + PKCE flow.
func LoginQwen(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	pkce, err := GeneratePKCECodes()
	if err != nil {
		return byok.OAuthToken{}, byok.WrapError(byok.ErrAuth, "pkce generation failed", err)
	}
	body, err := postForm(ctx, client, qwenDeviceCodeURL, nil, url.Values{
		"client_id":             {qwenClientID},
		"scope":                 {qwenScope},
		"code_challenge":        {pkce.CodeChallenge},
		"code_challenge_method": {"S256"},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	dc, err := parseDeviceCode(body, 600*time.Second)
	if err != nil {
		return byok.OAuthToken{}, err
	}

	fmt.Printf("Enter code %s at %s\n", dc.UserCode, dc.VerificationURI)
	log.Info("opening browser for Qwen device login")
	browser.Open(dc.VerificationURI)

	tokenBody, err := pollDeviceToken(ctx, dc, slowDownMultiply, func(ctx context.Context) ([]byte, error) {
		return postForm(ctx, client, qwenTokenURL, nil, url.Values{
			"grant_type":    {"urn:ietf:params:oauth:grant-type:device_code"},
			"client_id":     {qwenClientID},
			"device_code":   {dc.DeviceCode},
			"code_verifier": {pkce.CodeVerifier},
		})
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(tokenBody)
}

// refreshQwen exchanges a refresh token at the Qwen token endpoint.
func refreshQwen(ctx context.Context, client *http.Client, refreshToken string) (byok.OAuthToken, error) {
	body, err := postForm(ctx, client, qwenTokenURL, nil, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {qwenClientID},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(body)
}
