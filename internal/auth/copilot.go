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

// GitHub Copilot device-flow constants.
const (
	copilotClientID      = "Iv1.b507a08c87ecfe98"
	copilotDeviceCodeURL = "https://github.com/login/device/code"
	copilotTokenURL      = "https://github.com/login/oauth/access_token"
	copilotScope         = "read:user"
)

// LoginCopilot runs the GitHub device-authorization flow. The resulting
// GitHub token is long-lived and carries no refresh token; executors
// exchange it for short-lived Copilot API tokens per request.
func LoginCopilot(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	body, err := postForm(ctx, client, copilotDeviceCodeURL, nil, url.Values{
		"client_id": {copilotClientID},
		"scope":     {copilotScope},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	dc, err := parseDeviceCode(body, 900*time.Second)
	if err != nil {
		return byok.OAuthToken{}, err
	}

	fmt.Printf("Enter code %s at %s\n", dc.UserCode, dc.VerificationURI)
	log.Info("opening browser for GitHub device login")
	browser.Open(dc.VerificationURI)

	tokenBody, err := pollDeviceToken(ctx, dc, slowDownAdd, func(ctx context.Context) ([]byte, error) {
		return postForm(ctx, client, copilotTokenURL, nil, url.Values{
			"client_id":   {copilotClientID},
			"device_code": {dc.DeviceCode},
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		})
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(tokenBody)
}
