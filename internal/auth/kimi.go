package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/browser"
	"github.com/byokey/byokey/internal/byok"
)

// Kimi (Moonshot) device-flow constants. The endpoint requires a set of
// X-Msh-* device-identity headers on the device request and every poll.
const (
	kimiClientID      = "17e5f671-d194-4dfb-9706-5516cb48c098"
	kimiDeviceCodeURL = "https://auth.kimi.com/api/oauth/device_authorization"
	kimiTokenURL      = "https://auth.kimi.com/api/oauth/token"
	kimiScope         = "openid offline_access"

	kimiPlatform    = "mac"
	kimiVersion     = "0.13.0"
	kimiDeviceModel = "MacBookPro"
)

// kimiDeviceHeaders builds the X-Msh-* identity headers. The device id is
// a fresh v4 UUID per login session.
func kimiDeviceHeaders(deviceID string) map[string]string {
	return map[string]string{
		"X-Msh-Platform":     kimiPlatform,
		"X-Msh-Version":      kimiVersion,
		"X-Msh-Device-Name":  "byok-client",
		"X-Msh-Device-Model": kimiDeviceModel,
		"X-Msh-Device-Id":    deviceID,
	}
}

// LoginKimi runs the Kimi device-authorization flow.
func LoginKimi(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	headers := kimiDeviceHeaders(uuid.NewString())
	body, err := postForm(ctx, client, kimiDeviceCodeURL, headers, url.Values{
		"client_id": {kimiClientID},
		"scope":     {kimiScope},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	dc, err := parseDeviceCode(body, 600*time.Second)
	if err != nil {
		return byok.OAuthToken{}, err
	}

	fmt.Printf("Enter code %s at %s\n", dc.UserCode, dc.VerificationURI)
	log.Info("opening browser for Kimi device login")
	browser.Open(dc.VerificationURI)

	tokenBody, err := pollDeviceToken(ctx, dc, slowDownAdd, func(ctx context.Context) ([]byte, error) {
		return postForm(ctx, client, kimiTokenURL, headers, url.Values{
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
			"client_id":   {kimiClientID},
			"device_code": {dc.DeviceCode},
		})
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(tokenBody)
}

// refreshKimi exchanges a refresh token, carrying the same device-identity
// headers as the login polls.
func refreshKimi(ctx context.Context, client *http.Client, refreshToken string) (byok.OAuthToken, error) {
	headers := kimiDeviceHeaders(uuid.NewString())
	body, err := postForm(ctx, client, kimiTokenURL, headers, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {kimiClientID},
	})
	if err != nil {
		return byok.OAuthToken{}, err
	}
	return parseTokenResponse(body)
}
