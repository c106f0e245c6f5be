package auth

import (
	"github.com/tidwall/gjson"

	"github.com/byokey/byokey/internal/byok"
)

// parseTokenResponse maps a standard OAuth token endpoint response
// (access_token, refresh_token?, expires_in?) onto an OAuthToken.
func parseTokenResponse(body []byte) (byok.OAuthToken, error) {
	access := gjson.GetBytes(body, "access_token").String()
	if access == "" {
		return byok.OAuthToken{}, byok.AuthError("token response missing access_token")
	}
	token := byok.NewToken(access)
	if r := gjson.GetBytes(body, "refresh_token").String(); r != "" {
		token = token.WithRefresh(r)
	}
	if exp := gjson.GetBytes(body, "expires_in").Int(); exp > 0 {
		token = token.WithExpiry(exp)
	}
	return token, nil
}
