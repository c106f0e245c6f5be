package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/byokey/byokey/internal/byok"
)

// credentialsBase hosts the published OAuth client manifests for providers
// whose client credentials are not embedded in the binary.
const credentialsBase = "https://assets.byokey.io/oauth"

// Credentials is a published OAuth client manifest entry.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// FetchCredentials downloads the OAuth client manifest for a provider from
// assets.byokey.io at login time.
func FetchCredentials(ctx context.Context, client *http.Client, provider byok.Provider) (*Credentials, error) {
	url := fmt.Sprintf("%s/%s.json", credentialsBase, provider)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, byok.WrapError(byok.ErrAuth, "cannot build credentials request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "cannot fetch oauth credentials", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "cannot read oauth credentials", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, byok.UpstreamError(resp.StatusCode, string(body))
	}
	creds := &Credentials{
		ClientID:     gjson.GetBytes(body, "client_id").String(),
		ClientSecret: gjson.GetBytes(body, "client_secret").String(),
		TokenURL:     gjson.GetBytes(body, "token_url").String(),
	}
	if creds.ClientID == "" {
		return nil, byok.AuthError(fmt.Sprintf("oauth credentials manifest for %s is missing client_id", provider))
	}
	return creds, nil
}
