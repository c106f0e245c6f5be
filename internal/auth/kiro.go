package auth

import (
	"context"
	"net/http"

	"github.com/byokey/byokey/internal/byok"
)

// Kiro OAuth constants. The desktop auth host hands the authorization
// code to the Kiro app out-of-band, so only the parsing side is defined;
// the login orchestration is not implemented.
const (
	kiroCallbackPort = 9876
	kiroAuthHost     = "prod.us-east-1.auth.desktop.kiro.dev"
)

// LoginKiro is a placeholder: the Kiro flow shape is not public, and
// guessing it would store tokens the upstream rejects.
func LoginKiro(ctx context.Context, client *http.Client) (byok.OAuthToken, error) {
	_ = ctx
	_ = client
	return byok.OAuthToken{}, byok.AuthError("Kiro OAuth login not yet implemented")
}
