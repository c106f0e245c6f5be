package byok

import "time"

// expirySkew is the cushion subtracted from a token's expiry when deciding
// whether it is still usable, covering clock skew and request latency.
const expirySkew = 60 * time.Second

// TokenState classifies an OAuthToken relative to the current time.
type TokenState int

const (
	// TokenValid means the token can be sent upstream as-is.
	TokenValid TokenState = iota
	// TokenExpired means the access token lapsed but a refresh token exists.
	TokenExpired
	// TokenInvalid means the access token lapsed and cannot be refreshed.
	TokenInvalid
)

func (s TokenState) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// OAuthToken is the stored credential for a provider account. ExpiresAt is
// unix seconds; zero means the token never expires. Unknown JSON fields are
// dropped on read, which keeps older records forward compatible.
type OAuthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// NewToken builds a token holding only an access token.
func NewToken(accessToken string) OAuthToken {
	return OAuthToken{AccessToken: accessToken, TokenType: "Bearer"}
}

// WithRefresh attaches a refresh token.
func (t OAuthToken) WithRefresh(refreshToken string) OAuthToken {
	t.RefreshToken = refreshToken
	return t
}

// WithExpiry sets the expiry to now plus the given number of seconds.
func (t OAuthToken) WithExpiry(secondsFromNow int64) OAuthToken {
	t.ExpiresAt = time.Now().Unix() + secondsFromNow
	return t
}

// State classifies the token at time now.
func (t OAuthToken) State(now time.Time) TokenState {
	if t.ExpiresAt == 0 || now.Add(expirySkew).Unix() < t.ExpiresAt {
		return TokenValid
	}
	if t.RefreshToken != "" {
		return TokenExpired
	}
	return TokenInvalid
}

// AccountInfo describes one stored account for a provider. At most one
// account per provider is active.
type AccountInfo struct {
	AccountID string `json:"account_id"`
	Label     string `json:"label,omitempty"`
	IsActive  bool   `json:"is_active"`
}
