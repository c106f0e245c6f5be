package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/store"
)

func TestGeneratePKCECodes(t *testing.T) {
	pkce, err := GeneratePKCECodes()
	if err != nil {
		t.Fatalf("GeneratePKCECodes: %v", err)
	}
	if pkce.CodeVerifier == "" || pkce.CodeChallenge == "" {
		t.Fatal("empty pkce pair")
	}
	// Challenge is the base64url-no-pad SHA-256 of the verifier's bytes.
	sum := sha256.Sum256([]byte(pkce.CodeVerifier))
	want := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(sum[:])
	if pkce.CodeChallenge != want {
		t.Fatalf("challenge = %s, want %s", pkce.CodeChallenge, want)
	}
	if strings.ContainsAny(pkce.CodeVerifier, "+/=") {
		t.Fatalf("verifier is not base64url-no-pad: %s", pkce.CodeVerifier)
	}
}

func TestRandomState(t *testing.T) {
	state, err := RandomState()
	if err != nil {
		t.Fatalf("RandomState: %v", err)
	}
	if len(state) != 32 {
		t.Fatalf("len = %d, want 32", len(state))
	}
	for _, c := range state {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("state contains non-hex char %q", c)
		}
	}
}

func TestParseCallbackRequest(t *testing.T) {
	raw := "GET /callback?code=abc%20123&state=deadbeef HTTP/1.1\r\nHost: localhost\r\n\r\n"
	params, err := parseCallbackRequest(raw)
	if err != nil {
		t.Fatalf("parseCallbackRequest: %v", err)
	}
	if params["code"] != "abc 123" {
		t.Fatalf("code = %q, want URL-decoded value", params["code"])
	}
	if params["state"] != "deadbeef" {
		t.Fatalf("state = %q", params["state"])
	}
}

func TestParseCallbackRequestNoQuery(t *testing.T) {
	params, err := parseCallbackRequest("GET /callback HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("parseCallbackRequest: %v", err)
	}
	if len(params) != 0 {
		t.Fatalf("params = %v, want empty", params)
	}
}

func TestBuildClaudeAuthURL(t *testing.T) {
	url := BuildClaudeAuthURL("chal", "mystate")
	for _, want := range []string{
		"https://claude.ai/oauth/authorize",
		"client_id=" + claudeClientID,
		"code=true",
		"code_challenge=chal",
		"code_challenge_method=S256",
		"state=mystate",
		"user%3Aprofile+user%3Ainference",
	} {
		if !strings.Contains(url, want) {
			t.Fatalf("auth URL missing %q: %s", want, url)
		}
	}
}

func TestBuildCodexAuthURL(t *testing.T) {
	url := BuildCodexAuthURL("chal", "mystate")
	for _, want := range []string{
		"codex_cli_simplified_flow=true",
		"id_token_add_organizations=true",
		"prompt=login",
		"auth%2Fcallback",
	} {
		if !strings.Contains(url, want) {
			t.Fatalf("auth URL missing %q: %s", want, url)
		}
	}
}

func TestBuildIFlowAuthURL(t *testing.T) {
	url := BuildIFlowAuthURL("cid", "mystate")
	if !strings.Contains(url, "loginMethod=phone") || !strings.Contains(url, "type=phone") {
		t.Fatalf("iflow URL missing phone flags: %s", url)
	}
}

func TestIFlowBasicAuthHeader(t *testing.T) {
	header := iflowBasicAuth("id", "secret")
	if !strings.HasPrefix(header, "Basic ") {
		t.Fatalf("header = %s", header)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != "id:secret" {
		t.Fatalf("decoded = %s", decoded)
	}
}

func TestParseDeviceCodeDefaults(t *testing.T) {
	body := []byte(`{"device_code":"dc","user_code":"UC-1","verification_uri":"https://example.com"}`)
	dc, err := parseDeviceCode(body, 900*time.Second)
	if err != nil {
		t.Fatalf("parseDeviceCode: %v", err)
	}
	if dc.ExpiresIn != 900*time.Second {
		t.Fatalf("expires = %v, want default 900s", dc.ExpiresIn)
	}
	if dc.Interval != 5*time.Second {
		t.Fatalf("interval = %v, want default 5s", dc.Interval)
	}
}

func TestParseDeviceCodePrefersCompleteURI(t *testing.T) {
	body := []byte(`{"device_code":"dc","user_code":"UC","verification_uri":"https://a","verification_uri_complete":"https://a?code=UC"}`)
	dc, err := parseDeviceCode(body, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if dc.VerificationURI != "https://a?code=UC" {
		t.Fatalf("uri = %s", dc.VerificationURI)
	}
}

func TestSlowDownPolicies(t *testing.T) {
	if got := slowDownAdd(5 * time.Second); got != 10*time.Second {
		t.Fatalf("add policy = %v, want 10s", got)
	}
	if got := slowDownMultiply(10 * time.Second); got != 15*time.Second {
		t.Fatalf("multiply policy = %v, want 15s", got)
	}
}

func TestDecodeJWTExpiry(t *testing.T) {
	// {"exp":1700000000}
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1700000000}`))
	exp, ok := decodeJWTExpiry("hdr." + payload + ".sig")
	if !ok || exp != 1700000000 {
		t.Fatalf("exp = %d ok = %v", exp, ok)
	}
	if _, ok = decodeJWTExpiry("not-a-jwt"); ok {
		t.Fatal("expected failure on malformed jwt")
	}
}

func TestManagerGetTokenValid(t *testing.T) {
	s := store.NewMemoryStore()
	m := NewManager(s, nil)
	ctx := context.Background()
	if err := s.Save(ctx, byok.ProviderClaude, byok.NewToken("tok")); err != nil {
		t.Fatal(err)
	}
	got, err := m.GetToken(ctx, byok.ProviderClaude)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got.AccessToken != "tok" {
		t.Fatalf("token = %+v", got)
	}
}

func TestManagerGetTokenInvalid(t *testing.T) {
	s := store.NewMemoryStore()
	m := NewManager(s, nil)
	ctx := context.Background()
	tok := byok.NewToken("tok")
	tok.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	if err := s.Save(ctx, byok.ProviderClaude, tok); err != nil {
		t.Fatal(err)
	}
	_, err := m.GetToken(ctx, byok.ProviderClaude)
	if be := byok.AsError(err); be.Kind != byok.ErrTokenExpired {
		t.Fatalf("kind = %v, want ErrTokenExpired", be.Kind)
	}
}

func TestManagerRefreshCooldown(t *testing.T) {
	s := store.NewMemoryStore()
	m := NewManager(s, nil)
	ctx := context.Background()
	// Copilot has no refresh RPC, so the first attempt fails fast and the
	// second is stopped by the cooldown gate.
	tok := byok.NewToken("gh").WithRefresh("ref")
	tok.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	if err := s.Save(ctx, byok.ProviderCopilot, tok); err != nil {
		t.Fatal(err)
	}
	_, err := m.GetToken(ctx, byok.ProviderCopilot)
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("first attempt err = %v", err)
	}
	_, err = m.GetToken(ctx, byok.ProviderCopilot)
	if err == nil || !strings.Contains(err.Error(), "cooldown") {
		t.Fatalf("second attempt err = %v, want cooldown", err)
	}
}

func TestManagerIsAuthenticated(t *testing.T) {
	s := store.NewMemoryStore()
	m := NewManager(s, nil)
	ctx := context.Background()
	if m.IsAuthenticated(ctx, byok.ProviderQwen) {
		t.Fatal("no token saved yet")
	}
	if err := s.Save(ctx, byok.ProviderQwen, byok.NewToken("t")); err != nil {
		t.Fatal(err)
	}
	if !m.IsAuthenticated(ctx, byok.ProviderQwen) {
		t.Fatal("expected authenticated")
	}
}
