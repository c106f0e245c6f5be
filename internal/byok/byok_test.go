package byok

import (
	"testing"
	"time"
)

func TestParseProviderCanonical(t *testing.T) {
	for _, p := range Providers {
		got, err := ParseProvider(string(p))
		if err != nil {
			t.Fatalf("ParseProvider(%q): %v", p, err)
		}
		if got != p {
			t.Fatalf("ParseProvider(%q) = %q", p, got)
		}
	}
}

func TestParseProviderAliases(t *testing.T) {
	cases := map[string]Provider{
		"anthropic": ProviderClaude,
		"openai":    ProviderCodex,
		"google":    ProviderGemini,
		"github":    ProviderCopilot,
		"moonshot":  ProviderKimi,
		"zai":       ProviderIFlow,
		"glm":       ProviderIFlow,
		"alibaba":   ProviderQwen,
		"droid":     ProviderFactory,
	}
	for alias, want := range cases {
		got, err := ParseProvider(alias)
		if err != nil {
			t.Fatalf("ParseProvider(%q): %v", alias, err)
		}
		if got != want {
			t.Fatalf("ParseProvider(%q) = %q, want %q", alias, got, want)
		}
	}
}

func TestParseProviderUnknown(t *testing.T) {
	_, err := ParseProvider("gpt4all")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if be := AsError(err); be.Kind != ErrUnsupportedModel {
		t.Fatalf("kind = %v, want ErrUnsupportedModel", be.Kind)
	}
}

func TestTokenStateNoExpiry(t *testing.T) {
	tok := NewToken("abc")
	if got := tok.State(time.Now()); got != TokenValid {
		t.Fatalf("state = %v, want valid", got)
	}
}

func TestTokenStateSkewWindow(t *testing.T) {
	now := time.Now()
	// Expires in 30s: inside the 60s skew cushion, so not valid.
	tok := NewToken("abc").WithRefresh("ref")
	tok.ExpiresAt = now.Add(30 * time.Second).Unix()
	if got := tok.State(now); got != TokenExpired {
		t.Fatalf("state = %v, want expired", got)
	}
	// Expires in 2 minutes: valid.
	tok.ExpiresAt = now.Add(2 * time.Minute).Unix()
	if got := tok.State(now); got != TokenValid {
		t.Fatalf("state = %v, want valid", got)
	}
}

func TestTokenStateInvalidWithoutRefresh(t *testing.T) {
	now := time.Now()
	tok := NewToken("abc")
	tok.ExpiresAt = now.Add(-time.Hour).Unix()
	if got := tok.State(now); got != TokenInvalid {
		t.Fatalf("state = %v, want invalid", got)
	}
}

func TestIsRetryable(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503, 504} {
		if !IsRetryable(UpstreamError(status, "")) {
			t.Fatalf("status %d should be retryable", status)
		}
	}
	for _, status := range []int{400, 401, 403, 404, 422} {
		if IsRetryable(UpstreamError(status, "")) {
			t.Fatalf("status %d should not be retryable", status)
		}
	}
	if !IsRetryable(HTTPError("connection reset")) {
		t.Fatal("transport errors should be retryable")
	}
	if IsRetryable(AuthError("nope")) {
		t.Fatal("auth errors should not be retryable")
	}
}
