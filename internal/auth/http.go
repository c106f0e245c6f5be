package auth

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/byokey/byokey/internal/byok"
)

// postForm sends a form-encoded POST and returns the response body. Device
// flows inspect error fields on non-2xx bodies, so the status is not
// treated as fatal here.
func postForm(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, byok.WrapError(byok.ErrAuth, "cannot build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "token request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "cannot read token response", err)
	}
	return body, nil
}

// postJSON sends a JSON POST and returns the response body, failing on
// non-2xx statuses.
func postJSON(ctx context.Context, client *http.Client, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, byok.WrapError(byok.ErrAuth, "cannot build token request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "token request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "cannot read token response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, byok.UpstreamError(resp.StatusCode, string(body))
	}
	return body, nil
}

// verifyState compares the returned OAuth state with the expected value.
func verifyState(params map[string]string, expected string) error {
	if params["state"] != expected {
		return byok.AuthError("state mismatch, possible CSRF attack")
	}
	return nil
}
