package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/byok"
)

// streamReadSize is the per-read buffer for upstream SSE bodies.
const streamReadSize = 16 * 1024

// post sends a JSON body and maps transport and non-2xx failures to
// the gateway error taxonomy. The caller owns the response body.
func post(ctx context.Context, client *http.Client, url string, headers map[string]string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "cannot build upstream request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, fmt.Sprintf("request to %s failed", url), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, byok.UpstreamError(resp.StatusCode, string(respBody))
	}
	return resp, nil
}

// get issues a GET with the same error mapping as post.
func get(ctx context.Context, client *http.Client, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "cannot build upstream request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, fmt.Sprintf("request to %s failed", url), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, byok.UpstreamError(resp.StatusCode, string(respBody))
	}
	return resp, nil
}

// readAll drains and closes a successful response body.
func readAll(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, byok.WrapError(byok.ErrHTTP, "cannot read upstream response", err)
	}
	return body, nil
}

// passthroughStream forwards the upstream body chunk-for-chunk. The
// channel closes when the upstream ends or the context is cancelled.
func passthroughStream(ctx context.Context, resp *http.Response) <-chan []byte {
	return translateStream(ctx, resp, func(chunk []byte) [][]byte {
		return [][]byte{chunk}
	})
}

// translateStream pumps the upstream body through a chunk translator.
// A read error mid-stream is logged and truncates the stream; the
// client observes the missing terminator.
func translateStream(ctx context.Context, resp *http.Response, push func([]byte) [][]byte) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()
		buf := make([]byte, streamReadSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				for _, event := range push(append([]byte(nil), buf[:n]...)) {
					select {
					case out <- event:
					case <-ctx.Done():
						return
					}
				}
			}
			if err != nil {
				if err != io.EOF && ctx.Err() == nil {
					log.Warnf("upstream stream aborted: %v", err)
				}
				return
			}
		}
	}()
	return out
}
