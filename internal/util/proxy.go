// Package util provides shared helpers for the gateway, currently the
// outbound proxy configuration for HTTP clients.
package util

import (
	"context"
	"net"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// SetProxy configures the provided HTTP client to route requests through
// the proxy at proxyURL. SOCKS5, HTTP, and HTTPS proxies are supported; an
// empty or unparsable URL leaves the client untouched.
func SetProxy(proxyURL string, httpClient *http.Client) *http.Client {
	if proxyURL == "" {
		return httpClient
	}
	var transport *http.Transport
	parsed, errParse := url.Parse(proxyURL)
	if errParse == nil {
		if parsed.Scheme == "socks5" {
			username := parsed.User.Username()
			password, _ := parsed.User.Password()
			proxyAuth := &proxy.Auth{User: username, Password: password}
			dialer, errSOCKS5 := proxy.SOCKS5("tcp", parsed.Host, proxyAuth, proxy.Direct)
			if errSOCKS5 != nil {
				log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
				return httpClient
			}
			transport = &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				},
			}
		} else if parsed.Scheme == "http" || parsed.Scheme == "https" {
			transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
		}
	}
	if transport != nil {
		httpClient.Transport = transport
	}
	return httpClient
}
