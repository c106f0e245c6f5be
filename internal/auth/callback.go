package auth

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/byok"
)

// callbackTimeout bounds the total wait for the browser redirect.
const callbackTimeout = 120 * time.Second

// callbackHTML is the page shown in the browser after a successful login.
const callbackHTML = "<html><body><h1>Login successful!</h1><p>You can close this window and return to the terminal.</p></body></html>"

// CallbackServer listens on a loopback port for a single OAuth redirect.
// The listener is bound at construction time so that the port is held
// before the browser opens, closing the race between the two.
type CallbackServer struct {
	listener net.Listener
	port     int
}

// NewCallbackServer binds 127.0.0.1:port. A port already in use yields an
// actionable error: vibeproxy and cli-proxy reserve the same well-known
// OAuth ports.
func NewCallbackServer(port int) (*CallbackServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, byok.AuthError(fmt.Sprintf(
			"callback port %d is in use (another proxy may be running; try `lsof -i :%d`): %v", port, port, err))
	}
	return &CallbackServer{listener: ln, port: port}, nil
}

// Port returns the bound port.
func (s *CallbackServer) Port() int { return s.port }

// Close releases the listener. Safe to call after Wait.
func (s *CallbackServer) Close() { _ = s.listener.Close() }

// Wait accepts exactly one connection, parses the redirect's query string
// into a key→value map, answers with a fixed success page, and returns the
// parameters. The overall wait is bounded by a 120 second deadline.
func (s *CallbackServer) Wait() (map[string]string, error) {
	defer s.Close()
	deadline := time.Now().Add(callbackTimeout)
	if tl, ok := s.listener.(*net.TCPListener); ok {
		_ = tl.SetDeadline(deadline)
	}
	conn, err := s.listener.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, byok.AuthError("timed out waiting for OAuth callback")
		}
		return nil, byok.AuthError(fmt.Sprintf("callback accept failed: %v", err))
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(deadline)

	buf := make([]byte, 8192)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return nil, byok.AuthError("failed to read OAuth callback request")
	}

	params, err := parseCallbackRequest(string(buf[:n]))
	if err != nil {
		return nil, err
	}

	resp := "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: " +
		fmt.Sprintf("%d", len(callbackHTML)) + "\r\nConnection: close\r\n\r\n" + callbackHTML
	if _, err = conn.Write([]byte(resp)); err != nil {
		log.Debugf("callback response write failed: %v", err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
	return params, nil
}

// parseCallbackRequest extracts the URL-decoded query parameters from the
// request line of a raw HTTP request.
func parseCallbackRequest(raw string) (map[string]string, error) {
	line, _, ok := strings.Cut(raw, "\r\n")
	if !ok {
		line = raw
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, byok.AuthError("malformed OAuth callback request")
	}
	path := fields[1]
	params := make(map[string]string)
	_, query, found := strings.Cut(path, "?")
	if !found {
		return params, nil
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, byok.AuthError(fmt.Sprintf("cannot parse callback query: %v", err))
	}
	for k, vs := range values {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params, nil
}
