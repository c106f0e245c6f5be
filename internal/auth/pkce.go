// Package auth implements the credential lifecycle: PKCE and state
// generation, the loopback OAuth callback listener, the per-provider login
// and refresh flows, and the token manager that gates refresh attempts.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// PKCECodes holds a PKCE S256 verifier/challenge pair.
type PKCECodes struct {
	CodeVerifier  string
	CodeChallenge string
}

// GeneratePKCECodes generates a PKCE pair: 32 random bytes encoded
// base64url without padding as the verifier, and the base64url-no-pad
// SHA-256 of the verifier's ASCII bytes as the challenge.
func GeneratePKCECodes() (*PKCECodes, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(sum[:])
	return &PKCECodes{CodeVerifier: verifier, CodeChallenge: challenge}, nil
}

// RandomState generates the OAuth state parameter: 16 random bytes as 32
// lowercase hex characters.
func RandomState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
