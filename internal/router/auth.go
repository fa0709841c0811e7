package router

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// AuthConfig holds the webhook authentication secrets. Either may be
// empty, in which case that check is skipped; if both are empty, auth
// is disabled entirely.
type AuthConfig struct {
	SignatureSecret string
	BearerToken     string
}

func (c AuthConfig) enabled() bool {
	return c.SignatureSecret != "" || c.BearerToken != ""
}

// VerifySignature checks an "X-Signature: sha256=<hex>" header against
// an HMAC-SHA256 of the raw request body, using a constant-time
// comparison to avoid timing side channels — the inbound-verification
// counterpart of the outbound signing in
// alanyoungcy-polymarketbot's hmac.go.
func VerifySignature(secret string, body []byte, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	return hmac.Equal(provided, expected)
}

// VerifyBearer checks an "Authorization: Bearer <token>" header in
// constant time.
func VerifyBearer(token string, header string) bool {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	provided := strings.TrimPrefix(header, prefix)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1
}

// Authenticate validates a request against the configured secrets. It
// accepts the request if either check configured passes; if neither
// secret is configured, auth is disabled and every request passes.
func Authenticate(cfg AuthConfig, body []byte, signatureHeader, authHeader string) error {
	if !cfg.enabled() {
		return nil
	}
	if cfg.SignatureSecret != "" && signatureHeader != "" {
		if VerifySignature(cfg.SignatureSecret, body, signatureHeader) {
			return nil
		}
	}
	if cfg.BearerToken != "" && authHeader != "" {
		if VerifyBearer(cfg.BearerToken, authHeader) {
			return nil
		}
	}
	return fmt.Errorf("authentication failed: missing or mismatched credentials")
}
