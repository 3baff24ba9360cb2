package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const (
	// Header is the HTTP header carrying the inbound webhook signature
	Header = "circleci-signature"

	// Prefix identifies the HMAC-SHA256 hex signature scheme
	Prefix = "sha256="
)

// Sign computes the signature header value for a body: sha256=<hex>
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

/* Verify checks a webhook signature using constant-time comparison
 * A never-short-circuiting compare defeats timing attacks on the secret
 *
 * An empty secret means verification is disabled and every body passes.
 * This is a deliberate operability trade-off for development and test
 * deployments, accepted as a documented risk rather than a hard failure.
 */
func Verify(secret string, body []byte, header string) bool {
	if secret == "" {
		return true
	}

	if !strings.HasPrefix(header, Prefix) {
		return false
	}

	expected := Sign(secret, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(header)) == 1
}
