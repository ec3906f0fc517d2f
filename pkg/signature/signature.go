// Package signature implements the HMAC-SHA256 request signing shared by the
// outbound webhook forwarder and the inbound callback endpoint. Both sides
// must operate on the exact same byte sequence; any re-serialization between
// signing and verifying breaks the signature.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex-encoded HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the valid signature of body under secret.
// The comparison is constant time.
func Verify(secret string, body []byte, sig string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(sig), []byte(expected))
}
