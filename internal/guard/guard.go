// Package guard verifies the HMAC signature TradingView-style senders attach
// to webhook bodies.
package guard

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Header carries the lowercase hex HMAC-SHA256 of the raw request body.
const Header = "X-TradingView-Signature"

var ErrSignatureMismatch = errors.New("signature mismatch")

// SecretFunc returns the current shared secret. Empty disables verification.
type SecretFunc func() string

// Guard checks signatures against a secret read on every call, so a config
// reload applies to the next request.
type Guard struct {
	secret SecretFunc
}

func New(secret SecretFunc) *Guard {
	if secret == nil {
		secret = func() string { return "" }
	}
	return &Guard{secret: secret}
}

// Active reports whether a request carrying signature would be verified.
func (g *Guard) Active(signature string) bool {
	return g != nil && g.secret() != "" && signature != ""
}

// Verify checks signature against raw. It passes when no secret is configured
// or the request carries no signature.
func (g *Guard) Verify(raw []byte, signature string) error {
	if !g.Active(signature) {
		return nil
	}
	// The header must equal the lowercase hex digest byte for byte.
	if !hmac.Equal([]byte(signature), []byte(Sign(g.secret(), raw))) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign returns the lowercase hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
