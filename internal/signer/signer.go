// Package signer computes and verifies the HMAC-SHA256 signature carried on
// every outbound webhook request.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header is the name of the HTTP header the signature is carried in,
// fixed across the dispatcher and the receiver (spec.md §9).
const Header = "X-Webhook-Signature"

// Sign returns the lowercase-hex HMAC-SHA256 of body keyed by secret. body
// must be byte-identical to what is transmitted on the wire — the caller
// serializes the payload exactly once and signs that serialization.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the HMAC over body and compares it to signature in
// constant time. Used by receivers (and exercised here for tests and the
// mock receiver binary).
func Verify(secret, body []byte, signature string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
