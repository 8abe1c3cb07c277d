package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSign(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		secret  string
	}{
		{"basic payload", []byte(`{"hello":"world"}`), "my-secret-key"},
		{"empty payload", []byte(`{}`), "secret"},
		{"empty secret", []byte(`{"test":true}`), ""},
		{"unicode payload", []byte(`{"name":"café","price":"€10"}`), "unicode-key-日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Sign([]byte(tt.secret), tt.payload)

			decoded, err := hex.DecodeString(sig)
			if err != nil {
				t.Fatalf("signature is not valid hex: %v", err)
			}
			if len(decoded) != 32 {
				t.Fatalf("expected 32 bytes, got %d", len(decoded))
			}

			mac := hmac.New(sha256.New, []byte(tt.secret))
			mac.Write(tt.payload)
			want := hex.EncodeToString(mac.Sum(nil))
			if sig != want {
				t.Errorf("signature mismatch:\n  got:  %s\n  want: %s", sig, want)
			}
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	payload := []byte(`{"event":"test"}`)
	secret := []byte("test-secret")

	if Sign(secret, payload) != Sign(secret, payload) {
		t.Error("Sign should be deterministic for the same input")
	}
}

func TestSign_DifferentSecrets(t *testing.T) {
	payload := []byte(`{"event":"test"}`)
	if Sign([]byte("secret-1"), payload) == Sign([]byte("secret-2"), payload) {
		t.Error("different secrets should produce different signatures")
	}
}

func TestSign_DifferentPayloads(t *testing.T) {
	secret := []byte("my-secret")
	if Sign(secret, []byte(`{"a":1}`)) == Sign(secret, []byte(`{"a":2}`)) {
		t.Error("different payloads should produce different signatures")
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	secret := []byte("shared-secret")
	body := []byte(`{"order_id":"abc-123"}`)

	sig := Sign(secret, body)
	if !Verify(secret, body, sig) {
		t.Error("Verify should succeed for a signature produced by Sign with the same secret and body")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	body := []byte(`{"order_id":"abc-123"}`)
	sig := Sign([]byte("secret-a"), body)

	if Verify([]byte("secret-b"), body, sig) {
		t.Error("Verify should fail when the secret does not match")
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	secret := []byte("shared-secret")
	sig := Sign(secret, []byte(`{"order_id":"abc-123"}`))

	if Verify(secret, []byte(`{"order_id":"abc-999"}`), sig) {
		t.Error("Verify should fail when the body has been tampered with")
	}
}
