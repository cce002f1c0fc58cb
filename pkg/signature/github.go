package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidFormat    = errors.New("invalid signature format")
)

const (
	sha256Prefix = "sha256="
	sha1Prefix   = "sha1="
)

// ValidateGitHubSignature checks the X-Hub-Signature-256 header value
// against the raw request body.
func ValidateGitHubSignature(signature string, payload []byte, secret string) error {
	return validate(signature, sha256Prefix, sha256.New, payload, secret)
}

// ValidateGitHubSignatureSHA1 checks the legacy X-Hub-Signature header.
func ValidateGitHubSignatureSHA1(signature string, payload []byte, secret string) error {
	return validate(signature, sha1Prefix, sha1.New, payload, secret)
}

// Sign returns the X-Hub-Signature-256 value GitHub would send for payload.
func Sign(payload []byte, secret string) string {
	return sha256Prefix + hex.EncodeToString(digest(sha256.New, payload, secret))
}

func validate(signature, prefix string, h func() hash.Hash, payload []byte, secret string) error {
	if signature == "" {
		return ErrMissingSignature
	}
	sig, ok := strings.CutPrefix(signature, prefix)
	if !ok {
		return ErrInvalidFormat
	}

	expected, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}
	// constant-time compare
	if !hmac.Equal(expected, digest(h, payload, secret)) {
		return ErrInvalidSignature
	}
	return nil
}

func digest(h func() hash.Hash, payload []byte, secret string) []byte {
	mac := hmac.New(h, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}
