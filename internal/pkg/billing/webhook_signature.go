package billing

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrSecretNotConfigured means the server has no secret for the provider;
	// every delivery is refused until one is set.
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrInvalidSecret       = errors.New("invalid webhook secret")
)

// VerifySharedSecret checks the secret a checkout provider echoes back in
// its payload. ThriveCart sends it in plain text as thrivecart_secret.
func VerifySharedSecret(expected, provided string) error {
	exp := strings.TrimSpace(expected)
	got := strings.TrimSpace(provided)
	if exp == "" {
		return ErrSecretNotConfigured
	}
	if got == "" || subtle.ConstantTimeCompare([]byte(exp), []byte(got)) != 1 {
		return ErrInvalidSecret
	}
	return nil
}
