package auth

import "errors"

var (
	// ErrValidation indicates missing required user input.
	ErrValidation = errors.New("validation failed")
	// ErrAuth indicates rejected credentials or a malformed login response.
	ErrAuth = errors.New("authentication failed")
	// ErrStateMismatch indicates the OAuth callback state did not match
	// the stored nonce, or no handshake was in flight.
	ErrStateMismatch = errors.New("login state mismatch")
	// ErrKeyProvisioning indicates every key-resolution fallback step
	// was exhausted.
	ErrKeyProvisioning = errors.New("api key provisioning failed")
)
