package domain

import (
	"github.com/mcpdeck/guard/internal/errors"
)

// Envelope encryption error definitions.
//
// These wrap the shared sentinels from internal/errors so callers can branch
// with errors.Is without importing crypto internals.
var (
	// ErrKeyNotConfigured indicates the base secret is missing or empty.
	// Fatal to the calling operation; nothing can be encrypted or decrypted.
	ErrKeyNotConfigured = errors.Wrap(errors.ErrInvalidInput, "encryption key not configured")

	// ErrInvalidKey indicates the base secret failed strength validation
	// (too short, repeated characters, sequential digits, or guessable words).
	ErrInvalidKey = errors.Wrap(errors.ErrInvalidInput, "invalid encryption key")

	// ErrEmptyInput indicates there was nothing to encrypt or decrypt.
	ErrEmptyInput = errors.Wrap(errors.ErrInvalidInput, "empty input")

	// ErrDecryptionFailed indicates every format attempt was exhausted: the
	// envelope is corrupt, tampered with, or encrypted under an unknown key.
	//
	// The failing sub-reason is deliberately not exposed to external callers
	// to avoid oracle attacks.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
