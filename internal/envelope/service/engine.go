// Package service implements the envelope encryption engine: AES-256-GCM
// over scrypt-derived per-record keys, with a versioned decryption path that
// still reads two retired formats.
package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	envelopeDomain "github.com/mcpdeck/guard/internal/envelope/domain"
	apperrors "github.com/mcpdeck/guard/internal/errors"
	"github.com/mcpdeck/guard/internal/validation"
)

// Engine encrypts and decrypts individual field values as self-describing
// envelope strings.
//
// Encryption always uses the secure format: a fresh random 32-byte salt, an
// scrypt-derived AES-256 key, a random 16-byte IV, and a 16-byte GCM tag,
// concatenated as salt ‖ iv ‖ tag ‖ ciphertext and base64 encoded. Two
// encryptions of the same plaintext therefore never produce the same
// envelope.
//
// Decryption additionally recognizes the two retired formats (predictable
// salt derived from a record identifier) so data written before the
// migration stays readable. The engine can never produce a legacy envelope.
//
// The engine is stateless after construction and safe for concurrent use.
type Engine struct {
	baseSecret string
}

// NewEngine creates an Engine after validating the base secret.
//
// Returns ErrKeyNotConfigured when the secret is empty and ErrInvalidKey
// when it fails strength validation (shorter than 32 characters, a single
// repeated character, sequential digits, or a guessable substring).
func NewEngine(baseSecret string) (*Engine, error) {
	if baseSecret == "" {
		return nil, envelopeDomain.ErrKeyNotConfigured
	}

	rule := validation.BaseSecretStrength{MinLength: 32}
	if err := rule.Validate(baseSecret); err != nil {
		return nil, apperrors.Wrap(envelopeDomain.ErrInvalidKey, err.Error())
	}

	return &Engine{baseSecret: baseSecret}, nil
}

// Encrypt serializes value (strings pass through, everything else is JSON
// encoded) and returns a secure-format envelope string.
func (e *Engine) Encrypt(value any) (string, error) {
	plaintext, err := serialize(value)
	if err != nil {
		return "", err
	}
	if len(plaintext) == 0 {
		return "", envelopeDomain.ErrEmptyInput
	}

	salt := make([]byte, envelopeDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := deriveKey(e.baseSecret, salt)
	if err != nil {
		return "", err
	}
	defer envelopeDomain.Zero(key)

	iv := make([]byte, envelopeDomain.IVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	ciphertext, tag, err := sealAESGCM(key, iv, plaintext)
	if err != nil {
		return "", err
	}

	envelope := make([]byte, 0, envelopeDomain.MinSecureEnvelopeSize+len(ciphertext))
	envelope = append(envelope, salt...)
	envelope = append(envelope, iv...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ciphertext...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens an envelope produced under any supported format. The
// plaintext is JSON-parsed when possible, otherwise returned as a string.
//
// legacyID is consumed only by the retired-format fallbacks; pass the
// record's legacy identifier (tenant/profile id).
func (e *Engine) Decrypt(envelope, legacyID string) (any, error) {
	value, _, err := e.DecryptWithFormat(envelope, legacyID)
	return value, err
}

// decryptAttempt is one entry of the closed, ordered format list the
// dispatcher walks. Adding a format here is a deliberate, reviewed change.
type decryptAttempt struct {
	format envelopeDomain.Format
	open   func(decoded []byte) ([]byte, error)
}

// DecryptWithFormat behaves like Decrypt and also reports which format the
// envelope was encrypted under, so the migration runner can skip records
// that are already secure.
func (e *Engine) DecryptWithFormat(
	envelope, legacyID string,
) (any, envelopeDomain.Format, error) {
	if envelope == "" {
		return nil, "", envelopeDomain.ErrEmptyInput
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, "", envelopeDomain.ErrDecryptionFailed
	}

	permit := legacyPermit{}
	attempts := []decryptAttempt{
		{
			format: envelopeDomain.FormatSecure,
			open: func(decoded []byte) ([]byte, error) {
				return e.openSecure(decoded)
			},
		},
		{
			format: envelopeDomain.FormatLegacyScrypt,
			open: func(decoded []byte) ([]byte, error) {
				key, err := deriveLegacyScryptKey(permit, e.baseSecret, legacyID)
				if err != nil {
					return nil, err
				}
				defer envelopeDomain.Zero(key)
				return openLegacy(key, decoded)
			},
		},
		{
			format: envelopeDomain.FormatLegacyDigest,
			open: func(decoded []byte) ([]byte, error) {
				key := deriveLegacyDigestKey(permit, e.baseSecret, legacyID)
				defer envelopeDomain.Zero(key)
				return openLegacy(key, decoded)
			},
		},
	}

	for _, attempt := range attempts {
		plaintext, err := attempt.open(decoded)
		if err != nil {
			continue
		}
		return deserialize(plaintext), attempt.format, nil
	}

	// Never fall back to returning ciphertext or partial data, and never
	// reveal which attempts were made.
	return nil, "", envelopeDomain.ErrDecryptionFailed
}

// openSecure slices a secure-format envelope and decrypts it with a key
// derived from the embedded salt.
func (e *Engine) openSecure(decoded []byte) ([]byte, error) {
	if len(decoded) < envelopeDomain.MinSecureEnvelopeSize {
		return nil, envelopeDomain.ErrDecryptionFailed
	}

	salt := decoded[:envelopeDomain.SaltSize]
	rest := decoded[envelopeDomain.SaltSize:]

	key, err := deriveKey(e.baseSecret, salt)
	if err != nil {
		return nil, err
	}
	defer envelopeDomain.Zero(key)

	return openSliced(key, rest)
}

// openLegacy slices a legacy-format envelope (iv ‖ tag ‖ ciphertext) and
// decrypts it with the pre-derived legacy key.
func openLegacy(key, decoded []byte) ([]byte, error) {
	if len(decoded) < envelopeDomain.MinLegacyEnvelopeSize {
		return nil, envelopeDomain.ErrDecryptionFailed
	}
	return openSliced(key, decoded)
}

// openSliced decrypts iv ‖ tag ‖ ciphertext with the given key.
func openSliced(key, data []byte) ([]byte, error) {
	iv := data[:envelopeDomain.IVSize]
	tag := data[envelopeDomain.IVSize : envelopeDomain.IVSize+envelopeDomain.TagSize]
	ciphertext := data[envelopeDomain.IVSize+envelopeDomain.TagSize:]

	return openAESGCM(key, iv, ciphertext, tag)
}

// sealAESGCM encrypts plaintext with AES-256-GCM, returning ciphertext and
// tag separately to match the envelope layout.
func sealAESGCM(key, iv, plaintext []byte) (ciphertext, tag []byte, err error) {
	aead, err := newAESGCM(key)
	if err != nil {
		return nil, nil, err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - envelopeDomain.TagSize
	return sealed[:split], sealed[split:], nil
}

// openAESGCM decrypts and authenticates ciphertext ‖ tag with AES-256-GCM.
func openAESGCM(key, iv, ciphertext, tag []byte) ([]byte, error) {
	aead, err := newAESGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, envelopeDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// newAESGCM builds an AES-256-GCM AEAD with the envelope's 16-byte IV size.
func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, envelopeDomain.IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// serialize turns a value into plaintext bytes: strings pass through,
// everything else is JSON encoded.
func serialize(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, envelopeDomain.ErrEmptyInput
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "value is not serializable")
		}
		return encoded, nil
	}
}

// deserialize JSON-parses plaintext when possible, otherwise returns the
// raw string.
func deserialize(plaintext []byte) any {
	var value any
	if err := json.Unmarshal(plaintext, &value); err == nil {
		return value
	}
	return string(plaintext)
}
