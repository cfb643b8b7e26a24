package domain

// Envelope layout and key derivation constants.
//
// A secure envelope is salt(32) ‖ iv(16) ‖ tag(16) ‖ ciphertext, base64
// encoded. The salt is random per encryption call, never derived from a
// record identifier. Legacy envelopes (decrypt-only) lack the salt prefix:
// iv(16) ‖ tag(16) ‖ ciphertext.
const (
	// SaltSize is the random salt length in bytes. Fixed at 32 so the
	// decrypt path can disambiguate secure envelopes by total length.
	SaltSize = 32

	// IVSize is the AES-GCM initialization vector length in bytes.
	IVSize = 16

	// TagSize is the AES-GCM authentication tag length in bytes.
	TagSize = 16

	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32

	// MinSecureEnvelopeSize is the smallest decoded length a secure-format
	// envelope can have (salt + IV + tag, empty ciphertext excluded by the
	// non-empty plaintext requirement).
	MinSecureEnvelopeSize = SaltSize + IVSize + TagSize

	// MinLegacyEnvelopeSize is the smallest decoded length a legacy-format
	// envelope can have (IV + tag).
	MinLegacyEnvelopeSize = IVSize + TagSize
)

// scrypt cost parameters for passphrase-based key derivation. Deliberately
// CPU/memory-hard; a single fast hash is never acceptable for deriving keys
// from the base secret.
const (
	ScryptN = 16384
	ScryptR = 8
	ScryptP = 1
)

// EncryptionVersionSecure marks records whose envelopes were produced by the
// current random-salt scheme.
const EncryptionVersionSecure = 2

// Format names the envelope scheme a decryption attempt succeeded under.
type Format string

const (
	// FormatSecure is the current scheme: random salt, scrypt-derived key.
	FormatSecure Format = "secure"

	// FormatLegacyScrypt is the retired scheme with an scrypt-derived key
	// over a predictable salt (hash of the record's legacy identifier).
	FormatLegacyScrypt Format = "legacy-scrypt"

	// FormatLegacyDigest is the oldest retired scheme: key from a single
	// fast hash of the base secret and the legacy identifier digest.
	FormatLegacyDigest Format = "legacy-digest"
)

// IsLegacy reports whether the format is one of the retired schemes.
func (f Format) IsLegacy() bool {
	return f == FormatLegacyScrypt || f == FormatLegacyDigest
}
