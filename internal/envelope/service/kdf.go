package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"

	envelopeDomain "github.com/mcpdeck/guard/internal/envelope/domain"
)

// legacyPermit gates the retired key-derivation functions. It is unexported
// and only the decrypt dispatcher constructs one, so no other code path can
// reach a legacy derivation. This replaces the mutable allow-legacy flag the
// retired implementation toggled on the derivation function itself, which
// was racy and test-order dependent.
type legacyPermit struct{ _ struct{} }

// deriveKey derives a 256-bit key from the base secret and a salt using
// scrypt. This is the only derivation new encryptions are allowed to use,
// and the salt must be random.
func deriveKey(baseSecret string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key(
		[]byte(baseSecret),
		salt,
		envelopeDomain.ScryptN,
		envelopeDomain.ScryptR,
		envelopeDomain.ScryptP,
		envelopeDomain.KeySize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// deriveLegacyScryptKey reproduces the retired scrypt scheme: same cost
// parameters, but the salt is a hash of the record's legacy identifier
// instead of random bytes. Decryption-only.
func deriveLegacyScryptKey(_ legacyPermit, baseSecret, legacyID string) ([]byte, error) {
	salt := sha256.Sum256([]byte(legacyID))
	return deriveKey(baseSecret, salt[:])
}

// deriveLegacyDigestKey reproduces the oldest retired scheme: a single fast
// hash of the base secret concatenated with the hex digest of the legacy
// identifier. No work factor at all. Decryption-only.
func deriveLegacyDigestKey(_ legacyPermit, baseSecret, legacyID string) []byte {
	idDigest := sha256.Sum256([]byte(legacyID))
	key := sha256.Sum256([]byte(baseSecret + hex.EncodeToString(idDigest[:])))
	return key[:]
}
