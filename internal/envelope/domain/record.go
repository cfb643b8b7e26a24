// Package domain defines the envelope formats, server secret record type,
// and error taxonomy for field-level encryption.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionType declares how a registered server is launched or reached,
// which in turn determines its sensitive fields.
type ConnectionType string

const (
	// ConnectionStdio servers are spawned locally: command, args and env
	// are the sensitive fields.
	ConnectionStdio ConnectionType = "stdio"

	// ConnectionHTTP servers are reached over HTTP: the URL is sensitive.
	ConnectionHTTP ConnectionType = "http"

	// ConnectionSSE servers are reached over server-sent events: the URL is
	// sensitive.
	ConnectionSSE ConnectionType = "sse"
)

// ServerSecretRecord holds a registered server's sensitive configuration.
// Up to four fields are independently encrypted; each plaintext field has an
// encrypted twin holding the envelope string. Plaintext and envelope are
// never populated at the same time outside of an in-flight encrypt/decrypt.
type ServerSecretRecord struct {
	ID             uuid.UUID
	TenantID       string
	Name           string
	ConnectionType ConnectionType

	// Plaintext sensitive fields, populated only after DecryptRecord.
	Command *string
	Args    []string
	Env     map[string]string
	URL     *string

	// Envelope strings, populated by EncryptRecord and persisted.
	CommandEncrypted *string
	ArgsEncrypted    *string
	EnvEncrypted     *string
	URLEncrypted     *string

	// EncryptionVersion is EncryptionVersionSecure once every envelope on
	// the record was produced by the random-salt scheme.
	EncryptionVersion int

	// Template sharing markers, set by SanitizedTemplate.
	RequiresCredentials bool
	CredentialFields    []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LegacyIdentifier returns the per-record string the retired key-derivation
// schemes used as a predictable salt source. Only the decrypt fallback path
// consumes it.
func (r *ServerSecretRecord) LegacyIdentifier() string {
	return r.TenantID
}

// CredentialFieldsFor returns the sensitive field names implied by the
// connection type, used when building sanitized templates.
func CredentialFieldsFor(ct ConnectionType) []string {
	switch ct {
	case ConnectionStdio:
		return []string{"command", "args", "env"}
	default:
		return []string{"url"}
	}
}
