package service

import (
	"log/slog"

	envelopeDomain "github.com/mcpdeck/guard/internal/envelope/domain"
)

// RecordCipher applies the envelope engine to the four sensitive fields of a
// server secret record (command, args, env, url).
type RecordCipher struct {
	engine *Engine
	logger *slog.Logger
}

// NewRecordCipher creates a RecordCipher using the given engine and logger.
func NewRecordCipher(engine *Engine, logger *slog.Logger) *RecordCipher {
	return &RecordCipher{
		engine: engine,
		logger: logger,
	}
}

// EncryptRecord returns a copy of the record with every populated sensitive
// field replaced by its envelope twin and the secure version stamp set.
// Plaintext fields are cleared on the returned copy.
func (rc *RecordCipher) EncryptRecord(
	record *envelopeDomain.ServerSecretRecord,
) (*envelopeDomain.ServerSecretRecord, error) {
	out := *record

	if record.Command != nil {
		envelope, err := rc.engine.Encrypt(*record.Command)
		if err != nil {
			return nil, err
		}
		out.CommandEncrypted = &envelope
	}

	if len(record.Args) > 0 {
		envelope, err := rc.engine.Encrypt(record.Args)
		if err != nil {
			return nil, err
		}
		out.ArgsEncrypted = &envelope
	}

	if len(record.Env) > 0 {
		envelope, err := rc.engine.Encrypt(record.Env)
		if err != nil {
			return nil, err
		}
		out.EnvEncrypted = &envelope
	}

	if record.URL != nil {
		envelope, err := rc.engine.Encrypt(*record.URL)
		if err != nil {
			return nil, err
		}
		out.URLEncrypted = &envelope
	}

	out.Command = nil
	out.Args = nil
	out.Env = nil
	out.URL = nil
	out.EncryptionVersion = envelopeDomain.EncryptionVersionSecure

	return &out, nil
}

// DecryptRecord returns a copy of the record with plaintext fields restored
// from their envelopes. A malformed envelope on one field must not block
// access to the others: the failure is logged and the field gets a safe
// default (nil scalar, empty args slice, empty env map).
func (rc *RecordCipher) DecryptRecord(
	record *envelopeDomain.ServerSecretRecord,
) *envelopeDomain.ServerSecretRecord {
	out := *record
	legacyID := record.LegacyIdentifier()

	if record.CommandEncrypted != nil {
		if value, err := rc.engine.Decrypt(*record.CommandEncrypted, legacyID); err != nil {
			rc.warnFieldFailure(record, "command", err)
			out.Command = nil
		} else {
			out.Command = asStringPtr(value)
		}
	}

	if record.ArgsEncrypted != nil {
		if value, err := rc.engine.Decrypt(*record.ArgsEncrypted, legacyID); err != nil {
			rc.warnFieldFailure(record, "args", err)
			out.Args = []string{}
		} else {
			out.Args = asStringSlice(value)
		}
	}

	if record.EnvEncrypted != nil {
		if value, err := rc.engine.Decrypt(*record.EnvEncrypted, legacyID); err != nil {
			rc.warnFieldFailure(record, "env", err)
			out.Env = map[string]string{}
		} else {
			out.Env = asStringMap(value)
		}
	}

	if record.URLEncrypted != nil {
		if value, err := rc.engine.Decrypt(*record.URLEncrypted, legacyID); err != nil {
			rc.warnFieldFailure(record, "url", err)
			out.URL = nil
		} else {
			out.URL = asStringPtr(value)
		}
	}

	return &out
}

// SanitizedTemplate returns a copy of the record safe for sharing: every
// sensitive field, plaintext and encrypted, is stripped and replaced with
// the credential markers implied by the connection type.
func (rc *RecordCipher) SanitizedTemplate(
	record *envelopeDomain.ServerSecretRecord,
) *envelopeDomain.ServerSecretRecord {
	out := *record

	out.Command = nil
	out.Args = nil
	out.Env = nil
	out.URL = nil
	out.CommandEncrypted = nil
	out.ArgsEncrypted = nil
	out.EnvEncrypted = nil
	out.URLEncrypted = nil
	out.EncryptionVersion = 0

	out.RequiresCredentials = true
	out.CredentialFields = envelopeDomain.CredentialFieldsFor(record.ConnectionType)

	return &out
}

// warnFieldFailure logs a per-field decryption failure without the envelope
// contents; only the record id, field name, and error kind appear.
func (rc *RecordCipher) warnFieldFailure(
	record *envelopeDomain.ServerSecretRecord,
	field string,
	err error,
) {
	rc.logger.Warn("failed to decrypt record field",
		slog.String("record_id", record.ID.String()),
		slog.String("field", field),
		slog.Any("error", err),
	)
}

// asStringPtr coerces a decrypted value to a scalar string field.
func asStringPtr(value any) *string {
	switch v := value.(type) {
	case string:
		return &v
	default:
		return nil
	}
}

// asStringSlice coerces a decrypted JSON array to a string slice.
// Non-string elements are dropped.
func asStringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// asStringMap coerces a decrypted JSON object to a string map.
// Non-string values are dropped.
func asStringMap(value any) map[string]string {
	entries, ok := value.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(entries))
	for k, v := range entries {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
