package domain

import (
	"github.com/mcpdeck/guard/internal/errors"
)

// URL validation error definitions.
//
// Every rejection carries a distinct sentinel so callers and tests can assert
// on why a URL was refused. A rejection is a policy decision, not a transient
// fault, and must never be retried automatically. Callers surfacing these to
// end users should report a generic "this address is not allowed" instead of
// echoing the policy internals.
var (
	// ErrInvalidFormat indicates the candidate string could not be parsed as a URL.
	ErrInvalidFormat = errors.Wrap(errors.ErrInvalidInput, "invalid url format")

	// ErrInvalidProtocol indicates a scheme other than http or https.
	ErrInvalidProtocol = errors.Wrap(errors.ErrNotAllowed, "invalid protocol")

	// ErrInvalidIP indicates an IPv4 literal with an out-of-range octet.
	ErrInvalidIP = errors.Wrap(errors.ErrInvalidInput, "invalid ip address")

	// ErrPrivateIPBlocked indicates an IPv4 literal inside a blocked range
	// (private, loopback, link-local, multicast, or reserved).
	ErrPrivateIPBlocked = errors.Wrap(errors.ErrNotAllowed, "private ip blocked")

	// ErrPrivateIPv6Blocked indicates an IPv6 literal inside a blocked prefix.
	ErrPrivateIPv6Blocked = errors.Wrap(errors.ErrNotAllowed, "private ipv6 blocked")

	// ErrIPv6NotAllowed indicates a public IPv6 literal missing from the allowlist.
	ErrIPv6NotAllowed = errors.Wrap(errors.ErrNotAllowed, "ipv6 address not allowed")

	// ErrDomainNotAllowed indicates a hostname outside the allowed domain set.
	ErrDomainNotAllowed = errors.Wrap(errors.ErrNotAllowed, "domain not allowed")

	// ErrCredentialsNotAllowed indicates embedded userinfo in the URL.
	ErrCredentialsNotAllowed = errors.Wrap(errors.ErrNotAllowed, "credentials not allowed")

	// ErrNullByteNotAllowed indicates a raw or percent-encoded null byte.
	ErrNullByteNotAllowed = errors.Wrap(errors.ErrNotAllowed, "null byte not allowed")
)
