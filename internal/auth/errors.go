package auth

import "fmt"

// Kind classifies a resolution failure. All kinds are terminal for the
// request; none are retried.
type Kind int

const (
	// KindUnauthenticated means no credential was supplied at all.
	KindUnauthenticated Kind = iota
	// KindInvalidCredential means a credential was supplied but failed
	// verification, or was malformed after verification.
	KindInvalidCredential
	// KindUnknownTenant means the resolved subdomain maps to no institute.
	// Distinct from credential failures: the URL is wrong, not the login.
	KindUnknownTenant
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindUnknownTenant:
		return "unknown_tenant"
	default:
		return "unknown"
	}
}

// Error is a classified resolution failure. Reason carries the underlying
// cause for diagnostics; callers decide whether to surface it.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
