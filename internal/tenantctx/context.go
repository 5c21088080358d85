// Package tenantctx carries the resolved identity and institute of one request.
// The context value is immutable after resolution and scoped to exactly one
// request; it is the only sanctioned way for downstream code to learn which
// institute a request acts on.
package tenantctx

import (
	"context"

	"github.com/labstack/echo/v4"
)

// Membership describes how the caller is linked to the resolved institute.
const (
	MemberOwner    = "owner"
	MemberStudent  = "student"
	MemberTeacher  = "teacher"
	MemberPlatform = "platform" // platform super admins bypass membership checks
)

// EchoKey is the echo.Context key the resolved context is stored under.
const EchoKey = "tenant_context"

type ctxKey struct{}

// Context is the per-request, read-only bundle of resolved identity and
// institute information. The zero value means "unauthenticated, no tenant".
type Context struct {
	instituteID string
	userID      string
	role        string
	isMember    bool
	membership  string
}

// New builds a resolved request context.
func New(instituteID, userID, role string, isMember bool, membership string) Context {
	return Context{
		instituteID: instituteID,
		userID:      userID,
		role:        role,
		isMember:    isMember,
		membership:  membership,
	}
}

// InstituteID returns the resolved institute id, or "" when no tenant could
// be established.
func (c Context) InstituteID() string { return c.instituteID }

// UserID returns the authenticated caller's id.
func (c Context) UserID() string { return c.userID }

// Role returns the caller's platform role.
func (c Context) Role() string { return c.role }

// IsMember reports whether the caller is linked to the resolved institute as
// owner, student or teacher. A false value does not by itself reject the
// request; per-route policy decides.
func (c Context) IsMember() bool { return c.isMember }

// Membership returns how the caller is linked to the institute, one of the
// Member* constants, or "" when not a member.
func (c Context) Membership() string { return c.membership }

// HasTenant reports whether an institute could be resolved for this request.
func (c Context) HasTenant() bool { return c.instituteID != "" }

// WithRequest installs the resolved context into a request context.Context so
// nested calls can read it without explicit parameter threading.
func WithRequest(ctx context.Context, rc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the resolved context stored in ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	rc, ok := ctx.Value(ctxKey{}).(Context)
	return rc, ok
}

// FromEcho returns the resolved context stored in the echo context by the
// authentication middleware. The zero Context is returned when the request
// never passed through authentication.
func FromEcho(c echo.Context) Context {
	if rc, ok := c.Get(EchoKey).(Context); ok {
		return rc
	}
	return Context{}
}
