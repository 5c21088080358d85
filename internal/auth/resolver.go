// Package auth resolves the identity and institute context of one inbound
// request before any feature handler runs. A bug here is a cross-tenant data
// exposure, so the resolver is deliberately small, read-only and heavily
// tested.
package auth

import (
	"context"
	"errors"

	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/store"
	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/gwon-omega/eduflow-server/pkg/jwtutil"
	"golang.org/x/sync/errgroup"
)

// TokenVerifier verifies a bearer credential and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwtutil.UserClaims, error)
}

// Directory answers the read-only lookups the resolver needs. Absence is
// reported as store.ErrNotFound; any other error is a storage failure.
type Directory interface {
	InstituteBySubdomain(ctx context.Context, subdomain string) (*model.Institute, error)
	OwnedInstitute(ctx context.Context, ownerID string) (*model.Institute, error)
	IsStudent(ctx context.Context, userID, instituteID string) (bool, error)
	IsTeacher(ctx context.Context, userID, instituteID string) (bool, error)
}

// Request carries the competing tenant signals of one inbound request.
type Request struct {
	// Token is the bearer credential (header takes priority over cookie;
	// the transport layer has already made that choice).
	Token string
	// Subdomain is the tenant subdomain derived from the Host header, or "".
	// It is the highest-trust tenant signal.
	Subdomain string
	// ExplicitInstituteID is a caller-supplied institute id from the query
	// string or request body, consulted only when no subdomain is present.
	ExplicitInstituteID string
}

// Resolver produces the request context for every authenticated route.
type Resolver struct {
	verifier TokenVerifier
	dir      Directory
}

// NewResolver builds a resolver over the given collaborators.
func NewResolver(verifier TokenVerifier, dir Directory) *Resolver {
	return &Resolver{verifier: verifier, dir: dir}
}

// Resolve authenticates the caller and determines the active institute.
// Failures are *Error values; storage-engine failures pass through wrapped as
// *store.StorageError. Resolve performs no writes.
func (r *Resolver) Resolve(ctx context.Context, req Request) (tenantctx.Context, error) {
	var zero tenantctx.Context

	// 1. Credential verification.
	if req.Token == "" {
		return zero, &Error{Kind: KindUnauthenticated, Reason: "no credential supplied"}
	}
	claims, err := r.verifier.Verify(req.Token)
	if err != nil {
		return zero, &Error{Kind: KindInvalidCredential, Reason: err.Error(), Err: err}
	}
	if claims.UserID == "" {
		// A verified token without a subject id is malformed.
		return zero, &Error{Kind: KindInvalidCredential, Reason: "token missing subject id"}
	}

	// 2. Tenant resolution, subdomain path (highest trust).
	if req.Subdomain != "" {
		return r.resolveBySubdomain(ctx, req.Subdomain, claims)
	}

	// 3. Tenant resolution, explicit id path (lower trust).
	instituteID := req.ExplicitInstituteID
	isMember := false
	membership := ""
	if instituteID == "" && claims.Role == model.RoleInstituteAdmin {
		owned, err := r.dir.OwnedInstitute(ctx, claims.UserID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return zero, err
		}
		if owned != nil {
			instituteID = owned.ID
			isMember = true
			membership = tenantctx.MemberOwner
		}
	}

	// An empty institute id is a legal outcome; routes that need tenant
	// context reject independently.
	return tenantctx.New(instituteID, claims.UserID, claims.Role, isMember, membership), nil
}

func (r *Resolver) resolveBySubdomain(ctx context.Context, subdomain string, claims *jwtutil.UserClaims) (tenantctx.Context, error) {
	var zero tenantctx.Context

	inst, err := r.dir.InstituteBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, &Error{Kind: KindUnknownTenant, Reason: "no institute at subdomain " + subdomain}
		}
		return zero, err
	}

	isMember := false
	membership := ""
	switch {
	case claims.Role == model.RoleSuperAdmin:
		isMember = true
		membership = tenantctx.MemberPlatform
	case inst.OwnerID == claims.UserID:
		isMember = true
		membership = tenantctx.MemberOwner
	default:
		// Membership is established fact, not enforcement: absence of a
		// student or teacher record does not reject the request here.
		var student, teacher bool
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			student, err = r.dir.IsStudent(gctx, claims.UserID, inst.ID)
			return err
		})
		g.Go(func() error {
			var err error
			teacher, err = r.dir.IsTeacher(gctx, claims.UserID, inst.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			return zero, err
		}
		switch {
		case student:
			isMember = true
			membership = tenantctx.MemberStudent
		case teacher:
			isMember = true
			membership = tenantctx.MemberTeacher
		}
	}

	return tenantctx.New(inst.ID, claims.UserID, claims.Role, isMember, membership), nil
}
