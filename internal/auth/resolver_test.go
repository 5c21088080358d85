package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gwon-omega/eduflow-server/internal/auth"
	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/store"
	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/gwon-omega/eduflow-server/pkg/jwtutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	claims map[string]*jwtutil.UserClaims
}

func (v *fakeVerifier) Verify(token string) (*jwtutil.UserClaims, error) {
	if c, ok := v.claims[token]; ok {
		return c, nil
	}
	return nil, errors.New("signature invalid")
}

type fakeDirectory struct {
	bySubdomain map[string]*model.Institute
	byOwner     map[string]*model.Institute
	students    map[string]string // userID -> instituteID
	teachers    map[string]string
	failWith    error
}

func (d *fakeDirectory) InstituteBySubdomain(_ context.Context, subdomain string) (*model.Institute, error) {
	if d.failWith != nil {
		return nil, d.failWith
	}
	if inst, ok := d.bySubdomain[subdomain]; ok {
		return inst, nil
	}
	return nil, store.ErrNotFound
}

func (d *fakeDirectory) OwnedInstitute(_ context.Context, ownerID string) (*model.Institute, error) {
	if d.failWith != nil {
		return nil, d.failWith
	}
	if inst, ok := d.byOwner[ownerID]; ok {
		return inst, nil
	}
	return nil, store.ErrNotFound
}

func (d *fakeDirectory) IsStudent(_ context.Context, userID, instituteID string) (bool, error) {
	if d.failWith != nil {
		return false, d.failWith
	}
	return d.students[userID] == instituteID, nil
}

func (d *fakeDirectory) IsTeacher(_ context.Context, userID, instituteID string) (bool, error) {
	if d.failWith != nil {
		return false, d.failWith
	}
	return d.teachers[userID] == instituteID, nil
}

const (
	instID  = "inst-1"
	ownerID = "user-owner"
)

func fixture() (*fakeVerifier, *fakeDirectory) {
	inst := &model.Institute{OwnerID: ownerID}
	inst.ID = instID
	inst.Subdomain = "greenhill"

	verifier := &fakeVerifier{claims: map[string]*jwtutil.UserClaims{
		"tok-owner":   {UserID: ownerID, Role: model.RoleInstituteAdmin},
		"tok-student": {UserID: "user-student", Role: model.RoleStudent},
		"tok-teacher": {UserID: "user-teacher", Role: model.RoleTeacher},
		"tok-super":   {UserID: "user-super", Role: model.RoleSuperAdmin},
		"tok-nobody":  {UserID: "user-nobody", Role: model.RoleStudent},
		"tok-nosub":   {UserID: "", Role: model.RoleStudent},
	}}
	dir := &fakeDirectory{
		bySubdomain: map[string]*model.Institute{"greenhill": inst},
		byOwner:     map[string]*model.Institute{ownerID: inst},
		students:    map[string]string{"user-student": instID},
		teachers:    map[string]string{"user-teacher": instID},
	}
	return verifier, dir
}

func TestResolveRejectsMissingToken(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	_, err := r.Resolve(context.Background(), auth.Request{Subdomain: "greenhill"})
	var authErr *auth.Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, auth.KindUnauthenticated, authErr.Kind)
}

func TestResolveRejectsBadToken(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	_, err := r.Resolve(context.Background(), auth.Request{Token: "garbage", Subdomain: "greenhill"})
	var authErr *auth.Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, auth.KindInvalidCredential, authErr.Kind)
}

func TestResolveRejectsTokenWithoutSubject(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	_, err := r.Resolve(context.Background(), auth.Request{Token: "tok-nosub"})
	var authErr *auth.Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, auth.KindInvalidCredential, authErr.Kind)
}

func TestResolveUnknownSubdomain(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	_, err := r.Resolve(context.Background(), auth.Request{Token: "tok-student", Subdomain: "no-such-school"})
	var authErr *auth.Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, auth.KindUnknownTenant, authErr.Kind)
}

func TestResolveSubdomainMemberships(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)
	ctx := context.Background()

	cases := []struct {
		name       string
		token      string
		wantMember bool
		membership string
	}{
		{"owner", "tok-owner", true, tenantctx.MemberOwner},
		{"student", "tok-student", true, tenantctx.MemberStudent},
		{"teacher", "tok-teacher", true, tenantctx.MemberTeacher},
		{"platform admin", "tok-super", true, tenantctx.MemberPlatform},
		{"outsider", "tok-nobody", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rc, err := r.Resolve(ctx, auth.Request{Token: tc.token, Subdomain: "greenhill"})
			require.NoError(t, err)
			assert.Equal(t, instID, rc.InstituteID())
			assert.Equal(t, tc.wantMember, rc.IsMember())
			assert.Equal(t, tc.membership, rc.Membership())
		})
	}
}

func TestResolveOutsiderStillGetsContext(t *testing.T) {
	// A valid user with no relationship to the institute resolves successfully;
	// rejecting non-members is a route-level concern.
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	rc, err := r.Resolve(context.Background(), auth.Request{Token: "tok-nobody", Subdomain: "greenhill"})
	require.NoError(t, err)
	assert.True(t, rc.HasTenant())
	assert.False(t, rc.IsMember())
}

func TestResolveSubdomainOutranksExplicitID(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	rc, err := r.Resolve(context.Background(), auth.Request{
		Token:               "tok-student",
		Subdomain:           "greenhill",
		ExplicitInstituteID: "inst-other",
	})
	require.NoError(t, err)
	assert.Equal(t, instID, rc.InstituteID())
}

func TestResolveExplicitID(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	rc, err := r.Resolve(context.Background(), auth.Request{
		Token:               "tok-student",
		ExplicitInstituteID: "inst-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "inst-42", rc.InstituteID())
	// Explicit ids carry no membership claim.
	assert.False(t, rc.IsMember())
}

func TestResolveOwnedInstituteFallback(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	rc, err := r.Resolve(context.Background(), auth.Request{Token: "tok-owner"})
	require.NoError(t, err)
	assert.Equal(t, instID, rc.InstituteID())
	assert.True(t, rc.IsMember())
	assert.Equal(t, tenantctx.MemberOwner, rc.Membership())
}

func TestResolveNoTenantSignalIsLegal(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)

	// A student with no subdomain, explicit id or owned institute resolves to
	// an empty tenant.
	rc, err := r.Resolve(context.Background(), auth.Request{Token: "tok-student"})
	require.NoError(t, err)
	assert.False(t, rc.HasTenant())
	assert.Equal(t, "user-student", rc.UserID())
}

func TestResolveStorageFailurePassesThrough(t *testing.T) {
	verifier, dir := fixture()
	dir.failWith = &store.StorageError{Err: errors.New("connection refused")}
	r := auth.NewResolver(verifier, dir)

	_, err := r.Resolve(context.Background(), auth.Request{Token: "tok-student", Subdomain: "greenhill"})
	var storageErr *store.StorageError
	require.ErrorAs(t, err, &storageErr)
	var authErr *auth.Error
	assert.False(t, errors.As(err, &authErr))
}

func TestResolveIsIdempotent(t *testing.T) {
	verifier, dir := fixture()
	r := auth.NewResolver(verifier, dir)
	ctx := context.Background()
	req := auth.Request{Token: "tok-teacher", Subdomain: "greenhill"}

	first, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
