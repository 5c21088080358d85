package tenantctx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueMeansNoTenant(t *testing.T) {
	var rc tenantctx.Context
	assert.False(t, rc.HasTenant())
	assert.False(t, rc.IsMember())
	assert.Empty(t, rc.UserID())
}

func TestAccessors(t *testing.T) {
	rc := tenantctx.New("inst-1", "user-1", "teacher", true, tenantctx.MemberTeacher)
	assert.Equal(t, "inst-1", rc.InstituteID())
	assert.Equal(t, "user-1", rc.UserID())
	assert.Equal(t, "teacher", rc.Role())
	assert.True(t, rc.IsMember())
	assert.Equal(t, tenantctx.MemberTeacher, rc.Membership())
	assert.True(t, rc.HasTenant())
}

func TestRequestContextRoundTrip(t *testing.T) {
	rc := tenantctx.New("inst-1", "user-1", "student", true, tenantctx.MemberStudent)

	ctx := tenantctx.WithRequest(context.Background(), rc)
	got, ok := tenantctx.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, rc, got)

	_, ok = tenantctx.FromContext(context.Background())
	assert.False(t, ok)
}

func TestFromEcho(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	// Unauthenticated request yields the zero context.
	assert.False(t, tenantctx.FromEcho(c).HasTenant())

	rc := tenantctx.New("inst-1", "user-1", "student", true, tenantctx.MemberStudent)
	c.Set(tenantctx.EchoKey, rc)
	assert.Equal(t, rc, tenantctx.FromEcho(c))
}
