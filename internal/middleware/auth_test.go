package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gwon-omega/eduflow-server/internal/middleware"
	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseDomain = "eduflow.com.np"

func runHostTenant(t *testing.T, host string) (string, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = host
	c := e.NewContext(req, httptest.NewRecorder())

	handler := middleware.HostTenant(baseDomain)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))

	sub, ok := c.Get(middleware.SubdomainKey).(string)
	return sub, ok
}

func TestHostTenantExtractsSubdomain(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"greenhill.eduflow.com.np", "greenhill"},
		{"greenhill.eduflow.com.np:4000", "greenhill"},
		{"eduflow.com.np", ""},       // apex: no signal
		{"www.eduflow.com.np", ""},   // www is not a tenant
		{"a.b.eduflow.com.np", ""},   // nested subdomains are not tenants
		{"othersite.example.com", ""},
		{"localhost:4000", ""},
	}
	for _, tc := range cases {
		sub, ok := runHostTenant(t, tc.host)
		if tc.want == "" {
			assert.False(t, ok, tc.host)
		} else {
			require.True(t, ok, tc.host)
			assert.Equal(t, tc.want, sub, tc.host)
		}
	}
}

func withContext(rc tenantctx.Context) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(tenantctx.EchoKey, rc)
	return c, rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequireTenant(t *testing.T) {
	c, rec := withContext(tenantctx.New("inst-1", "user-1", model.RoleStudent, true, tenantctx.MemberStudent))
	require.NoError(t, middleware.RequireTenant(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = withContext(tenantctx.New("", "user-1", model.RoleStudent, false, ""))
	require.NoError(t, middleware.RequireTenant(ok)(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireMember(t *testing.T) {
	c, rec := withContext(tenantctx.New("inst-1", "user-1", model.RoleStudent, true, tenantctx.MemberStudent))
	require.NoError(t, middleware.RequireMember(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = withContext(tenantctx.New("inst-1", "user-1", model.RoleStudent, false, ""))
	require.NoError(t, middleware.RequireMember(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "access denied"))
}

func TestRequireRole(t *testing.T) {
	adminOnly := middleware.RequireRole(model.RoleSuperAdmin, model.RoleInstituteAdmin)

	c, rec := withContext(tenantctx.New("inst-1", "user-1", model.RoleInstituteAdmin, true, tenantctx.MemberOwner))
	require.NoError(t, adminOnly(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = withContext(tenantctx.New("inst-1", "user-2", model.RoleStudent, true, tenantctx.MemberStudent))
	require.NoError(t, adminOnly(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
