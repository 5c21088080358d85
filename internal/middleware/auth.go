package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gwon-omega/eduflow-server/internal/auth"
	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/gwon-omega/eduflow-server/pkg/logger"
	"github.com/gwon-omega/eduflow-server/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SubdomainKey is the echo.Context key the host middleware stores the tenant
// subdomain under.
const SubdomainKey = "tenant_subdomain"

// maxBodyPeek bounds how much of a request body the explicit-id fallback
// will read.
const maxBodyPeek = 1 << 20

// HostTenant derives the tenant subdomain from the Host header. Requests on
// the apex domain or on "www" carry no subdomain signal.
func HostTenant(baseDomain string) echo.MiddlewareFunc {
	suffix := "." + baseDomain
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host := c.Request().Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			if strings.HasSuffix(host, suffix) {
				sub := strings.TrimSuffix(host, suffix)
				if sub != "" && sub != "www" && !strings.Contains(sub, ".") {
					c.Set(SubdomainKey, sub)
				}
			}
			return next(c)
		}
	}
}

// Authenticate resolves identity and institute context for every request
// behind it. cookieName is the fallback credential cookie; debug controls
// whether credential-failure reasons are surfaced to the client.
func Authenticate(resolver *auth.Resolver, cookieName string, debug bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			req := auth.Request{
				Token: extractToken(c, cookieName),
			}
			if sub, ok := c.Get(SubdomainKey).(string); ok {
				req.Subdomain = sub
			}
			if req.Subdomain == "" {
				req.ExplicitInstituteID = c.QueryParam("instituteId")
				if req.ExplicitInstituteID == "" {
					req.ExplicitInstituteID = peekInstituteID(c)
				}
			}

			rc, err := resolver.Resolve(c.Request().Context(), req)
			if err != nil {
				return rejectResolveFailure(c, log, err, debug)
			}

			// Install the resolved context for the rest of the request. The
			// echo context and the request context both carry it; nested
			// calls read whichever is closer.
			c.Set(tenantctx.EchoKey, rc)
			c.SetRequest(c.Request().WithContext(tenantctx.WithRequest(c.Request().Context(), rc)))

			log.Debug("Request context resolved",
				zap.String("institute_id", rc.InstituteID()),
				zap.String("user_id", rc.UserID()),
				zap.String("role", rc.Role()),
				zap.Bool("is_member", rc.IsMember()))

			return next(c)
		}
	}
}

// RequireTenant rejects requests for which no institute could be resolved.
func RequireTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !tenantctx.FromEcho(c).HasTenant() {
			logger.FromContext(c).Warn("Missing tenant context")
			prometheus.RecordAuthError("missing_tenant_context")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "institute context required"})
		}
		return next(c)
	}
}

// RequireMember rejects callers that are not owner, student or teacher of
// the resolved institute.
func RequireMember(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rc := tenantctx.FromEcho(c)
		if !rc.IsMember() {
			logger.FromContext(c).Warn("Non-member access attempt",
				zap.String("user_id", rc.UserID()),
				zap.String("institute_id", rc.InstituteID()))
			prometheus.RecordAuthError("not_a_member")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		}
		return next(c)
	}
}

// RequireRole allows only callers whose platform role is in roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := tenantctx.FromEcho(c)
			for _, role := range roles {
				if rc.Role() == role {
					return next(c)
				}
			}
			logger.FromContext(c).Warn("Insufficient role",
				zap.String("user_id", rc.UserID()),
				zap.String("role", rc.Role()))
			prometheus.RecordAuthError("insufficient_role")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
		}
	}
}

// extractToken picks the bearer credential: Authorization header first, then
// the auth cookie.
func extractToken(c echo.Context, cookieName string) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// peekInstituteID reads an instituteId field from a JSON body without
// consuming it for the downstream handler.
func peekInstituteID(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodyPeek))
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var body struct {
		InstituteID string `json:"instituteId"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.InstituteID
}

func rejectResolveFailure(c echo.Context, log *zap.Logger, err error, debug bool) error {
	var ae *auth.Error
	if !errors.As(err, &ae) {
		log.Error("Tenant resolution failed", zap.Error(err))
		prometheus.RecordAuthError("resolver_storage_failure")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}

	prometheus.RecordAuthError(ae.Kind.String())
	switch ae.Kind {
	case auth.KindUnauthenticated:
		log.Warn("Missing credential")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	case auth.KindInvalidCredential:
		log.Warn("Invalid credential", zap.String("reason", ae.Reason))
		resp := echo.Map{"error": "invalid or expired token"}
		if debug {
			resp["debug"] = ae.Reason
		}
		return c.JSON(http.StatusUnauthorized, resp)
	case auth.KindUnknownTenant:
		log.Warn("Unknown tenant", zap.String("reason", ae.Reason))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "institute not found at this subdomain"})
	default:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication failed"})
	}
}
