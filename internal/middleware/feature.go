package middleware

import (
	"errors"
	"net/http"

	"github.com/gwon-omega/eduflow-server/internal/feature"
	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/gwon-omega/eduflow-server/pkg/logger"
	"github.com/gwon-omega/eduflow-server/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequireFeature gates a route group behind a subscription-tier feature
// flag. The resolved institute's tier decides; routes without tenant context
// are rejected.
func RequireFeature(db *gorm.DB, key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)
			rc := tenantctx.FromEcho(c)
			if !rc.HasTenant() {
				prometheus.RecordAuthError("missing_tenant_context")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "institute context required"})
			}

			var inst model.Institute
			err := db.WithContext(c.Request().Context()).
				Select("subscription_tier").
				Where("id = ?", rc.InstituteID()).
				First(&inst).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return c.JSON(http.StatusNotFound, echo.Map{"error": "institute not found"})
				}
				log.Error("Failed to load institute tier", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
			}

			if !feature.HasFeature(inst.SubscriptionTier, key) {
				log.Info("Feature not in subscription tier",
					zap.String("institute_id", rc.InstituteID()),
					zap.String("tier", inst.SubscriptionTier),
					zap.String("feature", key))
				return c.JSON(http.StatusPaymentRequired, echo.Map{
					"error":   "feature not available on current plan",
					"feature": key,
				})
			}

			return next(c)
		}
	}
}
