package handler

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gwon-omega/eduflow-server/internal/feature"
	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/store"
	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/gwon-omega/eduflow-server/pkg/database"
	"github.com/gwon-omega/eduflow-server/pkg/logger"
	"github.com/gwon-omega/eduflow-server/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

// CreateInstitute registers a new institute owned by the caller. New
// institutes start on the trial tier.
func CreateInstitute(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("create")
	rc := tenantctx.FromEcho(c)

	var req struct {
		InstituteName string `json:"institute_name"`
		Subdomain     string `json:"subdomain"`
		Type          string `json:"type,omitempty"`
		Address       string `json:"address,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse institute creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.InstituteName == "" || req.Subdomain == "" {
		log.Error("Invalid institute data", zap.String("name", req.InstituteName))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "institute_name and subdomain are required"})
	}

	if !subdomainPattern.MatchString(req.Subdomain) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid subdomain"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	// Subdomains are globally unique.
	var count int64
	database.GetDB().Model(&model.Institute{}).Where("subdomain = ?", req.Subdomain).Count(&count)
	if count > 0 {
		log.Warn("Subdomain already taken", zap.String("subdomain", req.Subdomain))
		return c.JSON(http.StatusConflict, echo.Map{"error": "subdomain already taken"})
	}

	// One institute per owner.
	database.GetDB().Model(&model.Institute{}).Where("owner_id = ?", rc.UserID()).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "you already own an institute"})
	}

	instType := req.Type
	if instType == "" {
		instType = "SCHOOL"
	}

	inst := model.Institute{
		InstituteName:    req.InstituteName,
		Subdomain:        req.Subdomain,
		OwnerID:          rc.UserID(),
		Type:             instType,
		Address:          req.Address,
		IsActive:         true,
		AccountStatus:    model.StatusTrial,
		SubscriptionTier: feature.TierTrial,
	}

	if result := database.GetDB().Create(&inst); result.Error != nil {
		log.Error("Failed to create institute", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "institute creation failed"})
	}

	log.Info("Institute created",
		zap.String("id", inst.ID),
		zap.String("subdomain", inst.Subdomain),
		zap.String("owner_id", inst.OwnerID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "Institute created successfully",
		"institute": inst,
	})
}

// GetInstitute returns the resolved institute's public profile.
func GetInstitute(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("access")
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var inst model.Institute
	if result := database.GetDB().First(&inst, "id = ?", rc.InstituteID()); result.Error != nil {
		log.Error("Institute not found", zap.String("id", rc.InstituteID()))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "institute not found"})
	}

	return c.JSON(http.StatusOK, inst)
}

// SearchInstitutes is the public institute directory: name, subdomain or
// address, case-insensitive, active institutes only.
func SearchInstitutes(c echo.Context) error {
	log := logger.FromContext(c)

	query := c.QueryParam("q")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	defer prometheus.TrackDBOperation("query")(time.Now())
	tx := database.GetDB().Model(&model.Institute{}).
		Select("id", "institute_name", "subdomain", "logo", "address", "type").
		Where("account_status IN ?", []string{model.StatusActive, model.StatusTrial})
	if query != "" {
		like := "%" + query + "%"
		tx = tx.Where("institute_name ILIKE ? OR subdomain ILIKE ? OR address ILIKE ?", like, like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		log.Error("Institute search failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}

	var institutes []model.Institute
	if err := tx.Order("institute_name ASC").Limit(limit).Offset(offset).Find(&institutes).Error; err != nil {
		log.Error("Institute search failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"institutes": institutes,
		"total":      total,
	})
}

// GetSettings returns the institute's settings document.
func GetSettings(c echo.Context) error {
	rc := tenantctx.FromEcho(c)
	prometheus.RecordTenantOperation("settings")

	var inst model.Institute
	if result := database.GetDB().Select("settings", "subscription_tier").First(&inst, "id = ?", rc.InstituteID()); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "institute not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"settings":          inst.Settings,
		"subscription_tier": inst.SubscriptionTier,
		"limits":            feature.LimitsFor(inst.SubscriptionTier),
	})
}

// UpdateSettings replaces the institute's settings document and invalidates
// the cached tenant entry.
func UpdateSettings(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	prometheus.RecordTenantOperation("settings_update")

	var req struct {
		Settings string `json:"settings"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var inst model.Institute
	if result := database.GetDB().First(&inst, "id = ?", rc.InstituteID()); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "institute not found"})
	}

	if err := database.GetDB().Model(&inst).Update("settings", req.Settings).Error; err != nil {
		log.Error("Failed to update settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	tenantCache.Invalidate(c.Request().Context(), inst.Subdomain)

	log.Info("Institute settings updated", zap.String("institute_id", inst.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "settings updated"})
}

// Dashboard aggregates headline counts for the institute's admin dashboard.
func Dashboard(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	prometheus.RecordTenantOperation("dashboard")
	ctx := c.Request().Context()
	db := database.GetDB()

	defer prometheus.TrackDBOperation("query")(time.Now())

	students, err := store.New[model.Student](db).Count(ctx, rc.InstituteID(), "")
	if err != nil {
		log.Error("Dashboard count failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dashboard unavailable"})
	}
	teachers, err := store.New[model.Teacher](db).Count(ctx, rc.InstituteID(), "")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dashboard unavailable"})
	}
	courses, err := store.New[model.Course](db).Count(ctx, rc.InstituteID(), "")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dashboard unavailable"})
	}
	openTickets, err := store.New[model.SupportTicket](db).Count(ctx, rc.InstituteID(), "status IN ?", []string{model.TicketOpen, model.TicketInProgress})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dashboard unavailable"})
	}

	var pendingFees float64
	err = db.WithContext(ctx).Model(&model.FeeInvoice{}).
		Where("institute_id = ? AND status IN ?", rc.InstituteID(), []string{model.InvoicePending, model.InvoicePartial}).
		Select("COALESCE(SUM(amount - amount_paid), 0)").
		Scan(&pendingFees).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dashboard unavailable"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"students":     students,
		"teachers":     teachers,
		"courses":      courses,
		"open_tickets": openTickets,
		"pending_fees": pendingFees,
	})
}
