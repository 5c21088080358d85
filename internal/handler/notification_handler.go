package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/store"
	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/gwon-omega/eduflow-server/pkg/database"
	"github.com/gwon-omega/eduflow-server/pkg/logger"
	"github.com/gwon-omega/eduflow-server/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListNotifications lists the calling user's notifications, newest first.
func ListNotifications(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{
		Where: "user_id = ?",
		Args:  []interface{}{rc.UserID()},
	}
	if c.QueryParam("unread") == "true" {
		opts.Where += " AND read_at IS NULL"
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	notifications, err := store.New[model.Notification](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list notifications", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve notifications"})
	}

	return c.JSON(http.StatusOK, notifications)
}

// GetUnreadCount returns the calling user's unread notification count.
func GetUnreadCount(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	count, err := store.New[model.Notification](database.GetDB()).
		Count(c.Request().Context(), rc.InstituteID(), "user_id = ? AND read_at IS NULL", rc.UserID())
	if err != nil {
		log.Error("Failed to count notifications", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}

// MarkNotificationRead marks one of the calling user's notifications as read.
func MarkNotificationRead(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()

	notifications := store.New[model.Notification](database.GetDB())
	id := c.Param("id")

	defer prometheus.TrackDBOperation("update")(time.Now())

	// A user can only touch their own notifications.
	n, err := notifications.GetByID(ctx, id, rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if n.UserID != rc.UserID() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
	}
	if n.ReadAt != nil {
		return c.JSON(http.StatusOK, n)
	}

	now := time.Now().UTC()
	updated, err := notifications.Update(ctx, id, rc.InstituteID(), map[string]interface{}{"read_at": now})
	if err != nil {
		log.Error("Failed to mark notification read", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, updated)
}

// Announce sends a notification to a set of users, or to every active student
// and teacher of the institute when no recipients are named.
func Announce(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		UserIDs []string `json:"user_ids"`
		Kind    string   `json:"kind"`
		Title   string   `json:"title"`
		Body    string   `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.Kind == "" {
		req.Kind = "general"
	}
	if notifier == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "notifications unavailable"})
	}

	recipients := req.UserIDs
	if len(recipients) == 0 {
		students, err := store.New[model.Student](db).List(ctx, rc.InstituteID(), store.ListOptions{
			Where: "status = ?",
			Args:  []interface{}{"enrolled"},
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		teachers, err := store.New[model.Teacher](db).List(ctx, rc.InstituteID(), store.ListOptions{
			Where: "status = ?",
			Args:  []interface{}{"active"},
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		for _, s := range students {
			recipients = append(recipients, s.UserID)
		}
		for _, t := range teachers {
			recipients = append(recipients, t.UserID)
		}
	}
	if len(recipients) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"message": "no recipients", "delivered": 0})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := notifier.Notify(ctx, rc.InstituteID(), recipients, req.Kind, req.Title, req.Body); err != nil {
		log.Error("Announcement failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "announcement failed"})
	}

	prometheus.RecordNotification(req.Kind)
	log.Info("Announcement sent",
		zap.Int("recipients", len(recipients)),
		zap.String("kind", req.Kind),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Announcement sent",
		"delivered": len(recipients),
	})
}
