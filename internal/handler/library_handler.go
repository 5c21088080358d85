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

const defaultBorrowDays = 14

// CreateLibraryResource adds a lendable item to the institute's library.
func CreateLibraryResource(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	var req struct {
		Title    string `json:"title"`
		Author   string `json:"author"`
		ISBN     string `json:"isbn"`
		Category string `json:"category"`
		Type     string `json:"type"`
		Copies   int    `json:"copies"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse resource creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.Copies <= 0 {
		req.Copies = 1
	}
	if req.Type == "" {
		req.Type = "book"
	}

	resource := &model.LibraryResource{
		Title:    req.Title,
		Author:   req.Author,
		ISBN:     req.ISBN,
		Category: req.Category,
		Type:     req.Type,
		Copies:   req.Copies,
		Status:   model.ResourceAvailable,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := store.New[model.LibraryResource](database.GetDB()).Create(c.Request().Context(), rc.InstituteID(), resource); err != nil {
		log.Error("Failed to create library resource", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resource creation failed"})
	}

	log.Info("Library resource added",
		zap.String("resource_id", resource.ID),
		zap.String("title", resource.Title),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Resource added successfully",
		"resource": resource,
	})
}

// ListLibraryResources lists the institute's library catalog.
func ListLibraryResources(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{Order: "title ASC"}
	addFilter := func(cond string, arg interface{}) {
		if opts.Where != "" {
			opts.Where += " AND "
		}
		opts.Where += cond
		opts.Args = append(opts.Args, arg)
	}
	if category := c.QueryParam("category"); category != "" {
		addFilter("category = ?", category)
	}
	if kind := c.QueryParam("type"); kind != "" {
		addFilter("type = ?", kind)
	}
	if q := c.QueryParam("q"); q != "" {
		if opts.Where != "" {
			opts.Where += " AND "
		}
		opts.Where += "(title ILIKE ? OR author ILIKE ?)"
		opts.Args = append(opts.Args, "%"+q+"%", "%"+q+"%")
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	resources, err := store.New[model.LibraryResource](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list library resources", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve resources"})
	}

	return c.JSON(http.StatusOK, resources)
}

// UpdateLibraryResource patches a library resource.
func UpdateLibraryResource(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	var patch map[string]interface{}
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	resource, err := store.New[model.LibraryResource](database.GetDB()).Update(c.Request().Context(), c.Param("id"), rc.InstituteID(), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		log.Error("Failed to update library resource", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, resource)
}

// DeleteLibraryResource soft-deletes a library resource.
func DeleteLibraryResource(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	_, err := store.New[model.LibraryResource](database.GetDB()).SoftDelete(c.Request().Context(), c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		log.Error("Failed to delete library resource", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "resource removed"})
}

// BorrowResource lends a resource to a student when a copy is free.
func BorrowResource(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		StudentID string `json:"student_id"`
		Days      int    `json:"days"`
	}
	if err := c.Bind(&req); err != nil || req.StudentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id is required"})
	}
	if req.Days <= 0 {
		req.Days = defaultBorrowDays
	}
	resourceID := c.Param("id")

	defer prometheus.TrackDBOperation("insert")(time.Now())

	resource, err := store.New[model.LibraryResource](db).GetByID(ctx, resourceID, rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if resource.Status == model.ResourceLost {
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource is not lendable"})
	}

	if _, err := store.New[model.Student](db).GetByID(ctx, req.StudentID, rc.InstituteID()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	borrows := store.New[model.LibraryBorrow](db)
	outstanding, err := borrows.Count(ctx, rc.InstituteID(), "resource_id = ? AND returned_at IS NULL", resourceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if outstanding >= int64(resource.Copies) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no copies available"})
	}

	now := time.Now().UTC()
	borrow := &model.LibraryBorrow{
		ResourceID: resourceID,
		StudentID:  req.StudentID,
		BorrowedAt: now,
		DueAt:      now.AddDate(0, 0, req.Days),
	}
	if err := borrows.Create(ctx, rc.InstituteID(), borrow); err != nil {
		log.Error("Failed to record borrow", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "borrow failed"})
	}

	log.Info("Resource borrowed",
		zap.String("resource_id", resourceID),
		zap.String("student_id", req.StudentID),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Resource borrowed",
		"borrow":  borrow,
	})
}

// ReturnResource closes an open borrow record.
func ReturnResource(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()

	borrows := store.New[model.LibraryBorrow](database.GetDB())
	borrowID := c.Param("borrowId")

	defer prometheus.TrackDBOperation("update")(time.Now())

	borrow, err := borrows.GetByID(ctx, borrowID, rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "borrow record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if borrow.ReturnedAt != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "already returned"})
	}

	now := time.Now().UTC()
	updated, err := borrows.Update(ctx, borrowID, rc.InstituteID(), map[string]interface{}{"returned_at": now})
	if err != nil {
		log.Error("Failed to record return", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "return failed"})
	}

	log.Info("Resource returned",
		zap.String("borrow_id", borrowID),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Resource returned",
		"borrow":  updated,
	})
}

// GetBorrowHistory lists a student's borrow history, most recent first.
func GetBorrowHistory(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{
		Where: "student_id = ?",
		Args:  []interface{}{c.Param("id")},
		Order: "borrowed_at DESC",
	}
	if c.QueryParam("open") == "true" {
		opts.Where += " AND returned_at IS NULL"
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	history, err := store.New[model.LibraryBorrow](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list borrow history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve history"})
	}

	return c.JSON(http.StatusOK, history)
}
