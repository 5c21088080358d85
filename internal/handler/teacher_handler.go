package handler

import (
	"errors"
	"net/http"
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

// CreateTeacher registers an existing platform user as teaching staff of the
// resolved institute, subject to the subscription tier's teacher cap.
func CreateTeacher(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		Email         string `json:"email"`
		EmployeeID    string `json:"employee_id"`
		Department    string `json:"department"`
		Qualification string `json:"qualification"`
		Phone         string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse teacher creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var user model.User
	if result := db.Where("email = ?", req.Email).First(&user); result.Error != nil {
		log.Warn("Teacher user not found", zap.String("email", req.Email))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no account with that email"})
	}

	teachers := store.New[model.Teacher](db)

	var inst model.Institute
	if result := db.Select("subscription_tier").First(&inst, "id = ?", rc.InstituteID()); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "institute not found"})
	}
	limits := feature.LimitsFor(inst.SubscriptionTier)
	if limits.MaxTeachers > 0 {
		current, err := teachers.Count(ctx, rc.InstituteID(), "")
		if err != nil {
			log.Error("Teacher count failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if current >= int64(limits.MaxTeachers) {
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "teacher limit reached for current plan"})
		}
	}

	existing, err := teachers.Count(ctx, rc.InstituteID(), "user_id = ?", user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if existing > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "teacher already registered"})
	}

	teacher := &model.Teacher{
		UserID:        user.ID,
		EmployeeID:    req.EmployeeID,
		Department:    req.Department,
		Qualification: req.Qualification,
		Phone:         req.Phone,
		Status:        "active",
	}
	if err := teachers.Create(ctx, rc.InstituteID(), teacher); err != nil {
		log.Error("Failed to create teacher", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "teacher creation failed"})
	}

	log.Info("Teacher registered",
		zap.String("teacher_id", teacher.ID),
		zap.String("user_id", user.ID),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Teacher registered successfully",
		"teacher": teacher,
	})
}

// ListTeachers lists the institute's teaching staff.
func ListTeachers(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{Order: "created_at ASC"}
	if dept := c.QueryParam("department"); dept != "" {
		opts.Where = "department = ?"
		opts.Args = append(opts.Args, dept)
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	teacherList, err := store.New[model.Teacher](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list teachers", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve teachers"})
	}

	return c.JSON(http.StatusOK, teacherList)
}

// GetTeacher returns one teacher of the institute.
func GetTeacher(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	teacher, err := store.New[model.Teacher](database.GetDB()).GetByID(c.Request().Context(), c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "teacher not found"})
		}
		log.Error("Failed to get teacher", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	return c.JSON(http.StatusOK, teacher)
}

// UpdateTeacher patches a teacher record.
func UpdateTeacher(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	var patch map[string]interface{}
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	teacher, err := store.New[model.Teacher](database.GetDB()).Update(c.Request().Context(), c.Param("id"), rc.InstituteID(), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "teacher not found"})
		}
		log.Error("Failed to update teacher", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, teacher)
}

// DeleteTeacher soft-deletes a teacher record.
func DeleteTeacher(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	_, err := store.New[model.Teacher](database.GetDB()).SoftDelete(c.Request().Context(), c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "teacher not found"})
		}
		log.Error("Failed to delete teacher", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	log.Info("Teacher removed", zap.String("teacher_id", c.Param("id")), zap.String("institute_id", rc.InstituteID()))
	return c.JSON(http.StatusOK, echo.Map{"message": "teacher removed"})
}

// GetTeacherCourses lists the courses assigned to a teacher.
func GetTeacherCourses(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	courses, err := store.New[model.Course](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), store.ListOptions{
		Where: "teacher_id = ?",
		Args:  []interface{}{c.Param("id")},
	})
	if err != nil {
		log.Error("Failed to list teacher courses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve courses"})
	}

	return c.JSON(http.StatusOK, courses)
}
