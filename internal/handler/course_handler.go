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

// CreateCourse adds a course offering to the institute's catalog.
func CreateCourse(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		Name        string `json:"name"`
		Code        string `json:"code"`
		Description string `json:"description"`
		TeacherID   string `json:"teacher_id"`
		Credits     int    `json:"credits"`
		Capacity    int    `json:"capacity"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse course creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "course name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	courses := store.New[model.Course](db)

	if req.TeacherID != "" {
		if _, err := store.New[model.Teacher](db).GetByID(ctx, req.TeacherID, rc.InstituteID()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "assigned teacher not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	if req.Code != "" {
		dup, err := courses.Count(ctx, rc.InstituteID(), "code = ?", req.Code)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if dup > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "course code already in use"})
		}
	}

	course := &model.Course{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		TeacherID:   req.TeacherID,
		Credits:     req.Credits,
		Capacity:    req.Capacity,
		Status:      "open",
	}
	if err := courses.Create(ctx, rc.InstituteID(), course); err != nil {
		log.Error("Failed to create course", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "course creation failed"})
	}

	log.Info("Course created",
		zap.String("course_id", course.ID),
		zap.String("name", course.Name),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Course created successfully",
		"course":  course,
	})
}

// ListCourses lists the institute's course catalog.
func ListCourses(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{Order: "name ASC"}
	if status := c.QueryParam("status"); status != "" {
		opts.Where = "status = ?"
		opts.Args = append(opts.Args, status)
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	courseList, err := store.New[model.Course](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list courses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve courses"})
	}

	return c.JSON(http.StatusOK, courseList)
}

// GetCourse returns one course of the institute.
func GetCourse(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	course, err := store.New[model.Course](database.GetDB()).GetByID(c.Request().Context(), c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		log.Error("Failed to get course", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	return c.JSON(http.StatusOK, course)
}

// UpdateCourse patches a course record.
func UpdateCourse(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	var patch map[string]interface{}
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	course, err := store.New[model.Course](database.GetDB()).Update(c.Request().Context(), c.Param("id"), rc.InstituteID(), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		log.Error("Failed to update course", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, course)
}

// DeleteCourse soft-deletes a course from the catalog.
func DeleteCourse(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	_, err := store.New[model.Course](database.GetDB()).SoftDelete(c.Request().Context(), c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		log.Error("Failed to delete course", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	log.Info("Course removed", zap.String("course_id", c.Param("id")), zap.String("institute_id", rc.InstituteID()))
	return c.JSON(http.StatusOK, echo.Map{"message": "course removed"})
}

// EnrollStudent enrolls a student in a course. Enrolling an already-enrolled
// student reactivates the existing enrollment instead of duplicating it.
func EnrollStudent(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		StudentID string `json:"student_id"`
	}
	if err := c.Bind(&req); err != nil || req.StudentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id is required"})
	}
	courseID := c.Param("id")

	defer prometheus.TrackDBOperation("insert")(time.Now())

	course, err := store.New[model.Course](db).GetByID(ctx, courseID, rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if course.Status != "open" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "course is not open for enrollment"})
	}

	if _, err := store.New[model.Student](db).GetByID(ctx, req.StudentID, rc.InstituteID()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	enrollments := store.New[model.Enrollment](db)

	if course.Capacity > 0 {
		active, err := enrollments.Count(ctx, rc.InstituteID(), "course_id = ? AND status = ?", courseID, "active")
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if active >= int64(course.Capacity) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "course is full"})
		}
	}

	enrollment, err := enrollments.Upsert(ctx, rc.InstituteID(),
		map[string]interface{}{"student_id": req.StudentID, "course_id": courseID},
		map[string]interface{}{"status": "active"},
		&model.Enrollment{StudentID: req.StudentID, CourseID: courseID, Status: "active"},
	)
	if err != nil {
		log.Error("Failed to enroll student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "enrollment failed"})
	}

	prometheus.RecordTenantOperation("enroll")
	log.Info("Student enrolled",
		zap.String("student_id", req.StudentID),
		zap.String("course_id", courseID),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Student enrolled successfully",
		"enrollment": enrollment,
	})
}

// ListEnrollments lists a course's enrollments.
func ListEnrollments(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{
		Where: "course_id = ?",
		Args:  []interface{}{c.Param("id")},
		Order: "created_at ASC",
	}
	if status := c.QueryParam("status"); status != "" {
		opts.Where += " AND status = ?"
		opts.Args = append(opts.Args, status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	enrollmentList, err := store.New[model.Enrollment](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list enrollments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve enrollments"})
	}

	return c.JSON(http.StatusOK, enrollmentList)
}
