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

// CreateStudent enrolls an existing platform user as a student of the
// resolved institute, subject to the subscription tier's student cap.
func CreateStudent(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		Email          string `json:"email"`
		RollNumber     string `json:"roll_number"`
		Grade          string `json:"grade"`
		Section        string `json:"section"`
		GuardianName   string `json:"guardian_name"`
		GuardianPhone  string `json:"guardian_phone"`
		EnrollmentYear int    `json:"enrollment_year"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse student creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var user model.User
	if result := db.Where("email = ?", req.Email).First(&user); result.Error != nil {
		log.Warn("Student user not found", zap.String("email", req.Email))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no account with that email"})
	}

	students := store.New[model.Student](db)

	// Tier cap check.
	var inst model.Institute
	if result := db.Select("subscription_tier").First(&inst, "id = ?", rc.InstituteID()); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "institute not found"})
	}
	limits := feature.LimitsFor(inst.SubscriptionTier)
	if limits.MaxStudents > 0 {
		current, err := students.Count(ctx, rc.InstituteID(), "")
		if err != nil {
			log.Error("Student count failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if current >= int64(limits.MaxStudents) {
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "student limit reached for current plan"})
		}
	}

	existing, err := students.Count(ctx, rc.InstituteID(), "user_id = ?", user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if existing > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "student already enrolled"})
	}

	student := &model.Student{
		UserID:         user.ID,
		RollNumber:     req.RollNumber,
		Grade:          req.Grade,
		Section:        req.Section,
		GuardianName:   req.GuardianName,
		GuardianPhone:  req.GuardianPhone,
		EnrollmentYear: req.EnrollmentYear,
		Status:         "enrolled",
	}
	if err := students.Create(ctx, rc.InstituteID(), student); err != nil {
		log.Error("Failed to create student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "student creation failed"})
	}

	log.Info("Student enrolled",
		zap.String("student_id", student.ID),
		zap.String("user_id", user.ID),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Student enrolled successfully",
		"student": student,
	})
}

// ListStudents lists the institute's students with optional filters.
func ListStudents(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{Order: "roll_number ASC"}
	if grade := c.QueryParam("grade"); grade != "" {
		opts.Where = "grade = ?"
		opts.Args = append(opts.Args, grade)
	}
	if status := c.QueryParam("status"); status != "" {
		if opts.Where != "" {
			opts.Where += " AND status = ?"
		} else {
			opts.Where = "status = ?"
		}
		opts.Args = append(opts.Args, status)
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	studentList, err := store.New[model.Student](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list students", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve students"})
	}

	return c.JSON(http.StatusOK, studentList)
}

// GetStudent returns one student of the institute.
func GetStudent(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	student, err := store.New[model.Student](database.GetDB()).GetByID(c.Request().Context(), c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		log.Error("Failed to get student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	return c.JSON(http.StatusOK, student)
}

// UpdateStudent patches a student record.
func UpdateStudent(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	var patch map[string]interface{}
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	student, err := store.New[model.Student](database.GetDB()).Update(c.Request().Context(), c.Param("id"), rc.InstituteID(), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		log.Error("Failed to update student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, student)
}

// DeleteStudent soft-deletes a student record.
func DeleteStudent(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	_, err := store.New[model.Student](database.GetDB()).SoftDelete(c.Request().Context(), c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		log.Error("Failed to delete student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	log.Info("Student removed", zap.String("student_id", c.Param("id")), zap.String("institute_id", rc.InstituteID()))
	return c.JSON(http.StatusOK, echo.Map{"message": "student removed"})
}

// GetStudentCourses lists the courses a student is actively enrolled in.
func GetStudentCourses(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	defer prometheus.TrackDBOperation("query")(time.Now())
	enrollments, err := store.New[model.Enrollment](db).List(ctx, rc.InstituteID(), store.ListOptions{
		Where: "student_id = ? AND status = ?",
		Args:  []interface{}{c.Param("id"), "active"},
	})
	if err != nil {
		log.Error("Failed to list enrollments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve courses"})
	}

	courseIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	if len(courseIDs) == 0 {
		return c.JSON(http.StatusOK, []model.Course{})
	}

	var courses []model.Course
	err = db.WithContext(ctx).
		Where("institute_id = ? AND id IN ?", rc.InstituteID(), courseIDs).
		Find(&courses).Error
	if err != nil {
		log.Error("Failed to load courses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve courses"})
	}

	return c.JSON(http.StatusOK, courses)
}
