package handler

import (
	"errors"
	"net/http"
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

const attendanceDateLayout = "2006-01-02"

func validAttendanceStatus(status string) bool {
	switch status {
	case model.AttendancePresent, model.AttendanceAbsent, model.AttendanceLate, model.AttendanceExcused:
		return true
	}
	return false
}

// MarkAttendance records a student's attendance for a course on a given date.
// Marking the same (student, course, date) again overwrites the earlier status
// rather than creating a second row.
func MarkAttendance(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		StudentID string `json:"student_id"`
		CourseID  string `json:"course_id"`
		Date      string `json:"date"` // YYYY-MM-DD, defaults to today
		Status    string `json:"status"`
		Remarks   string `json:"remarks"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse attendance request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.StudentID == "" || req.CourseID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id and course_id are required"})
	}
	if !validAttendanceStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendance status"})
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		parsed, err := time.Parse(attendanceDateLayout, req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		date = parsed
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if _, err := store.New[model.Student](db).GetByID(ctx, req.StudentID, rc.InstituteID()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if _, err := store.New[model.Course](db).GetByID(ctx, req.CourseID, rc.InstituteID()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	record, err := store.New[model.Attendance](db).Upsert(ctx, rc.InstituteID(),
		map[string]interface{}{"student_id": req.StudentID, "course_id": req.CourseID, "date": date},
		map[string]interface{}{"status": req.Status, "marked_by": rc.UserID(), "remarks": req.Remarks},
		&model.Attendance{
			StudentID: req.StudentID,
			CourseID:  req.CourseID,
			Date:      date,
			Status:    req.Status,
			MarkedBy:  rc.UserID(),
			Remarks:   req.Remarks,
		},
	)
	if err != nil {
		log.Error("Failed to mark attendance", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "attendance marking failed"})
	}

	log.Info("Attendance marked",
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID),
		zap.String("status", req.Status),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Attendance recorded",
		"attendance": record,
	})
}

// GetAttendance lists attendance records filtered by student, course and date
// range.
func GetAttendance(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{Order: "date DESC"}
	addFilter := func(cond string, arg interface{}) {
		if opts.Where != "" {
			opts.Where += " AND "
		}
		opts.Where += cond
		opts.Args = append(opts.Args, arg)
	}

	if studentID := c.QueryParam("student_id"); studentID != "" {
		addFilter("student_id = ?", studentID)
	}
	if courseID := c.QueryParam("course_id"); courseID != "" {
		addFilter("course_id = ?", courseID)
	}
	if from := c.QueryParam("from"); from != "" {
		parsed, err := time.Parse(attendanceDateLayout, from)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
		}
		addFilter("date >= ?", parsed)
	}
	if to := c.QueryParam("to"); to != "" {
		parsed, err := time.Parse(attendanceDateLayout, to)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
		}
		addFilter("date <= ?", parsed)
	}
	if status := c.QueryParam("status"); status != "" {
		addFilter("status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	records, err := store.New[model.Attendance](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list attendance", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve attendance"})
	}

	return c.JSON(http.StatusOK, records)
}

// GetAttendanceSummary aggregates a student's attendance counts per status,
// optionally narrowed to one course.
func GetAttendanceSummary(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()

	studentID := c.Param("id")
	records := store.New[model.Attendance](database.GetDB())

	where := "student_id = ?"
	args := []interface{}{studentID}
	if courseID := c.QueryParam("course_id"); courseID != "" {
		where += " AND course_id = ?"
		args = append(args, courseID)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	summary := echo.Map{}
	total := int64(0)
	for _, status := range []string{model.AttendancePresent, model.AttendanceAbsent, model.AttendanceLate, model.AttendanceExcused} {
		count, err := records.Count(ctx, rc.InstituteID(), where+" AND status = ?", append(append([]interface{}{}, args...), status)...)
		if err != nil {
			log.Error("Attendance summary failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		summary[status] = count
		total += count
	}
	summary["total"] = total

	return c.JSON(http.StatusOK, echo.Map{
		"student_id": studentID,
		"summary":    summary,
	})
}
