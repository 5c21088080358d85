package model

import "time"

// Attendance status values.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

// Attendance is one student's attendance record for one course on one day.
// At most one row exists per (student, course, date) within an institute;
// marking attendance twice updates the existing row.
type Attendance struct {
	TenantModel
	StudentID string    `json:"student_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_attendance_unique"`
	CourseID  string    `json:"course_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_attendance_unique"`
	Date      time.Time `json:"date" gorm:"type:date;not null;uniqueIndex:idx_attendance_unique"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null"`
	MarkedBy  string    `json:"marked_by" gorm:"type:uuid"`
	Remarks   string    `json:"remarks" gorm:"type:text"`
}
