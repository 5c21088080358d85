package model

// Course is a subject offering taught at an institute.
type Course struct {
	TenantModel
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	Code        string `json:"code" gorm:"type:varchar(30);index"`
	Description string `json:"description" gorm:"type:text"`
	TeacherID   string `json:"teacher_id" gorm:"type:uuid;index"` // assigned Teacher record
	Credits     int    `json:"credits" gorm:"default:0"`
	Capacity    int    `json:"capacity" gorm:"default:0"` // 0 means unlimited
	Status      string `json:"status" gorm:"type:varchar(20);default:'open'"` // open, closed, archived
}

// Enrollment records a student's membership in a course.
type Enrollment struct {
	TenantModel
	StudentID string `json:"student_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_enrollment_student_course"`
	CourseID  string `json:"course_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_enrollment_student_course"`
	Status    string `json:"status" gorm:"type:varchar(20);default:'active'"` // active, completed, dropped
}
