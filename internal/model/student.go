package model

// Student links a platform user to an institute as an enrolled student.
type Student struct {
	TenantModel
	UserID         string `json:"user_id" gorm:"type:uuid;index;not null"`
	RollNumber     string `json:"roll_number" gorm:"type:varchar(30);index"`
	Grade          string `json:"grade" gorm:"type:varchar(30)"`
	Section        string `json:"section" gorm:"type:varchar(10)"`
	GuardianName   string `json:"guardian_name" gorm:"type:varchar(100)"`
	GuardianPhone  string `json:"guardian_phone" gorm:"type:varchar(20)"`
	EnrollmentYear int    `json:"enrollment_year"`
	Status         string `json:"status" gorm:"type:varchar(20);default:'enrolled'"` // enrolled, suspended, graduated
}
