package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Canonical role enumeration. These are the only role strings persisted or
// compared anywhere in the codebase.
const (
	RoleSuperAdmin     = "super_admin"
	RoleInstituteAdmin = "institute_admin"
	RoleTeacher        = "teacher"
	RoleStudent        = "student"
)

// User represents a platform account. Users are global, not institute-owned;
// institute membership is expressed through Student/Teacher records.
type User struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	Email         string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password      string         `json:"-" gorm:"type:varchar(255)"`
	FirstName     string         `json:"first_name" gorm:"type:varchar(50)"`
	LastName      string         `json:"last_name" gorm:"type:varchar(50)"`
	Role          string         `json:"role" gorm:"type:varchar(30);not null;default:'student'"`
	ProfileImage  string         `json:"profile_image" gorm:"type:text"`
	EmailVerified bool           `json:"email_verified" gorm:"default:false"`
	Active        bool           `json:"active" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a uuid primary key when none is set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
