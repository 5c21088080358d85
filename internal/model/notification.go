package model

import "time"

// Notification is an in-app message addressed to one user within an institute.
type Notification struct {
	TenantModel
	UserID string     `json:"user_id" gorm:"type:uuid;index;not null"`
	Kind   string     `json:"kind" gorm:"type:varchar(30);default:'general'"` // general, attendance, finance, support
	Title  string     `json:"title" gorm:"type:varchar(150);not null"`
	Body   string     `json:"body" gorm:"type:text"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
