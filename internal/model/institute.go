package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account status values for an institute.
const (
	StatusActive    = "active"
	StatusTrial     = "trial"
	StatusSuspended = "suspended"
)

// Institute is the tenant of the system. Every tenant-owned record carries
// its id; the subdomain is the highest-trust tenant signal.
type Institute struct {
	ID               string         `json:"id" gorm:"type:uuid;primaryKey"`
	InstituteName    string         `json:"institute_name" gorm:"type:varchar(150);not null"`
	Subdomain        string         `json:"subdomain" gorm:"type:varchar(63);uniqueIndex;not null"`
	OwnerID          string         `json:"owner_id" gorm:"type:uuid;index;not null"`
	Type             string         `json:"type" gorm:"type:varchar(30);default:'SCHOOL'"` // SCHOOL, COLLEGE, UNIVERSITY
	Address          string         `json:"address" gorm:"type:text"`
	Logo             string         `json:"logo" gorm:"type:text"`
	IsActive         bool           `json:"is_active" gorm:"default:true"`
	AccountStatus    string         `json:"account_status" gorm:"type:varchar(20);default:'trial'"`
	SubscriptionTier string         `json:"subscription_tier" gorm:"type:varchar(20);default:'trial'"`
	Settings         string         `json:"settings" gorm:"type:jsonb;default:'{}'"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a uuid primary key when none is set.
func (i *Institute) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
