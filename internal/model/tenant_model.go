package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantModel is the embedded base for every institute-owned record.
// It carries the owning institute id and the soft-delete marker that the
// tenant-scoped store folds into every query.
type TenantModel struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	InstituteID string         `json:"institute_id" gorm:"type:uuid;index;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// PrimaryID returns the record's primary key.
func (m *TenantModel) PrimaryID() string { return m.ID }

// TenantID returns the owning institute id.
func (m *TenantModel) TenantID() string { return m.InstituteID }

// StampTenant assigns the owning institute id. The store calls this on every
// create path; the institute id is never reassigned afterwards.
func (m *TenantModel) StampTenant(instituteID string) { m.InstituteID = instituteID }

// BeforeCreate assigns a uuid primary key when none is set.
func (m *TenantModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
