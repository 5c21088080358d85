package auth

import (
	"context"
	"errors"

	"github.com/gwon-omega/eduflow-server/internal/cache"
	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/store"
	"gorm.io/gorm"
)

// GormDirectory implements Directory over the shared database, with an
// optional Redis lookaside cache for the hot subdomain lookup.
type GormDirectory struct {
	db    *gorm.DB
	cache *cache.TenantCache
}

// NewGormDirectory builds a directory over db. tenantCache may be nil.
func NewGormDirectory(db *gorm.DB, tenantCache *cache.TenantCache) *GormDirectory {
	return &GormDirectory{db: db, cache: tenantCache}
}

// InstituteBySubdomain looks up an institute by its unique subdomain.
func (d *GormDirectory) InstituteBySubdomain(ctx context.Context, subdomain string) (*model.Institute, error) {
	if inst, ok := d.cache.GetBySubdomain(ctx, subdomain); ok {
		return inst, nil
	}

	var inst model.Institute
	err := d.db.WithContext(ctx).Where("subdomain = ?", subdomain).First(&inst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, &store.StorageError{Err: err}
	}

	d.cache.SetBySubdomain(ctx, &inst)
	return &inst, nil
}

// OwnedInstitute returns the institute owned by ownerID, if any.
func (d *GormDirectory) OwnedInstitute(ctx context.Context, ownerID string) (*model.Institute, error) {
	var inst model.Institute
	err := d.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&inst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, &store.StorageError{Err: err}
	}
	return &inst, nil
}

// IsStudent reports whether userID has a student record under instituteID.
func (d *GormDirectory) IsStudent(ctx context.Context, userID, instituteID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.Student{}).
		Where("user_id = ? AND institute_id = ?", userID, instituteID).
		Count(&count).Error
	if err != nil {
		return false, &store.StorageError{Err: err}
	}
	return count > 0, nil
}

// IsTeacher reports whether userID has a teacher record under instituteID.
func (d *GormDirectory) IsTeacher(ctx context.Context, userID, instituteID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.Teacher{}).
		Where("user_id = ? AND institute_id = ?", userID, instituteID).
		Count(&count).Error
	if err != nil {
		return false, &store.StorageError{Err: err}
	}
	return count > 0, nil
}
