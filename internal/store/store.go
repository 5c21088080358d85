// Package store provides tenant-scoped data access for institute-owned
// records. Every operation conjoins the caller's predicate with a mandatory
// institute-id equality and the soft-delete filter, so feature code cannot
// forget tenant isolation at a call site.
package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Record is the contract every institute-owned model satisfies (via the
// embedded model.TenantModel).
type Record interface {
	PrimaryID() string
	TenantID() string
	StampTenant(instituteID string)
}

// ListOptions narrows a List or Count beyond the mandatory tenant predicate.
type ListOptions struct {
	Where  string        // optional SQL condition, e.g. "status = ?"
	Args   []interface{} // arguments for Where
	Order  string        // optional ordering, defaults to "created_at DESC"
	Limit  int           // 0 means no limit
	Offset int
}

// Store is a tenant-scoped data-access object for one record kind.
// It is a stateless façade over the shared *gorm.DB and safe for concurrent
// use.
type Store[T any, PT interface {
	*T
	Record
}] struct {
	db *gorm.DB
}

// New builds a store over db for the record kind T.
func New[T any, PT interface {
	*T
	Record
}](db *gorm.DB) *Store[T, PT] {
	return &Store[T, PT]{db: db}
}

// GetByID returns the record only if it belongs to instituteID and is not
// soft-deleted; any other case is ErrNotFound.
func (s *Store[T, PT]) GetByID(ctx context.Context, id, instituteID string) (PT, error) {
	var rec T
	err := s.db.WithContext(ctx).
		Where("id = ? AND institute_id = ?", id, instituteID).
		First(&rec).Error
	if err != nil {
		return nil, classify(err)
	}
	return PT(&rec), nil
}

// GetByIDUnscoped is the administrative bypass of the soft-delete filter.
// It is still tenant-scoped.
func (s *Store[T, PT]) GetByIDUnscoped(ctx context.Context, id, instituteID string) (PT, error) {
	var rec T
	err := s.db.WithContext(ctx).Unscoped().
		Where("id = ? AND institute_id = ?", id, instituteID).
		First(&rec).Error
	if err != nil {
		return nil, classify(err)
	}
	return PT(&rec), nil
}

// List returns records under instituteID matching opts. The tenant and
// soft-delete predicates cannot be overridden by opts.
func (s *Store[T, PT]) List(ctx context.Context, instituteID string, opts ListOptions) ([]T, error) {
	tx := s.db.WithContext(ctx).Where("institute_id = ?", instituteID)
	if opts.Where != "" {
		tx = tx.Where(opts.Where, opts.Args...)
	}
	order := opts.Order
	if order == "" {
		order = "created_at DESC"
	}
	tx = tx.Order(order)
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		tx = tx.Offset(opts.Offset)
	}

	var recs []T
	if err := tx.Find(&recs).Error; err != nil {
		return nil, classify(err)
	}
	return recs, nil
}

// Count counts records under instituteID matching the optional condition.
func (s *Store[T, PT]) Count(ctx context.Context, instituteID, where string, args ...interface{}) (int64, error) {
	tx := s.db.WithContext(ctx).Model(PT(new(T))).Where("institute_id = ?", instituteID)
	if where != "" {
		tx = tx.Where(where, args...)
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, classify(err)
	}
	return count, nil
}

// Create persists a new record, stamping instituteID over any caller-supplied
// tenant value.
func (s *Store[T, PT]) Create(ctx context.Context, instituteID string, rec PT) error {
	rec.StampTenant(instituteID)
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return &StorageError{Err: err}
	}
	return nil
}

// Update applies patch to the record matching both id and instituteID and
// returns the updated row. ErrNotFound when no such record exists; never a
// silent no-op. The institute id cannot be changed through a patch.
func (s *Store[T, PT]) Update(ctx context.Context, id, instituteID string, patch map[string]interface{}) (PT, error) {
	sanitizePatch(patch)
	res := s.db.WithContext(ctx).Model(PT(new(T))).
		Where("id = ? AND institute_id = ?", id, instituteID).
		Updates(patch)
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id, instituteID)
}

// SoftDelete marks the record as deleted and returns it. The row physically
// remains; normal reads no longer see it. ErrNotFound when the record does
// not exist under instituteID.
func (s *Store[T, PT]) SoftDelete(ctx context.Context, id, instituteID string) (PT, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND institute_id = ?", id, instituteID).
		Delete(PT(new(T)))
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByIDUnscoped(ctx, id, instituteID)
}

// Upsert updates the record matching the match predicate under instituteID,
// or creates rec when none exists. On the create path the institute id is
// stamped from the parameter regardless of any value on rec; on the update
// path the match predicate is conjoined with tenant-id equality.
func (s *Store[T, PT]) Upsert(ctx context.Context, instituteID string, match map[string]interface{}, assign map[string]interface{}, rec PT) (PT, error) {
	tx := s.db.WithContext(ctx).Where("institute_id = ?", instituteID)
	for column, value := range match {
		tx = tx.Where(fmt.Sprintf("%s = ?", column), value)
	}

	var existing T
	err := tx.First(&existing).Error
	if err == nil {
		existingPT := PT(&existing)
		sanitizePatch(assign)
		if err := s.db.WithContext(ctx).Model(existingPT).Updates(assign).Error; err != nil {
			return nil, &StorageError{Err: err}
		}
		return s.GetByID(ctx, existingPT.PrimaryID(), instituteID)
	}
	if classified := classify(err); classified != ErrNotFound {
		return nil, classified
	}

	rec.StampTenant(instituteID)
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, &StorageError{Err: err}
	}
	return rec, nil
}

// sanitizePatch strips fields that would break record identity or tenant
// ownership if patched.
func sanitizePatch(patch map[string]interface{}) {
	delete(patch, "id")
	delete(patch, "institute_id")
	delete(patch, "deleted_at")
}
