package store_test

import (
	"context"
	"testing"

	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	instituteA = "11111111-1111-1111-1111-111111111111"
	instituteB = "22222222-2222-2222-2222-222222222222"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)&mode=memory"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Student{}, &model.Course{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM students")
		db.Exec("DELETE FROM courses")
	})
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, instituteID, roll string) *model.Student {
	t.Helper()
	s := &model.Student{RollNumber: roll, Status: "enrolled"}
	require.NoError(t, store.New[model.Student](db).Create(context.Background(), instituteID, s))
	return s
}

func TestGetByIDScopedToInstitute(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)
	ctx := context.Background()

	s := seedStudent(t, db, instituteA, "A-01")

	got, err := students.GetByID(ctx, s.ID, instituteA)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	// The same id under another institute reads as absent, not forbidden.
	_, err = students.GetByID(ctx, s.ID, instituteB)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListNeverCrossesTenants(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)
	ctx := context.Background()

	seedStudent(t, db, instituteA, "A-01")
	seedStudent(t, db, instituteA, "A-02")
	seedStudent(t, db, instituteB, "B-01")

	listA, err := students.List(ctx, instituteA, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, listA, 2)
	for _, s := range listA {
		assert.Equal(t, instituteA, s.InstituteID)
	}

	listB, err := students.List(ctx, instituteB, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, listB, 1)
}

func TestListFiltersAndPagination(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)
	ctx := context.Background()

	seedStudent(t, db, instituteA, "A-01")
	s2 := seedStudent(t, db, instituteA, "A-02")
	_, err := students.Update(ctx, s2.ID, instituteA, map[string]interface{}{"status": "suspended"})
	require.NoError(t, err)

	suspended, err := students.List(ctx, instituteA, store.ListOptions{
		Where: "status = ?",
		Args:  []interface{}{"suspended"},
	})
	require.NoError(t, err)
	require.Len(t, suspended, 1)
	assert.Equal(t, s2.ID, suspended[0].ID)

	page, err := students.List(ctx, instituteA, store.ListOptions{Limit: 1, Offset: 1, Order: "roll_number ASC"})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "A-02", page[0].RollNumber)
}

func TestCreateStampsTenantOverCallerValue(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)
	ctx := context.Background()

	s := &model.Student{RollNumber: "A-09"}
	s.InstituteID = instituteB // caller-supplied value must not survive
	require.NoError(t, students.Create(ctx, instituteA, s))
	assert.Equal(t, instituteA, s.InstituteID)

	_, err := students.GetByID(ctx, s.ID, instituteB)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateCannotMoveRecordAcrossTenants(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)
	ctx := context.Background()

	s := seedStudent(t, db, instituteA, "A-01")

	got, err := students.Update(ctx, s.ID, instituteA, map[string]interface{}{
		"status":       "graduated",
		"institute_id": instituteB,
		"id":           "99999999-9999-9999-9999-999999999999",
	})
	require.NoError(t, err)
	assert.Equal(t, "graduated", got.Status)
	assert.Equal(t, instituteA, got.InstituteID)
	assert.Equal(t, s.ID, got.ID)
}

func TestUpdateMissingRecordIsNotFound(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)

	_, err := students.Update(context.Background(), "no-such-id", instituteA, map[string]interface{}{"status": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A record existing under another tenant is equally absent.
	s := seedStudent(t, db, instituteB, "B-01")
	_, err = students.Update(context.Background(), s.ID, instituteA, map[string]interface{}{"status": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSoftDeleteHidesButKeepsRow(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)
	ctx := context.Background()

	s := seedStudent(t, db, instituteA, "A-01")

	deleted, err := students.SoftDelete(ctx, s.ID, instituteA)
	require.NoError(t, err)
	assert.True(t, deleted.DeletedAt.Valid)

	_, err = students.GetByID(ctx, s.ID, instituteA)
	assert.ErrorIs(t, err, store.ErrNotFound)

	lists, err := students.List(ctx, instituteA, store.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, lists)

	// The administrative bypass still sees the row.
	raw, err := students.GetByIDUnscoped(ctx, s.ID, instituteA)
	require.NoError(t, err)
	assert.Equal(t, s.ID, raw.ID)
}

func TestSoftDeleteMissingRecordIsNotFound(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)

	_, err := students.SoftDelete(context.Background(), "no-such-id", instituteA)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCountScopedToInstitute(t *testing.T) {
	db := newTestDB(t)
	students := store.New[model.Student](db)
	ctx := context.Background()

	seedStudent(t, db, instituteA, "A-01")
	seedStudent(t, db, instituteA, "A-02")
	seedStudent(t, db, instituteB, "B-01")

	n, err := students.Count(ctx, instituteA, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = students.Count(ctx, instituteA, "roll_number = ?", "A-01")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	db := newTestDB(t)
	courses := store.New[model.Course](db)
	ctx := context.Background()

	first, err := courses.Upsert(ctx, instituteA,
		map[string]interface{}{"code": "MATH101"},
		map[string]interface{}{"name": "Mathematics"},
		&model.Course{Name: "Mathematics", Code: "MATH101", Status: "open"},
	)
	require.NoError(t, err)
	assert.Equal(t, instituteA, first.InstituteID)

	second, err := courses.Upsert(ctx, instituteA,
		map[string]interface{}{"code": "MATH101"},
		map[string]interface{}{"name": "Mathematics II"},
		&model.Course{Name: "Mathematics II", Code: "MATH101", Status: "open"},
	)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Mathematics II", second.Name)

	// The same match under another institute creates a fresh row.
	other, err := courses.Upsert(ctx, instituteB,
		map[string]interface{}{"code": "MATH101"},
		map[string]interface{}{"name": "Mathematics"},
		&model.Course{Name: "Mathematics", Code: "MATH101", Status: "open"},
	)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, instituteB, other.InstituteID)
}
