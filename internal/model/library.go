package model

import "time"

// Library resource status values.
const (
	ResourceAvailable = "available"
	ResourceBorrowed  = "borrowed"
	ResourceLost      = "lost"
)

// LibraryResource is a book or other lendable item in an institute's library.
type LibraryResource struct {
	TenantModel
	Title    string `json:"title" gorm:"type:varchar(200);not null"`
	Author   string `json:"author" gorm:"type:varchar(100)"`
	ISBN     string `json:"isbn" gorm:"type:varchar(20);index"`
	Category string `json:"category" gorm:"type:varchar(50);index"`
	Type     string `json:"type" gorm:"type:varchar(20);default:'book'"` // book, journal, digital
	Copies   int    `json:"copies" gorm:"default:1"`
	Status   string `json:"status" gorm:"type:varchar(20);default:'available'"`
}

// LibraryBorrow records a student borrowing a resource.
type LibraryBorrow struct {
	TenantModel
	ResourceID string     `json:"resource_id" gorm:"type:uuid;index;not null"`
	StudentID  string     `json:"student_id" gorm:"type:uuid;index;not null"`
	BorrowedAt time.Time  `json:"borrowed_at" gorm:"not null"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}
