package model

import "time"

// Invoice status values.
const (
	InvoicePending = "pending"
	InvoicePartial = "partial"
	InvoicePaid    = "paid"
	InvoiceVoid    = "void"
)

// FeeInvoice is a fee demand issued to a student.
type FeeInvoice struct {
	TenantModel
	StudentID   string    `json:"student_id" gorm:"type:uuid;index;not null"`
	Title       string    `json:"title" gorm:"type:varchar(100);not null"`
	Amount      float64   `json:"amount" gorm:"not null"`
	AmountPaid  float64   `json:"amount_paid" gorm:"default:0"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Description string    `json:"description" gorm:"type:text"`
}

// FeePayment records a payment applied against an invoice.
type FeePayment struct {
	TenantModel
	InvoiceID  string    `json:"invoice_id" gorm:"type:uuid;index;not null"`
	StudentID  string    `json:"student_id" gorm:"type:uuid;index;not null"`
	Amount     float64   `json:"amount" gorm:"not null"`
	Method     string    `json:"method" gorm:"type:varchar(30);default:'cash'"` // cash, bank, gateway
	Reference  string    `json:"reference" gorm:"type:varchar(100)"`
	ReceivedAt time.Time `json:"received_at"`
	ReceivedBy string    `json:"received_by" gorm:"type:uuid"`
}
