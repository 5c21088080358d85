package model

// Support ticket status values.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// SupportTicket is a help request raised by a member of an institute.
type SupportTicket struct {
	TenantModel
	RaisedBy    string `json:"raised_by" gorm:"type:uuid;index;not null"`
	Subject     string `json:"subject" gorm:"type:varchar(150);not null"`
	Description string `json:"description" gorm:"type:text"`
	Priority    string `json:"priority" gorm:"type:varchar(20);default:'normal'"` // low, normal, high, urgent
	Status      string `json:"status" gorm:"type:varchar(20);default:'open';index"`
	AssignedTo  string `json:"assigned_to" gorm:"type:uuid"`
	Resolution  string `json:"resolution" gorm:"type:text"`
}
