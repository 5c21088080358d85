package model

// Teacher links a platform user to an institute as teaching staff.
type Teacher struct {
	TenantModel
	UserID        string `json:"user_id" gorm:"type:uuid;index;not null"`
	EmployeeID    string `json:"employee_id" gorm:"type:varchar(30);index"`
	Department    string `json:"department" gorm:"type:varchar(50)"`
	Qualification string `json:"qualification" gorm:"type:varchar(100)"`
	Phone         string `json:"phone" gorm:"type:varchar(20)"`
	Status        string `json:"status" gorm:"type:varchar(20);default:'active'"` // active, on_leave, resigned
}
