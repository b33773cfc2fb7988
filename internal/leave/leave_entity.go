package leave

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const StatusApproved = "APPROVED"

type LeaveType struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(60);not null"`
	IsPaid    bool      `gorm:"not null;default:true"`
}

func (LeaveType) TableName() string {
	return "leave_types"
}

type Leave struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index:idx_leaves_company_status"`
	EmployeeID  uuid.UUID `gorm:"type:uuid;not null;index:idx_leaves_employee_dates"`
	LeaveTypeID uuid.UUID `gorm:"type:uuid;not null"`

	StartDate time.Time `gorm:"type:date;not null;index:idx_leaves_employee_dates"`
	EndDate   time.Time `gorm:"type:date;not null;index:idx_leaves_employee_dates"`
	TotalDays int       `gorm:"type:int;not null;default:1"`
	Status    string    `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_leaves_company_status"`

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt *time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index:idx_leaves_deleted_at"`

	Type *LeaveType `gorm:"foreignKey:LeaveTypeID;references:ID"`
}

// Paid reports whether the leave type is paid. Leaves without a loaded type
// count as unpaid.
func (l Leave) Paid() bool {
	return l.Type != nil && l.Type.IsPaid
}

// Covers reports whether day falls inside [StartDate, EndDate] by calendar date.
func (l Leave) Covers(day time.Time) bool {
	d := day.Format(time.DateOnly)
	return d >= l.StartDate.Format(time.DateOnly) && d <= l.EndDate.Format(time.DateOnly)
}
