package attendance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Attendance struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID      uuid.UUID      `gorm:"column:company_id;type:uuid;not null;index"`
	EmployeeID     uuid.UUID      `gorm:"column:employee_id;type:uuid;not null;index"`
	AttendanceDate time.Time      `gorm:"column:attendance_date;type:date;not null;index"`
	ClockIn        time.Time      `gorm:"column:clock_in;type:timestamptz;not null"`
	ClockOut       *time.Time     `gorm:"column:clock_out;type:timestamptz"`
	Status         string         `gorm:"column:status;type:varchar(20);not null;default:PRESENT"`
	Source         string         `gorm:"column:source;type:varchar(30);not null;default:MANUAL"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Attendance) TableName() string {
	return "attendances"
}

// Complete reports whether the punch has both clock-in and clock-out.
func (a Attendance) Complete() bool {
	return a.ClockOut != nil && a.ClockOut.After(a.ClockIn)
}

// WorkedHours is zero for incomplete punches.
func (a Attendance) WorkedHours() float64 {
	if !a.Complete() {
		return 0
	}
	return a.ClockOut.Sub(a.ClockIn).Hours()
}

// DateKey identifies the calendar day of the punch.
func (a Attendance) DateKey() string {
	return a.AttendanceDate.Format(time.DateOnly)
}
