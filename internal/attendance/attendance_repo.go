package attendance

import (
	"context"
	"time"

	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	FindByEmployeeInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]Attendance, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindByEmployeeInRange returns punches with attendance_date in [start, end].
func (r *repository) FindByEmployeeInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]Attendance, error) {
	var rows []Attendance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("attendance_date BETWEEN ? AND ?", start.Format(time.DateOnly), end.Format(time.DateOnly)).
		Order("attendance_date ASC, clock_in ASC").
		Find(&rows).Error
	return rows, err
}
