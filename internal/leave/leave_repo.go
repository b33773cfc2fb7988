package leave

import (
	"context"
	"time"

	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	FindApprovedInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]Leave, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindApprovedInRange returns approved leaves overlapping [start, end] with
// their leave type loaded.
func (r *repository) FindApprovedInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]Leave, error) {
	var leaves []Leave
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Type").
		Where("employee_id = ?", employeeID).
		Where("status = ?", StatusApproved).
		Where("NOT (end_date < ? OR start_date > ?)", start.Format(time.DateOnly), end.Format(time.DateOnly)).
		Order("start_date ASC").
		Find(&leaves).Error
	return leaves, err
}
