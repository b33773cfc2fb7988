package employee

import (
	"context"
	"time"

	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Employee, error)
	FindByIDs(ctx context.Context, companyID string, ids []string) ([]Employee, error)
	FindPayableEmployees(ctx context.Context, companyID string, departmentID *string, periodStart, periodEnd time.Time) ([]Employee, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Employee, error) {
	var empl Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Department").
		Preload("Position").
		First(&empl, "id = ?", id).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &empl, nil
}

func (r *repository) FindByIDs(ctx context.Context, companyID string, ids []string) ([]Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var empls []Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("id IN ?", ids).
		Find(&empls).Error
	return empls, mapRepositoryError(err)
}

// FindPayableEmployees returns employees employed for at least one day of
// the period, optionally limited to one department.
func (r *repository) FindPayableEmployees(
	ctx context.Context,
	companyID string,
	departmentID *string,
	periodStart, periodEnd time.Time,
) ([]Employee, error) {
	db := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Department").
		Preload("Position").
		Where("hire_date <= ?", periodEnd).
		Where("(termination_date IS NULL OR termination_date >= ?)", periodStart)

	if departmentID != nil && *departmentID != "" {
		db = db.Where("department_id = ?", *departmentID)
	}

	var empls []Employee
	err := db.Order("employee_number ASC").Find(&empls).Error
	return empls, mapRepositoryError(err)
}
