package refund

import (
	"context"
	"database/sql"
	"time"

	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindPendingByEmployee(ctx context.Context, companyID, employeeID string) ([]Refund, error)
	MarkPaid(ctx context.Context, companyID string, ids []string, runID string, paidAt time.Time) error
	SettlePendingForEmployees(ctx context.Context, companyID string, employeeIDs []string, runID string, paidAt time.Time) (int64, error)
	RevertByRun(ctx context.Context, companyID, runID string) (int64, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) FindPendingByEmployee(ctx context.Context, companyID, employeeID string) ([]Refund, error) {
	var refunds []Refund
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("status = ?", StatusPending).
		Order("created_at ASC").
		Find(&refunds).Error
	return refunds, err
}

// MarkPaid links pending refunds to the run. Refunds already paid are left alone.
func (r *repository) MarkPaid(ctx context.Context, companyID string, ids []string, runID string, paidAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.conn(ctx).
		Model(&Refund{}).
		Scopes(tenant.Scope(companyID)).
		Where("id IN ?", ids).
		Where("status = ?", StatusPending).
		Updates(map[string]any{"status": StatusPaid, "payroll_run_id": runID, "paid_at": paidAt}).Error
}

func (r *repository) SettlePendingForEmployees(ctx context.Context, companyID string, employeeIDs []string, runID string, paidAt time.Time) (int64, error) {
	if len(employeeIDs) == 0 {
		return 0, nil
	}
	res := r.conn(ctx).
		Model(&Refund{}).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id IN ?", employeeIDs).
		Where("status = ?", StatusPending).
		Updates(map[string]any{"status": StatusPaid, "payroll_run_id": runID, "paid_at": paidAt})
	return res.RowsAffected, res.Error
}

// RevertByRun returns refunds paid through the run to PENDING and clears the link.
func (r *repository) RevertByRun(ctx context.Context, companyID, runID string) (int64, error) {
	res := r.conn(ctx).
		Model(&Refund{}).
		Scopes(tenant.Scope(companyID)).
		Where("payroll_run_id = ?", runID).
		Updates(map[string]any{"status": StatusPending, "payroll_run_id": nil, "paid_at": nil})
	return res.RowsAffected, res.Error
}
