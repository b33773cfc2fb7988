package payroll

import (
	"context"
	"database/sql"
	"time"

	"go-payroll/internal/tenant"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RunFilter struct {
	Period *time.Time
	Status string
}

// RunAggregates are recomputed from the details of a run.
type RunAggregates struct {
	Employees   int64
	Exceptions  int64
	TotalNetPay decimal.Decimal
}

type Repository interface {
	WithTx(tx *sql.Tx) Repository

	CreateRun(ctx context.Context, run *PayrollRun) error
	UpdateRun(ctx context.Context, run *PayrollRun) error
	FindRuns(ctx context.Context, companyID string, filter RunFilter) ([]PayrollRun, error)
	FindRunByID(ctx context.Context, companyID, id string) (*PayrollRun, error)
	LockRunByID(ctx context.Context, companyID, id string) (*PayrollRun, error)
	ExistsForPeriod(ctx context.Context, companyID string, period time.Time, entity string) (bool, error)

	CreateDetail(ctx context.Context, detail *EmployeePayrollDetail) error
	UpdateDetail(ctx context.Context, detail *EmployeePayrollDetail) error
	FindDetails(ctx context.Context, companyID, runID string, onlyExceptions bool) ([]EmployeePayrollDetail, error)
	FindDetailByID(ctx context.Context, companyID, runID, detailID string) (*EmployeePayrollDetail, error)
	CountExceptions(ctx context.Context, companyID, runID string) (int64, error)
	Aggregate(ctx context.Context, companyID, runID string) (RunAggregates, error)
	ListEmployeeIDs(ctx context.Context, companyID, runID string) ([]string, error)

	CreatePayslip(ctx context.Context, payslip *Payslip) error
	FindPayslips(ctx context.Context, companyID, runID string) ([]Payslip, error)
	FindPayslipByEmployee(ctx context.Context, companyID, runID, employeeID string) (*Payslip, error)
	MarkPayslipsPaid(ctx context.Context, companyID, runID string) (int64, error)
	UpdatePayslipPDF(ctx context.Context, companyID, payslipID, url string, generatedAt time.Time) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) CreateRun(ctx context.Context, run *PayrollRun) error {
	return mapRunError(r.conn(ctx).Create(run).Error)
}

func (r *repository) UpdateRun(ctx context.Context, run *PayrollRun) error {
	return mapRunError(r.conn(ctx).Save(run).Error)
}

func (r *repository) FindRuns(ctx context.Context, companyID string, filter RunFilter) ([]PayrollRun, error) {
	db := r.conn(ctx).Scopes(tenant.Scope(companyID))
	if filter.Period != nil {
		db = db.Where("period = ?", filter.Period.Format(time.DateOnly))
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	var runs []PayrollRun
	err := db.Order("period DESC, created_at DESC").Find(&runs).Error
	return runs, err
}

func (r *repository) FindRunByID(ctx context.Context, companyID, id string) (*PayrollRun, error) {
	var run PayrollRun
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, mapRunError(err)
	}
	return &run, nil
}

// LockRunByID loads the run with a row lock. Use it inside a transaction so
// concurrent transitions of the same run are serialized.
func (r *repository) LockRunByID(ctx context.Context, companyID, id string) (*PayrollRun, error) {
	var run PayrollRun
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.Scope(companyID)).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, mapRunError(err)
	}
	return &run, nil
}

func (r *repository) ExistsForPeriod(ctx context.Context, companyID string, period time.Time, entity string) (bool, error) {
	var count int64
	err := r.conn(ctx).
		Model(&PayrollRun{}).
		Scopes(tenant.Scope(companyID)).
		Where("period = ?", period.Format(time.DateOnly)).
		Where("entity = ?", entity).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateDetail(ctx context.Context, detail *EmployeePayrollDetail) error {
	return r.conn(ctx).Omit(clause.Associations).Create(detail).Error
}

func (r *repository) UpdateDetail(ctx context.Context, detail *EmployeePayrollDetail) error {
	return r.conn(ctx).Omit(clause.Associations).Save(detail).Error
}

func (r *repository) FindDetails(ctx context.Context, companyID, runID string, onlyExceptions bool) ([]EmployeePayrollDetail, error) {
	db := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Employee").
		Where("payroll_run_id = ?", runID)
	if onlyExceptions {
		db = db.Where("exceptions <> ''")
	}

	var details []EmployeePayrollDetail
	err := db.Order("created_at ASC").Find(&details).Error
	return details, err
}

func (r *repository) FindDetailByID(ctx context.Context, companyID, runID, detailID string) (*EmployeePayrollDetail, error) {
	var detail EmployeePayrollDetail
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Employee").
		Where("payroll_run_id = ?", runID).
		First(&detail, "id = ?", detailID).Error
	if err != nil {
		return nil, mapDetailError(err)
	}
	return &detail, nil
}

func (r *repository) CountExceptions(ctx context.Context, companyID, runID string) (int64, error) {
	var count int64
	err := r.conn(ctx).
		Model(&EmployeePayrollDetail{}).
		Scopes(tenant.Scope(companyID)).
		Where("payroll_run_id = ?", runID).
		Where("exceptions <> ''").
		Count(&count).Error
	return count, err
}

func (r *repository) Aggregate(ctx context.Context, companyID, runID string) (RunAggregates, error) {
	var row struct {
		Employees   int64
		Exceptions  int64
		TotalNetPay decimal.Decimal
	}
	err := r.conn(ctx).
		Model(&EmployeePayrollDetail{}).
		Select("COUNT(*) AS employees, COUNT(*) FILTER (WHERE exceptions <> '') AS exceptions, COALESCE(SUM(net_pay), 0) AS total_net_pay").
		Scopes(tenant.Scope(companyID)).
		Where("payroll_run_id = ?", runID).
		Scan(&row).Error
	if err != nil {
		return RunAggregates{}, err
	}
	return RunAggregates{
		Employees:   row.Employees,
		Exceptions:  row.Exceptions,
		TotalNetPay: row.TotalNetPay,
	}, nil
}

func (r *repository) ListEmployeeIDs(ctx context.Context, companyID, runID string) ([]string, error) {
	var ids []string
	err := r.conn(ctx).
		Model(&EmployeePayrollDetail{}).
		Scopes(tenant.Scope(companyID)).
		Where("payroll_run_id = ?", runID).
		Pluck("employee_id", &ids).Error
	return ids, err
}

func (r *repository) CreatePayslip(ctx context.Context, payslip *Payslip) error {
	return r.conn(ctx).Omit(clause.Associations).Create(payslip).Error
}

func (r *repository) FindPayslips(ctx context.Context, companyID, runID string) ([]Payslip, error) {
	var payslips []Payslip
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Employee").
		Where("payroll_run_id = ?", runID).
		Order("created_at ASC").
		Find(&payslips).Error
	return payslips, err
}

func (r *repository) FindPayslipByEmployee(ctx context.Context, companyID, runID, employeeID string) (*Payslip, error) {
	var payslip Payslip
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Employee").
		Where("payroll_run_id = ?", runID).
		Where("employee_id = ?", employeeID).
		First(&payslip).Error
	if err != nil {
		return nil, mapPayslipError(err)
	}
	return &payslip, nil
}

// MarkPayslipsPaid only touches PENDING payslips, so settling twice is a no-op.
func (r *repository) MarkPayslipsPaid(ctx context.Context, companyID, runID string) (int64, error) {
	res := r.conn(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(companyID)).
		Where("payroll_run_id = ?", runID).
		Where("payment_status = ?", PaymentStatusPending).
		Update("payment_status", PaymentStatusPaid)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdatePayslipPDF(ctx context.Context, companyID, payslipID, url string, generatedAt time.Time) error {
	return r.conn(ctx).
		Model(&Payslip{}).
		Scopes(tenant.Scope(companyID)).
		Where("id = ?", payslipID).
		Updates(map[string]any{"pdf_url": url, "pdf_generated_at": generatedAt}).Error
}
