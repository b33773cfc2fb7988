package payrollconfig

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindApprovedRuleSet(ctx context.Context, companyID string) (RuleSet, error)
	FindApprovedSigningBonus(ctx context.Context, companyID, employeeID string) (*EmployeeSigningBonus, error)
	FindApprovedTerminationBenefit(ctx context.Context, companyID, employeeID string) (*EmployeeTerminationBenefit, error)
	MarkSigningBonusPaid(ctx context.Context, id string, paidAt time.Time) error
	MarkTerminationBenefitPaid(ctx context.Context, id string, paidAt time.Time) error
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

func approved(db *gorm.DB) *gorm.DB {
	return db.Where("config_status = ?", ConfigStatusApproved)
}

func (r *repository) FindApprovedRuleSet(ctx context.Context, companyID string) (RuleSet, error) {
	var (
		grades     []PayGrade
		taxRules   []TaxRule
		brackets   []InsuranceBracket
		allowances []Allowance
	)

	db := r.conn(ctx)
	if err := db.Scopes(tenant.Scope(companyID), approved).Find(&grades).Error; err != nil {
		return RuleSet{}, err
	}
	if err := db.Scopes(tenant.Scope(companyID), approved).Order("name ASC").Find(&taxRules).Error; err != nil {
		return RuleSet{}, err
	}
	if err := db.Scopes(tenant.Scope(companyID), approved).Order("min_salary ASC").Find(&brackets).Error; err != nil {
		return RuleSet{}, err
	}
	if err := db.Scopes(tenant.Scope(companyID), approved).Order("name ASC").Find(&allowances).Error; err != nil {
		return RuleSet{}, err
	}

	set := RuleSet{
		PayGrades:         make(map[string]PayGrade, len(grades)),
		TaxRules:          taxRules,
		InsuranceBrackets: brackets,
		Allowances:        allowances,
	}
	for _, g := range grades {
		set.PayGrades[g.ID.String()] = g
	}

	return set, nil
}

func (r *repository) FindApprovedSigningBonus(ctx context.Context, companyID, employeeID string) (*EmployeeSigningBonus, error) {
	var bonus EmployeeSigningBonus
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("SigningBonus").
		Where("employee_id = ?", employeeID).
		Where("status = ?", AssignmentStatusApproved).
		Order("created_at ASC").
		First(&bonus).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bonus, nil
}

func (r *repository) FindApprovedTerminationBenefit(ctx context.Context, companyID, employeeID string) (*EmployeeTerminationBenefit, error) {
	var benefit EmployeeTerminationBenefit
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Benefit").
		Where("employee_id = ?", employeeID).
		Where("status = ?", AssignmentStatusApproved).
		Order("created_at ASC").
		First(&benefit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &benefit, nil
}

// MarkSigningBonusPaid only flips APPROVED rows, so a bonus is paid at most once.
func (r *repository) MarkSigningBonusPaid(ctx context.Context, id string, paidAt time.Time) error {
	return r.conn(ctx).
		Model(&EmployeeSigningBonus{}).
		Where("id = ? AND status = ?", id, AssignmentStatusApproved).
		Updates(map[string]any{"status": AssignmentStatusPaid, "payment_date": paidAt}).Error
}

func (r *repository) MarkTerminationBenefitPaid(ctx context.Context, id string, paidAt time.Time) error {
	return r.conn(ctx).
		Model(&EmployeeTerminationBenefit{}).
		Where("id = ? AND status = ?", id, AssignmentStatusApproved).
		Updates(map[string]any{"status": AssignmentStatusPaid, "payment_date": paidAt}).Error
}
