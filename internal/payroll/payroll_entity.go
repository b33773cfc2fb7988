package payroll

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusDraft                  = "DRAFT"
	StatusUnderReview            = "UNDER_REVIEW"
	StatusPendingFinanceApproval = "PENDING_FINANCE_APPROVAL"
	StatusApproved               = "APPROVED"
	StatusRejected               = "REJECTED"
	StatusLocked                 = "LOCKED"
	StatusUnlocked               = "UNLOCKED"
)

const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
)

const (
	BankStatusValid   = "VALID"
	BankStatusMissing = "MISSING"
)

// PayrollRun is one payroll cycle of an entity for a month. Runs are never
// deleted. Employees, Exceptions and TotalNetPay are recomputed from the
// details.
type PayrollRun struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_payroll_run_period_entity,priority:1;uniqueIndex:uq_payroll_run_code,priority:1"`
	RunCode      string     `gorm:"type:varchar(30);not null;uniqueIndex:uq_payroll_run_code,priority:2"`
	Period       time.Time  `gorm:"type:date;not null;uniqueIndex:uq_payroll_run_period_entity,priority:2"`
	Entity       string     `gorm:"type:varchar(120);not null;uniqueIndex:uq_payroll_run_period_entity,priority:3"`
	DepartmentID *uuid.UUID `gorm:"type:uuid;index"`

	Status        string          `gorm:"type:varchar(30);not null;default:'DRAFT';index"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Employees     int             `gorm:"not null;default:0"`
	Exceptions    int             `gorm:"not null;default:0"`
	TotalNetPay   decimal.Decimal `gorm:"type:numeric(16,2);not null;default:0"`

	PayrollSpecialistID uuid.UUID  `gorm:"type:uuid;not null"`
	PayrollManagerID    *uuid.UUID `gorm:"type:uuid"`
	ManagerApprovedAt   *time.Time
	FinanceStaffID      *uuid.UUID `gorm:"type:uuid"`
	FinanceApprovedAt   *time.Time
	RejectionReason     *string `gorm:"type:text"`
	UnlockReason        *string `gorm:"type:text"`

	LockedAt   *time.Time
	UnlockedAt *time.Time
	PaidAt     *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PeriodEnd is the last calendar day of the run month.
func (r PayrollRun) PeriodEnd() time.Time {
	return r.Period.AddDate(0, 1, -1)
}

func (r PayrollRun) PeriodLabel() string {
	return r.Period.Format("2006-01")
}

// ExceptionResolution records a manual override of a detail exception.
type ExceptionResolution struct {
	PreviousException string    `json:"previous_exception"`
	Resolution        string    `json:"resolution"`
	ResolvedBy        string    `json:"resolved_by"`
	ResolvedAt        time.Time `json:"resolved_at"`
}

// EmployeePayrollDetail is the computed pay of one employee in one run.
type EmployeePayrollDetail struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index"`
	PayrollRunID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payroll_detail_run_employee,priority:1"`
	EmployeeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payroll_detail_run_employee,priority:2"`

	ProrationFactor   decimal.Decimal `gorm:"type:numeric(7,4);not null;default:1"`
	BaseSalary        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Allowances        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	GrossSalary       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Taxes             decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Insurance         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	EmployerInsurance decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Deductions        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	NetSalary         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Penalties         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	PenaltyReason     string          `gorm:"type:text"`
	Refunds           decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Bonus             decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Benefit           decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	NetPay            decimal.Decimal `gorm:"type:numeric(14,2);not null"`

	BankStatus string               `gorm:"type:varchar(20);not null"`
	Exceptions string               `gorm:"type:text;not null;default:''"`
	Resolution *ExceptionResolution `gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Employee *EmployeeRef `gorm:"foreignKey:EmployeeID;references:ID"`
}

func (EmployeePayrollDetail) TableName() string {
	return "employee_payroll_details"
}

type LineItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type Earnings struct {
	BaseSalary decimal.Decimal `json:"base_salary"`
	Allowances []LineItem      `json:"allowances"`
	Bonuses    []LineItem      `json:"bonuses"`
	Benefits   []LineItem      `json:"benefits"`
	Refunds    []LineItem      `json:"refunds"`
}

type Deductions struct {
	Taxes      []LineItem `json:"taxes"`
	Insurances []LineItem `json:"insurances"`
	Penalties  []LineItem `json:"penalties"`
}

// Payslip is the employee-facing statement derived from a detail.
type Payslip struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index"`
	PayrollRunID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payslip_run_employee,priority:1"`
	EmployeeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_payslip_run_employee,priority:2"`
	DetailID     uuid.UUID `gorm:"type:uuid;not null"`

	Earnings        Earnings        `gorm:"type:jsonb;serializer:json"`
	Deductions      Deductions      `gorm:"type:jsonb;serializer:json"`
	TotalGross      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TotalDeductions decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	NetPay          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null;default:'PENDING'"`

	PDFURL         *string    `gorm:"column:pdf_url"`
	PDFGeneratedAt *time.Time `gorm:"column:pdf_generated_at"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Employee *EmployeeRef `gorm:"foreignKey:EmployeeID;references:ID"`
}

type EmployeeRef struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeNumber string    `gorm:"column:employee_number"`
	FullName       string    `gorm:"column:full_name"`
}

func (EmployeeRef) TableName() string {
	return "employees"
}
