package payrollconfig

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfigStatus of every configuration row. Only APPROVED rows take part in
// payroll calculation.
const (
	ConfigStatusDraft    = "DRAFT"
	ConfigStatusApproved = "APPROVED"
	ConfigStatusRejected = "REJECTED"
)

// Status of a per-employee signing bonus or termination benefit.
const (
	AssignmentStatusPending  = "PENDING"
	AssignmentStatusApproved = "APPROVED"
	AssignmentStatusRejected = "REJECTED"
	AssignmentStatusPaid     = "PAID"
)

type PayGrade struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	Grade        string          `gorm:"type:varchar(60);not null" json:"grade"`
	BaseSalary   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"base_salary"`
	GrossSalary  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"gross_salary"`
	ConfigStatus string          `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"config_status"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`
}

type TaxRule struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	Name         string          `gorm:"type:varchar(120);not null" json:"name"`
	Rate         decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"rate"`
	ConfigStatus string          `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"config_status"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`
}

type InsuranceBracket struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	Name         string          `gorm:"type:varchar(120);not null" json:"name"`
	MinSalary    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"min_salary"`
	MaxSalary    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"max_salary"`
	EmployeeRate decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"employee_rate"`
	EmployerRate decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"employer_rate"`
	ConfigStatus string          `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"config_status"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`
}

// Covers reports whether salary lies inside [MinSalary, MaxSalary].
func (b InsuranceBracket) Covers(salary decimal.Decimal) bool {
	return salary.GreaterThanOrEqual(b.MinSalary) && salary.LessThanOrEqual(b.MaxSalary)
}

type Allowance struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	Name         string          `gorm:"type:varchar(120);not null" json:"name"`
	Amount       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	ConfigStatus string          `gorm:"type:varchar(20);not null;default:'DRAFT'" json:"config_status"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`
}

type SigningBonus struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	PositionName string          `gorm:"type:varchar(120);not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ConfigStatus string          `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TerminationBenefit struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name         string          `gorm:"type:varchar(120);not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ConfigStatus string          `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type EmployeeSigningBonus struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmployeeID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SigningBonusID uuid.UUID       `gorm:"type:uuid;not null"`
	GivenAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Status         string          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaymentDate    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	SigningBonus *SigningBonus `gorm:"foreignKey:SigningBonusID;references:ID"`
}

// Amount is the given amount, or the configured amount when none was set.
func (b EmployeeSigningBonus) Amount() decimal.Decimal {
	if b.GivenAmount.IsPositive() || b.SigningBonus == nil {
		return b.GivenAmount
	}
	return b.SigningBonus.Amount
}

func (b EmployeeSigningBonus) Label() string {
	if b.SigningBonus == nil {
		return "Signing Bonus"
	}
	return "Signing Bonus - " + b.SigningBonus.PositionName
}

type EmployeeTerminationBenefit struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmployeeID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	BenefitID      uuid.UUID       `gorm:"type:uuid;not null"`
	ApprovedAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Status         string          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaymentDate    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Benefit *TerminationBenefit `gorm:"foreignKey:BenefitID;references:ID"`
}

func (b EmployeeTerminationBenefit) Amount() decimal.Decimal {
	if b.ApprovedAmount.IsPositive() || b.Benefit == nil {
		return b.ApprovedAmount
	}
	return b.Benefit.Amount
}

func (b EmployeeTerminationBenefit) Label() string {
	if b.Benefit == nil {
		return "Termination Benefit"
	}
	return b.Benefit.Name
}
