package employee

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusActive     = "ACTIVE"
	StatusProbation  = "PROBATION"
	StatusTerminated = "TERMINATED"
	StatusResigned   = "RESIGNED"
)

type Employee struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CompanyID         uuid.UUID      `gorm:"type:uuid;index"`
	DepartmentID      *uuid.UUID     `gorm:"type:uuid;index"`
	PositionID        *uuid.UUID     `gorm:"type:uuid"`
	PayGradeID        *uuid.UUID     `gorm:"type:uuid"`
	EmployeeNumber    string         `gorm:"type:varchar(30)"`
	FullName          string         `gorm:"column:full_name"`
	Email             string         `gorm:"uniqueIndex"`
	BankName          *string        `gorm:"type:varchar(100)"`
	BankAccountNumber *string        `gorm:"type:varchar(50)"`
	HireDate          time.Time      `gorm:"type:date"`
	TerminationDate   *time.Time     `gorm:"type:date"`
	EmploymentStatus  string         `gorm:"type:varchar(20)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`

	Department *DepartmentRef `gorm:"foreignKey:DepartmentID;references:ID"`
	Position   *PositionRef   `gorm:"foreignKey:PositionID;references:ID"`
}

// HasBankAccount reports whether salary can be transferred to the employee.
func (e Employee) HasBankAccount() bool {
	return e.BankAccountNumber != nil && strings.TrimSpace(*e.BankAccountNumber) != ""
}

func (e Employee) DepartmentName() string {
	if e.Department == nil {
		return ""
	}
	return e.Department.Name
}

func (e Employee) PositionName() string {
	if e.Position == nil {
		return ""
	}
	return e.Position.Name
}

type DepartmentRef struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string
}

func (DepartmentRef) TableName() string {
	return "departments"
}

type PositionRef struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string
}

func (PositionRef) TableName() string {
	return "positions"
}
