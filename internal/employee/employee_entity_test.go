package employee_test

import (
	"errors"
	"testing"

	"go-payroll/internal/employee"
	employeeerrors "go-payroll/internal/employee/errors"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestEmployee_HasBankAccount(t *testing.T) {
	blank := "   "
	account := "1234567890"

	assert.False(t, employee.Employee{}.HasBankAccount())
	assert.False(t, employee.Employee{BankAccountNumber: &blank}.HasBankAccount())
	assert.True(t, employee.Employee{BankAccountNumber: &account}.HasBankAccount())
}

func TestEmployee_RefNames(t *testing.T) {
	e := employee.Employee{
		Department: &employee.DepartmentRef{Name: "Finance"},
	}

	assert.Equal(t, "Finance", e.DepartmentName())
	assert.Equal(t, "", e.PositionName())
}

func TestMapRepositoryError(t *testing.T) {
	other := errors.New("boom")
	assert.Equal(t, other, employee.MapRepositoryErrorForTest(other))
	assert.Nil(t, employee.MapRepositoryErrorForTest(nil))
	assert.ErrorIs(t, employee.MapRepositoryErrorForTest(gorm.ErrRecordNotFound), employeeerrors.ErrEmployeeNotFound)
}
