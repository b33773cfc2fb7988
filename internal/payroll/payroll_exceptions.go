package payroll

import "strings"

const (
	ExceptionNegativeNetPay     = "Negative Net Pay"
	ExceptionMissingBankDetails = "Missing Bank Details"
	ExceptionSalarySpike        = "Salary Spike"

	exceptionSeparator = ", "
)

type exceptionRule struct {
	name  string
	match func(d EmployeePayrollDetail) bool
}

var (
	negativeNetPay = exceptionRule{
		name:  ExceptionNegativeNetPay,
		match: func(d EmployeePayrollDetail) bool { return d.NetPay.IsNegative() },
	}
	missingBankDetails = exceptionRule{
		name:  ExceptionMissingBankDetails,
		match: func(d EmployeePayrollDetail) bool { return d.BankStatus == BankStatusMissing },
	}
	// Net pay above base, allowances, bonus and benefit. Equality is not a spike.
	salarySpike = exceptionRule{
		name: ExceptionSalarySpike,
		match: func(d EmployeePayrollDetail) bool {
			return d.NetPay.GreaterThan(d.BaseSalary.Add(d.Allowances).Add(d.Bonus).Add(d.Benefit))
		},
	}

	initialRules = []exceptionRule{negativeNetPay, missingBankDetails}
	reviewRules  = []exceptionRule{negativeNetPay, missingBankDetails, salarySpike}
)

func collectExceptions(d EmployeePayrollDetail, rules []exceptionRule) string {
	var found []string
	for _, rule := range rules {
		if rule.match(d) {
			found = append(found, rule.name)
		}
	}
	return strings.Join(found, exceptionSeparator)
}

// InitialExceptions flags a freshly calculated detail.
func InitialExceptions(d EmployeePayrollDetail) string {
	return collectExceptions(d, initialRules)
}

// DetectExceptions rescans a detail at review. A MISSING bank status heals
// to VALID first when the employee now has a bank account.
func DetectExceptions(d *EmployeePayrollDetail, bankValid bool) string {
	if d.BankStatus == BankStatusMissing && bankValid {
		d.BankStatus = BankStatusValid
	}
	return collectExceptions(*d, reviewRules)
}
