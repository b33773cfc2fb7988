package payroll

import (
	"fmt"
	"strings"
	"time"

	"go-payroll/internal/attendance"
	"go-payroll/internal/employee"
	"go-payroll/internal/leave"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/payrollconfig"
	"go-payroll/internal/refund"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WorkingDaysPerMonth        = 22
	WorkingHoursPerMonth       = 210
	DefaultExpectedHoursPerDay = 8
)

var hundred = decimal.NewFromInt(100)

// CalculationInput is everything needed to compute one employee's pay for
// one period. Refunds, bonus and benefit that are no longer payable are
// ignored, so a repeated calculation never counts them twice.
type CalculationInput struct {
	Employee            employee.Employee
	PeriodStart         time.Time
	PeriodEnd           time.Time
	Rules               payrollconfig.RuleSet
	Attendance          []attendance.Attendance
	Leaves              []leave.Leave
	Refunds             []refund.Refund
	SigningBonus        *payrollconfig.EmployeeSigningBonus
	TerminationBenefit  *payrollconfig.EmployeeTerminationBenefit
	ExpectedHoursPerDay int
}

type CalculationResult struct {
	ProrationFactor   decimal.Decimal
	BaseSalary        decimal.Decimal
	Allowances        decimal.Decimal
	GrossSalary       decimal.Decimal
	Taxes             decimal.Decimal
	Insurance         decimal.Decimal
	EmployerInsurance decimal.Decimal
	NetSalary         decimal.Decimal
	Penalties         decimal.Decimal
	PenaltyReason     string
	MissingDays       int
	MissingHours      decimal.Decimal
	Refunds           decimal.Decimal
	Bonus             decimal.Decimal
	Benefit           decimal.Decimal
	NetPay            decimal.Decimal
	BankStatus        string
	Exceptions        string

	Earnings   Earnings
	Deductions Deductions

	// Consumed by this calculation and settled together with the detail.
	RefundIDs            []string
	SigningBonusID       *string
	TerminationBenefitID *string
}

// Calculate computes the pay of one employee. It fails with
// ErrNoApprovedPayGrade when the employee has no approved pay grade.
func Calculate(in CalculationInput) (CalculationResult, error) {
	if in.Employee.PayGradeID == nil {
		return CalculationResult{}, payrollerrors.ErrNoApprovedPayGrade
	}
	grade, ok := in.Rules.PayGrade(in.Employee.PayGradeID.String())
	if !ok {
		return CalculationResult{}, payrollerrors.ErrNoApprovedPayGrade
	}

	periodStart, periodEnd := dateOnly(in.PeriodStart), dateOnly(in.PeriodEnd)
	start, end := effectiveWindow(in.Employee, periodStart, periodEnd)
	factor := prorationFactor(start, end, periodStart, periodEnd)

	res := CalculationResult{ProrationFactor: factor}

	configuredAllowances := decimal.Zero
	for _, a := range in.Rules.Allowances {
		configuredAllowances = configuredAllowances.Add(a.Amount)
		amount := a.Amount.Mul(factor).Round(2)
		res.Allowances = res.Allowances.Add(amount)
		res.Earnings.Allowances = append(res.Earnings.Allowances, LineItem{Name: a.Name, Amount: amount})
	}

	gross := grade.GrossSalary
	if !gross.IsPositive() {
		gross = grade.BaseSalary.Add(configuredAllowances)
	}
	res.BaseSalary = grade.BaseSalary.Mul(factor).Round(2)
	res.GrossSalary = gross.Mul(factor).Round(2)
	res.Earnings.BaseSalary = res.BaseSalary

	for _, rule := range in.Rules.TaxRules {
		amount := res.GrossSalary.Mul(rule.Rate).Div(hundred).Round(2)
		res.Taxes = res.Taxes.Add(amount)
		res.Deductions.Taxes = append(res.Deductions.Taxes, LineItem{Name: rule.Name, Amount: amount})
	}

	for _, bracket := range in.Rules.InsuranceBrackets {
		if !bracket.Covers(res.GrossSalary) {
			continue
		}
		amount := res.GrossSalary.Mul(bracket.EmployeeRate).Div(hundred).Round(2)
		res.Insurance = res.Insurance.Add(amount)
		res.EmployerInsurance = res.EmployerInsurance.Add(res.GrossSalary.Mul(bracket.EmployerRate).Div(hundred).Round(2))
		res.Deductions.Insurances = append(res.Deductions.Insurances, LineItem{Name: bracket.Name, Amount: amount})
	}

	res.NetSalary = res.GrossSalary.Sub(res.Taxes).Sub(res.Insurance)

	hoursPerDay := in.ExpectedHoursPerDay
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultExpectedHoursPerDay
	}
	pen := assessPenalties(in.Attendance, in.Leaves, start, end, hoursPerDay, res.NetSalary)
	res.Penalties = pen.amount
	res.PenaltyReason = pen.reason
	res.MissingDays = pen.missingDays
	res.MissingHours = pen.missingHours
	res.Deductions.Penalties = pen.items

	for _, r := range in.Refunds {
		if r.Status != refund.StatusPending {
			continue
		}
		res.Refunds = res.Refunds.Add(r.Amount)
		res.RefundIDs = append(res.RefundIDs, r.ID.String())
		res.Earnings.Refunds = append(res.Earnings.Refunds, LineItem{Name: r.Description, Amount: r.Amount})
	}

	if b := in.SigningBonus; b != nil && b.Status == payrollconfig.AssignmentStatusApproved {
		res.Bonus = b.Amount()
		id := b.ID.String()
		res.SigningBonusID = &id
		res.Earnings.Bonuses = append(res.Earnings.Bonuses, LineItem{Name: b.Label(), Amount: res.Bonus})
	}

	if b := in.TerminationBenefit; b != nil && b.Status == payrollconfig.AssignmentStatusApproved {
		res.Benefit = b.Amount()
		id := b.ID.String()
		res.TerminationBenefitID = &id
		res.Earnings.Benefits = append(res.Earnings.Benefits, LineItem{Name: b.Label(), Amount: res.Benefit})
	}

	res.NetPay = res.NetSalary.Sub(res.Penalties).Add(res.Refunds).Add(res.Bonus).Add(res.Benefit)

	res.BankStatus = BankStatusMissing
	if in.Employee.HasBankAccount() {
		res.BankStatus = BankStatusValid
	}

	res.Exceptions = InitialExceptions(EmployeePayrollDetail{NetPay: res.NetPay, BankStatus: res.BankStatus})

	return res, nil
}

// TotalDeductions is tax, employee insurance and penalties.
func (r CalculationResult) TotalDeductions() decimal.Decimal {
	return r.Taxes.Add(r.Insurance).Add(r.Penalties)
}

// TotalGross is everything paid before deductions.
func (r CalculationResult) TotalGross() decimal.Decimal {
	return r.GrossSalary.Add(r.Refunds).Add(r.Bonus).Add(r.Benefit)
}

func (r CalculationResult) Detail(run PayrollRun, employeeID uuid.UUID) EmployeePayrollDetail {
	return EmployeePayrollDetail{
		ID:                uuid.New(),
		CompanyID:         run.CompanyID,
		PayrollRunID:      run.ID,
		EmployeeID:        employeeID,
		ProrationFactor:   r.ProrationFactor.Round(4),
		BaseSalary:        r.BaseSalary,
		Allowances:        r.Allowances,
		GrossSalary:       r.GrossSalary,
		Taxes:             r.Taxes,
		Insurance:         r.Insurance,
		EmployerInsurance: r.EmployerInsurance,
		Deductions:        r.TotalDeductions(),
		NetSalary:         r.NetSalary,
		Penalties:         r.Penalties,
		PenaltyReason:     r.PenaltyReason,
		Refunds:           r.Refunds,
		Bonus:             r.Bonus,
		Benefit:           r.Benefit,
		NetPay:            r.NetPay,
		BankStatus:        r.BankStatus,
		Exceptions:        r.Exceptions,
	}
}

func (r CalculationResult) Payslip(detail EmployeePayrollDetail) Payslip {
	return Payslip{
		ID:              uuid.New(),
		CompanyID:       detail.CompanyID,
		PayrollRunID:    detail.PayrollRunID,
		EmployeeID:      detail.EmployeeID,
		DetailID:        detail.ID,
		Earnings:        r.Earnings,
		Deductions:      r.Deductions,
		TotalGross:      r.TotalGross(),
		TotalDeductions: r.TotalDeductions(),
		NetPay:          r.NetPay,
		PaymentStatus:   PaymentStatusPending,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// effectiveWindow bounds the period by the hire and termination dates.
func effectiveWindow(emp employee.Employee, periodStart, periodEnd time.Time) (time.Time, time.Time) {
	start, end := periodStart, periodEnd
	if !emp.HireDate.IsZero() {
		if hire := dateOnly(emp.HireDate); hire.After(start) {
			start = hire
		}
	}
	if emp.TerminationDate != nil {
		if term := dateOnly(*emp.TerminationDate); term.Before(end) {
			end = term
		}
	}
	return start, end
}

func inclusiveDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

func prorationFactor(start, end, periodStart, periodEnd time.Time) decimal.Decimal {
	if start.Equal(periodStart) && end.Equal(periodEnd) {
		return decimal.NewFromInt(1)
	}
	total := inclusiveDays(periodStart, periodEnd)
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(inclusiveDays(start, end))).Div(decimal.NewFromInt(int64(total)))
}

type penaltyAssessment struct {
	missingDays  int
	missingHours decimal.Decimal
	amount       decimal.Decimal
	reason       string
	items        []LineItem
}

// assessPenalties walks the weekdays of [start, end]. A weekday without a
// punch counts as missing unless a paid leave covers it. The hour shortfall
// is measured on days whose punches are all complete.
func assessPenalties(
	punches []attendance.Attendance,
	leaves []leave.Leave,
	start, end time.Time,
	hoursPerDay int,
	netSalary decimal.Decimal,
) penaltyAssessment {
	byDay := make(map[string][]attendance.Attendance, len(punches))
	for _, p := range punches {
		byDay[p.DateKey()] = append(byDay[p.DateKey()], p)
	}

	var (
		out          penaltyAssessment
		completeDays int
		worked       = decimal.Zero
	)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		dayPunches, attended := byDay[day.Format(time.DateOnly)]
		if !attended {
			if !coveredByPaidLeave(leaves, day) {
				out.missingDays++
			}
			continue
		}

		dayHours := decimal.Zero
		complete := true
		for _, p := range dayPunches {
			if !p.Complete() {
				complete = false
				break
			}
			dayHours = dayHours.Add(decimal.NewFromFloat(p.WorkedHours()))
		}
		if complete {
			completeDays++
			worked = worked.Add(dayHours)
		}
	}

	expected := decimal.NewFromInt(int64(completeDays * hoursPerDay))
	out.missingHours = decimal.Zero
	if shortfall := expected.Sub(worked).Round(2); shortfall.IsPositive() {
		out.missingHours = shortfall
	}

	basis := decimal.Max(netSalary, decimal.Zero)
	out.amount = decimal.Zero
	var reasons []string

	if out.missingDays > 0 {
		amount := basis.Mul(decimal.NewFromInt(int64(out.missingDays))).Div(decimal.NewFromInt(WorkingDaysPerMonth)).Round(2)
		out.amount = out.amount.Add(amount)
		reasons = append(reasons, fmt.Sprintf("%d missing working day(s)", out.missingDays))
		out.items = append(out.items, LineItem{Name: fmt.Sprintf("Missing working days (%d)", out.missingDays), Amount: amount})
	}
	if out.missingHours.IsPositive() {
		amount := basis.Mul(out.missingHours).Div(decimal.NewFromInt(WorkingHoursPerMonth)).Round(2)
		out.amount = out.amount.Add(amount)
		reasons = append(reasons, fmt.Sprintf("%s missing working hour(s)", out.missingHours.StringFixed(2)))
		out.items = append(out.items, LineItem{Name: fmt.Sprintf("Missing working hours (%s)", out.missingHours.StringFixed(2)), Amount: amount})
	}

	out.reason = strings.Join(reasons, "; ")
	return out
}

func coveredByPaidLeave(leaves []leave.Leave, day time.Time) bool {
	for _, l := range leaves {
		if l.Paid() && l.Covers(day) {
			return true
		}
	}
	return false
}
