package payroll

import (
	"time"

	"github.com/google/uuid"
)

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

func formatUUID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
}

func mapRunToResponse(run PayrollRun) PayrollRunResponse {
	return PayrollRunResponse{
		ID:                  run.ID.String(),
		RunCode:             run.RunCode,
		CompanyID:           run.CompanyID.String(),
		Period:              run.PeriodLabel(),
		Entity:              run.Entity,
		DepartmentID:        formatUUID(run.DepartmentID),
		Status:              run.Status,
		PaymentStatus:       run.PaymentStatus,
		Employees:           run.Employees,
		Exceptions:          run.Exceptions,
		TotalNetPay:         run.TotalNetPay,
		PayrollSpecialistID: run.PayrollSpecialistID.String(),
		PayrollManagerID:    formatUUID(run.PayrollManagerID),
		ManagerApprovedAt:   formatTime(run.ManagerApprovedAt),
		FinanceStaffID:      formatUUID(run.FinanceStaffID),
		FinanceApprovedAt:   formatTime(run.FinanceApprovedAt),
		RejectionReason:     run.RejectionReason,
		UnlockReason:        run.UnlockReason,
		LockedAt:            formatTime(run.LockedAt),
		UnlockedAt:          formatTime(run.UnlockedAt),
		PaidAt:              formatTime(run.PaidAt),
		CreatedAt:           run.CreatedAt.Format(time.RFC3339),
	}
}

func mapRunsToResponse(runs []PayrollRun) []PayrollRunResponse {
	resp := make([]PayrollRunResponse, len(runs))
	for i, run := range runs {
		resp[i] = mapRunToResponse(run)
	}
	return resp
}

func mapDetailToResponse(d EmployeePayrollDetail) PayrollDetailResponse {
	resp := PayrollDetailResponse{
		ID:                d.ID.String(),
		PayrollRunID:      d.PayrollRunID.String(),
		EmployeeID:        d.EmployeeID.String(),
		ProrationFactor:   d.ProrationFactor,
		BaseSalary:        d.BaseSalary,
		Allowances:        d.Allowances,
		GrossSalary:       d.GrossSalary,
		Taxes:             d.Taxes,
		Insurance:         d.Insurance,
		EmployerInsurance: d.EmployerInsurance,
		Deductions:        d.Deductions,
		NetSalary:         d.NetSalary,
		Penalties:         d.Penalties,
		PenaltyReason:     d.PenaltyReason,
		Refunds:           d.Refunds,
		Bonus:             d.Bonus,
		Benefit:           d.Benefit,
		NetPay:            d.NetPay,
		BankStatus:        d.BankStatus,
		Exceptions:        d.Exceptions,
		Resolution:        d.Resolution,
	}
	if d.Employee != nil {
		resp.EmployeeNumber = d.Employee.EmployeeNumber
		resp.EmployeeName = d.Employee.FullName
	}
	return resp
}

func mapDetailsToResponse(details []EmployeePayrollDetail) []PayrollDetailResponse {
	resp := make([]PayrollDetailResponse, len(details))
	for i, d := range details {
		resp[i] = mapDetailToResponse(d)
	}
	return resp
}

func mapPayslipToResponse(p Payslip) PayslipResponse {
	resp := PayslipResponse{
		ID:              p.ID.String(),
		PayrollRunID:    p.PayrollRunID.String(),
		EmployeeID:      p.EmployeeID.String(),
		Earnings:        p.Earnings,
		Deductions:      p.Deductions,
		TotalGross:      p.TotalGross,
		TotalDeductions: p.TotalDeductions,
		NetPay:          p.NetPay,
		PaymentStatus:   p.PaymentStatus,
		PDFURL:          p.PDFURL,
		PDFGeneratedAt:  formatTime(p.PDFGeneratedAt),
	}
	if p.Employee != nil {
		resp.EmployeeNumber = p.Employee.EmployeeNumber
		resp.EmployeeName = p.Employee.FullName
	}
	return resp
}

func mapPayslipsToResponse(payslips []Payslip) []PayslipResponse {
	resp := make([]PayslipResponse, len(payslips))
	for i, p := range payslips {
		resp[i] = mapPayslipToResponse(p)
	}
	return resp
}
