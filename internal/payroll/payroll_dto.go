package payroll

import "github.com/shopspring/decimal"

type InitiatePayrollRequest struct {
	Period              string `json:"period" binding:"required"`
	Entity              string `json:"entity" binding:"required,max=120"`
	PayrollSpecialistID string `json:"payroll_specialist_id" binding:"omitempty,uuid"`
	PayrollManagerID    string `json:"payroll_manager_id" binding:"omitempty,uuid"`
	PrimaryDepartmentID string `json:"primary_department_id" binding:"omitempty,uuid"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

type ResolveExceptionRequest struct {
	Resolution string `json:"resolution" binding:"required,max=1000"`
}

type GetPayrollRunsFilterRequest struct {
	Period string `form:"period"`
	Status string `form:"status"`
}

type PayrollRunResponse struct {
	ID                  string          `json:"id"`
	RunCode             string          `json:"run_code"`
	CompanyID           string          `json:"company_id"`
	Period              string          `json:"period"`
	Entity              string          `json:"entity"`
	DepartmentID        *string         `json:"department_id,omitempty"`
	Status              string          `json:"status"`
	PaymentStatus       string          `json:"payment_status"`
	Employees           int             `json:"employees"`
	Exceptions          int             `json:"exceptions"`
	TotalNetPay         decimal.Decimal `json:"total_net_pay"`
	PayrollSpecialistID string          `json:"payroll_specialist_id"`
	PayrollManagerID    *string         `json:"payroll_manager_id,omitempty"`
	ManagerApprovedAt   *string         `json:"manager_approved_at,omitempty"`
	FinanceStaffID      *string         `json:"finance_staff_id,omitempty"`
	FinanceApprovedAt   *string         `json:"finance_approved_at,omitempty"`
	RejectionReason     *string         `json:"rejection_reason,omitempty"`
	UnlockReason        *string         `json:"unlock_reason,omitempty"`
	LockedAt            *string         `json:"locked_at,omitempty"`
	UnlockedAt          *string         `json:"unlocked_at,omitempty"`
	PaidAt              *string         `json:"paid_at,omitempty"`
	CreatedAt           string          `json:"created_at"`
}

type PayrollDetailResponse struct {
	ID                string               `json:"id"`
	PayrollRunID      string               `json:"payroll_run_id"`
	EmployeeID        string               `json:"employee_id"`
	EmployeeNumber    string               `json:"employee_number,omitempty"`
	EmployeeName      string               `json:"employee_name,omitempty"`
	ProrationFactor   decimal.Decimal      `json:"proration_factor"`
	BaseSalary        decimal.Decimal      `json:"base_salary"`
	Allowances        decimal.Decimal      `json:"allowances"`
	GrossSalary       decimal.Decimal      `json:"gross_salary"`
	Taxes             decimal.Decimal      `json:"taxes"`
	Insurance         decimal.Decimal      `json:"insurance"`
	EmployerInsurance decimal.Decimal      `json:"employer_insurance"`
	Deductions        decimal.Decimal      `json:"deductions"`
	NetSalary         decimal.Decimal      `json:"net_salary"`
	Penalties         decimal.Decimal      `json:"penalties"`
	PenaltyReason     string               `json:"penalty_reason,omitempty"`
	Refunds           decimal.Decimal      `json:"refunds"`
	Bonus             decimal.Decimal      `json:"bonus"`
	Benefit           decimal.Decimal      `json:"benefit"`
	NetPay            decimal.Decimal      `json:"net_pay"`
	BankStatus        string               `json:"bank_status"`
	Exceptions        string               `json:"exceptions"`
	Resolution        *ExceptionResolution `json:"resolution,omitempty"`
}

type PayslipResponse struct {
	ID              string          `json:"id"`
	PayrollRunID    string          `json:"payroll_run_id"`
	EmployeeID      string          `json:"employee_id"`
	EmployeeNumber  string          `json:"employee_number,omitempty"`
	EmployeeName    string          `json:"employee_name,omitempty"`
	Earnings        Earnings        `json:"earnings"`
	Deductions      Deductions      `json:"deductions"`
	TotalGross      decimal.Decimal `json:"total_gross"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetPay          decimal.Decimal `json:"net_pay"`
	PaymentStatus   string          `json:"payment_status"`
	PDFURL          *string         `json:"pdf_url,omitempty"`
	PDFGeneratedAt  *string         `json:"pdf_generated_at,omitempty"`
}
