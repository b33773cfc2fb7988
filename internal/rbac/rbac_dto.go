package rbac

type EnforceRequest struct {
	EmployeeID string `json:"employee_id"`
	CompanyID  string `json:"company_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
}

// Resource and actions guarded on payroll run endpoints.
const (
	ResourcePayrollRun = "payroll_run"

	ActionRead             = "read"
	ActionInitiate         = "initiate"
	ActionReview           = "review"
	ActionManagerApprove   = "manager_approve"
	ActionFinanceApprove   = "finance_approve"
	ActionLock             = "lock"
	ActionExecute          = "execute"
	ActionUnlock           = "unlock"
	ActionResolveException = "resolve_exception"
)
