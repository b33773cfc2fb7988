package payrollconfigerrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

var (
	ErrConfigUnavailable = apperror.New(
		apperror.CodeServiceUnavailable,
		"payroll configuration is unavailable",
		http.StatusServiceUnavailable,
	)
)
