package payroll

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/apperror"
)

type Action string

const (
	ActionReview         Action = "review"
	ActionApproveManager Action = "approve_manager"
	ActionRejectManager  Action = "reject_manager"
	ActionRevert         Action = "revert_to_under_review"
	ActionApproveFinance Action = "approve_finance"
	ActionRejectFinance  Action = "reject_finance"
	ActionLock           Action = "lock"
	ActionExecute        Action = "execute"
	ActionUnlock         Action = "unlock"
)

type transition struct {
	from []string
	to   string
}

// UNLOCKED has no outgoing transition.
var transitions = map[Action]transition{
	ActionReview:         {from: []string{StatusDraft, StatusUnderReview}, to: StatusUnderReview},
	ActionApproveManager: {from: []string{StatusUnderReview}, to: StatusPendingFinanceApproval},
	ActionRejectManager:  {from: []string{StatusUnderReview}, to: StatusRejected},
	ActionRevert:         {from: []string{StatusRejected}, to: StatusUnderReview},
	ActionApproveFinance: {from: []string{StatusPendingFinanceApproval}, to: StatusApproved},
	ActionRejectFinance:  {from: []string{StatusPendingFinanceApproval}, to: StatusRejected},
	ActionLock:           {from: []string{StatusApproved}, to: StatusLocked},
	ActionExecute:        {from: []string{StatusApproved}, to: StatusLocked},
	ActionUnlock:         {from: []string{StatusLocked}, to: StatusUnlocked},
}

var resolvableStatuses = []string{StatusDraft, StatusUnderReview, StatusRejected}

var allStatuses = []string{
	StatusDraft,
	StatusUnderReview,
	StatusPendingFinanceApproval,
	StatusApproved,
	StatusRejected,
	StatusLocked,
	StatusUnlocked,
}

func IsValidStatus(status string) bool {
	return slices.Contains(allStatuses, status)
}

// NextStatus returns the status a run in current moves to on action.
func NextStatus(action Action, current string) (string, error) {
	t, ok := transitions[action]
	if !ok {
		return "", payrollerrors.ErrInvalidStatusTransition
	}
	if !slices.Contains(t.from, current) {
		return "", invalidTransition(string(action), current, t.from)
	}
	return t.to, nil
}

// CanResolveExceptions reports whether details of a run in status may still
// be overridden.
func CanResolveExceptions(status string) error {
	if slices.Contains(resolvableStatuses, status) {
		return nil
	}
	return invalidTransition("resolve exceptions of", status, resolvableStatuses)
}

func invalidTransition(action, current string, required []string) error {
	return apperror.Wrap(
		payrollerrors.ErrInvalidStatusTransition,
		apperror.CodeInvalidState,
		fmt.Sprintf(
			"cannot %s payroll run in status %s, requires %s",
			strings.ReplaceAll(action, "_", " "),
			current,
			strings.Join(required, " or "),
		),
		http.StatusConflict,
	)
}
