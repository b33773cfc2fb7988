package payroll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-payroll/internal/bootstrap"
	payrollerrors "go-payroll/internal/payroll/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// applyFunc runs inside the transition transaction before the new status is
// stored.
type applyFunc func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error

// transition moves a run through the state machine in one transaction. The
// run row is locked for the duration.
func (s *service) transition(ctx context.Context, companyID, actorID, id string, action Action, apply applyFunc) (PayrollRunResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return PayrollRunResponse{}, payrollerrors.ErrInvalidCompanyID
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return PayrollRunResponse{}, payrollerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return PayrollRunResponse{}, payrollerrors.ErrInvalidRunID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PayrollRunResponse{}, err
	}
	defer tx.Rollback()

	repos := s.bind(tx)

	run, err := repos.runs.LockRunByID(ctx, companyID, id)
	if err != nil {
		return PayrollRunResponse{}, err
	}

	from := run.Status
	next, err := NextStatus(action, from)
	if err != nil {
		return PayrollRunResponse{}, err
	}

	now := s.now()
	if apply != nil {
		if err := apply(ctx, repos, run, actor, now); err != nil {
			return PayrollRunResponse{}, err
		}
	}

	run.Status = next
	if err := repos.runs.UpdateRun(ctx, run); err != nil {
		return PayrollRunResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return PayrollRunResponse{}, err
	}

	s.log(ctx).Info("payroll run transitioned",
		zap.String("run_id", id),
		zap.String("action", string(action)),
		zap.String("from", from),
		zap.String("to", next),
	)
	s.audit.Log(ctx, bootstrap.AuditLog{
		Action:  "PAYROLL_RUN_" + strings.ToUpper(string(action)),
		Message: fmt.Sprintf("payroll run %s moved from %s to %s", run.RunCode, from, next),
		Meta: auditMeta(ctx, map[string]any{
			"run_id":     id,
			"company_id": companyID,
			"actor_id":   actorID,
		}),
	})

	return mapRunToResponse(*run), nil
}

func (s *service) Review(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error) {
	return s.transition(ctx, companyID, actorID, id, ActionReview, s.rescanExceptions)
}

// rescanExceptions re-checks bank details against the current employee
// records and rewrites every detail's exceptions.
func (s *service) rescanExceptions(ctx context.Context, repos txRepos, run *PayrollRun, _ uuid.UUID, _ time.Time) error {
	companyID := run.CompanyID.String()
	details, err := repos.runs.FindDetails(ctx, companyID, run.ID.String(), false)
	if err != nil {
		return err
	}

	var missing []string
	for _, d := range details {
		if d.BankStatus == BankStatusMissing {
			missing = append(missing, d.EmployeeID.String())
		}
	}

	bankValid := make(map[uuid.UUID]bool, len(missing))
	if len(missing) > 0 {
		employees, err := s.employees.FindByIDs(ctx, companyID, missing)
		if err != nil {
			return err
		}
		for _, emp := range employees {
			bankValid[emp.ID] = emp.HasBankAccount()
		}
	}

	for i := range details {
		d := &details[i]
		prevStatus, prevExceptions := d.BankStatus, d.Exceptions

		d.Exceptions = DetectExceptions(d, bankValid[d.EmployeeID])
		if d.BankStatus == prevStatus && d.Exceptions == prevExceptions {
			continue
		}
		if err := repos.runs.UpdateDetail(ctx, d); err != nil {
			return err
		}
	}

	count, err := repos.runs.CountExceptions(ctx, companyID, run.ID.String())
	if err != nil {
		return err
	}
	run.Exceptions = int(count)
	return nil
}

func (s *service) ApproveManager(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error) {
	return s.transition(ctx, companyID, actorID, id, ActionApproveManager,
		func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error {
			run.PayrollManagerID = &actor
			run.ManagerApprovedAt = &now
			return nil
		})
}

func (s *service) RejectManager(ctx context.Context, companyID, actorID, id string, req ReasonRequest) (PayrollRunResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return PayrollRunResponse{}, payrollerrors.ErrReasonRequired
	}
	return s.transition(ctx, companyID, actorID, id, ActionRejectManager,
		func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error {
			run.RejectionReason = &reason
			return nil
		})
}

func (s *service) RevertToUnderReview(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error) {
	return s.transition(ctx, companyID, actorID, id, ActionRevert,
		func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error {
			run.RejectionReason = nil
			run.PayrollSpecialistID = actor
			return nil
		})
}

func (s *service) ApproveFinance(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error) {
	return s.transition(ctx, companyID, actorID, id, ActionApproveFinance,
		func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error {
			run.FinanceStaffID = &actor
			run.FinanceApprovedAt = &now
			return s.settleRun(ctx, repos, run, actor, "finance_approval", now)
		})
}

// RejectFinance reverts the refunds paid through the run back to PENDING.
func (s *service) RejectFinance(ctx context.Context, companyID, actorID, id string, req ReasonRequest) (PayrollRunResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return PayrollRunResponse{}, payrollerrors.ErrReasonRequired
	}
	return s.transition(ctx, companyID, actorID, id, ActionRejectFinance,
		func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error {
			run.FinanceStaffID = &actor
			run.RejectionReason = &reason

			reverted, err := repos.refunds.RevertByRun(ctx, run.CompanyID.String(), run.ID.String())
			if err != nil {
				return err
			}
			s.log(ctx).Info("refunds reverted", zap.String("run_id", run.ID.String()), zap.Int64("count", reverted))
			return nil
		})
}

func (s *service) Lock(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error) {
	return s.transition(ctx, companyID, actorID, id, ActionLock,
		func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error {
			run.LockedAt = &now
			return nil
		})
}

func (s *service) Execute(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error) {
	return s.transition(ctx, companyID, actorID, id, ActionExecute,
		func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error {
			run.LockedAt = &now
			return s.settleRun(ctx, repos, run, actor, "execute", now)
		})
}

func (s *service) Unlock(ctx context.Context, companyID, actorID, id string, req ReasonRequest) (PayrollRunResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return PayrollRunResponse{}, payrollerrors.ErrReasonRequired
	}
	return s.transition(ctx, companyID, actorID, id, ActionUnlock,
		func(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, now time.Time) error {
			run.UnlockReason = &reason
			run.UnlockedAt = &now
			return nil
		})
}

func (s *service) ResolveException(
	ctx context.Context,
	companyID, actorID, runID, detailID string,
	req ResolveExceptionRequest,
) (PayrollDetailResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return PayrollDetailResponse{}, payrollerrors.ErrInvalidActorID
	}
	resolution := strings.TrimSpace(req.Resolution)
	if resolution == "" {
		return PayrollDetailResponse{}, payrollerrors.ErrReasonRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PayrollDetailResponse{}, err
	}
	defer tx.Rollback()

	repos := s.bind(tx)

	run, err := repos.runs.LockRunByID(ctx, companyID, runID)
	if err != nil {
		return PayrollDetailResponse{}, err
	}
	if err := CanResolveExceptions(run.Status); err != nil {
		return PayrollDetailResponse{}, err
	}

	detail, err := repos.runs.FindDetailByID(ctx, companyID, runID, detailID)
	if err != nil {
		return PayrollDetailResponse{}, err
	}
	if detail.Exceptions == "" {
		return PayrollDetailResponse{}, payrollerrors.ErrNoExceptionToResolve
	}

	if detail.BankStatus == BankStatusMissing {
		emp, err := s.employees.FindByIDAndCompany(ctx, companyID, detail.EmployeeID.String())
		switch {
		case err != nil:
			s.log(ctx).Warn("bank revalidation skipped", zap.String("employee_id", detail.EmployeeID.String()), zap.Error(err))
		case emp.HasBankAccount():
			detail.BankStatus = BankStatusValid
		}
	}

	detail.Resolution = &ExceptionResolution{
		PreviousException: detail.Exceptions,
		Resolution:        resolution,
		ResolvedBy:        actorID,
		ResolvedAt:        s.now(),
	}
	detail.Exceptions = ""
	if err := repos.runs.UpdateDetail(ctx, detail); err != nil {
		return PayrollDetailResponse{}, err
	}

	count, err := repos.runs.CountExceptions(ctx, companyID, runID)
	if err != nil {
		return PayrollDetailResponse{}, err
	}
	run.Exceptions = int(count)
	if err := repos.runs.UpdateRun(ctx, run); err != nil {
		return PayrollDetailResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return PayrollDetailResponse{}, err
	}

	s.audit.Log(ctx, bootstrap.AuditLog{
		Action:  "PAYROLL_EXCEPTION_RESOLVED",
		Message: fmt.Sprintf("exception of payroll detail %s resolved", detailID),
		Meta: auditMeta(ctx, map[string]any{
			"run_id":             runID,
			"detail_id":          detailID,
			"actor_id":           actorID,
			"previous_exception": detail.Resolution.PreviousException,
		}),
	})

	return mapDetailToResponse(*detail), nil
}
