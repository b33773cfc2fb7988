package payroll

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-payroll/internal/attendance"
	"go-payroll/internal/bootstrap"
	"go-payroll/internal/employee"
	"go-payroll/internal/leave"
	"go-payroll/internal/messaging/kafka"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/payrollconfig"
	"go-payroll/internal/refund"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/counter"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Initiate(ctx context.Context, companyID, actorID string, req InitiatePayrollRequest) (PayrollRunResponse, error)
	GetAll(ctx context.Context, companyID string, filter GetPayrollRunsFilterRequest) ([]PayrollRunResponse, error)
	GetByID(ctx context.Context, companyID, id string) (PayrollRunResponse, error)

	Review(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error)
	ApproveManager(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error)
	RejectManager(ctx context.Context, companyID, actorID, id string, req ReasonRequest) (PayrollRunResponse, error)
	RevertToUnderReview(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error)
	ApproveFinance(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error)
	RejectFinance(ctx context.Context, companyID, actorID, id string, req ReasonRequest) (PayrollRunResponse, error)
	Lock(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error)
	Execute(ctx context.Context, companyID, actorID, id string) (PayrollRunResponse, error)
	Unlock(ctx context.Context, companyID, actorID, id string, req ReasonRequest) (PayrollRunResponse, error)

	GetDetails(ctx context.Context, companyID, id string) ([]PayrollDetailResponse, error)
	GetExceptions(ctx context.Context, companyID, id string) ([]PayrollDetailResponse, error)
	ResolveException(ctx context.Context, companyID, actorID, runID, detailID string, req ResolveExceptionRequest) (PayrollDetailResponse, error)

	GetPayslips(ctx context.Context, companyID, runID string) ([]PayslipResponse, error)
	GetPayslip(ctx context.Context, companyID, runID, employeeID string) (PayslipResponse, error)
	GeneratePayslipPDFs(ctx context.Context, companyID, runID string) (int, error)
}

type ServiceDeps struct {
	DB         *sql.DB
	Repo       Repository
	Employees  employee.Repository
	Configs    payrollconfig.Repository
	RuleSets   payrollconfig.Provider
	Attendance attendance.Repository
	Leaves     leave.Repository
	Refunds    refund.Repository
	Counter    counter.Repository
	Outbox     kafka.OutboxRepository
	Audit      bootstrap.AuditLogger
	Payslips   PayslipStorage

	ExpectedHoursPerDay int
	Now                 func() time.Time
}

type service struct {
	db         *sql.DB
	repo       Repository
	employees  employee.Repository
	configs    payrollconfig.Repository
	ruleSets   payrollconfig.Provider
	attendance attendance.Repository
	leaves     leave.Repository
	refunds    refund.Repository
	counter    counter.Repository
	outbox     kafka.OutboxRepository
	audit      bootstrap.AuditLogger
	payslips   PayslipStorage

	hoursPerDay int
	now         func() time.Time
	logger      *zap.Logger
}

func NewService(deps ServiceDeps, logger ...*zap.Logger) Service {
	l := zap.L().Named("payroll.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("payroll.service")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	hoursPerDay := deps.ExpectedHoursPerDay
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultExpectedHoursPerDay
	}
	audit := deps.Audit
	if audit == nil {
		audit = bootstrap.NewStdoutAuditLogger(l)
	}

	return &service{
		db:          deps.DB,
		repo:        deps.Repo,
		employees:   deps.Employees,
		configs:     deps.Configs,
		ruleSets:    deps.RuleSets,
		attendance:  deps.Attendance,
		leaves:      deps.Leaves,
		refunds:     deps.Refunds,
		counter:     deps.Counter,
		outbox:      deps.Outbox,
		audit:       audit,
		payslips:    deps.Payslips,
		hoursPerDay: hoursPerDay,
		now:         now,
		logger:      l,
	}
}

// txRepos are the repositories bound to one transaction.
type txRepos struct {
	runs    Repository
	refunds refund.Repository
	configs payrollconfig.Repository
	counter counter.Repository
	outbox  kafka.OutboxRepository
}

func (s *service) bind(tx *sql.Tx) txRepos {
	return txRepos{
		runs:    s.repo.WithTx(tx),
		refunds: s.refunds.WithTx(tx),
		configs: s.configs.WithTx(tx),
		counter: s.counter.WithTx(tx),
		outbox:  s.outbox.WithTx(tx),
	}
}

// auditMeta adds the request id and caller of ctx to meta.
func auditMeta(ctx context.Context, meta map[string]any) map[string]any {
	md := contextutil.ExtractMetadata(ctx)
	if md.RequestID != "" {
		meta["request_id"] = md.RequestID
	}
	if md.UserID != "" {
		meta["user_id"] = md.UserID
	}
	return meta
}

func (s *service) log(ctx context.Context) *zap.Logger {
	return contextutil.GetLogger(ctx, s.logger)
}

func (s *service) Initiate(ctx context.Context, companyID, actorID string, req InitiatePayrollRequest) (PayrollRunResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return PayrollRunResponse{}, payrollerrors.ErrInvalidCompanyID
	}
	specialistID, err := uuid.Parse(actorID)
	if err != nil {
		return PayrollRunResponse{}, payrollerrors.ErrInvalidActorID
	}
	if req.PayrollSpecialistID != "" {
		if specialistID, err = uuid.Parse(req.PayrollSpecialistID); err != nil {
			return PayrollRunResponse{}, payrollerrors.ErrInvalidActorID
		}
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		return PayrollRunResponse{}, err
	}

	run := &PayrollRun{
		ID:                  uuid.New(),
		CompanyID:           companyUUID,
		Period:              period,
		Entity:              req.Entity,
		Status:              StatusDraft,
		PaymentStatus:       PaymentStatusPending,
		PayrollSpecialistID: specialistID,
	}

	var departmentID *string
	if req.PrimaryDepartmentID != "" {
		id, err := uuid.Parse(req.PrimaryDepartmentID)
		if err != nil {
			return PayrollRunResponse{}, payrollerrors.ErrInvalidDepartmentID
		}
		run.DepartmentID = &id
		departmentID = &req.PrimaryDepartmentID
	}
	if req.PayrollManagerID != "" {
		id, err := uuid.Parse(req.PayrollManagerID)
		if err != nil {
			return PayrollRunResponse{}, payrollerrors.ErrInvalidActorID
		}
		run.PayrollManagerID = &id
	}

	exists, err := s.repo.ExistsForPeriod(ctx, companyID, period, req.Entity)
	if err != nil {
		return PayrollRunResponse{}, err
	}
	if exists {
		return PayrollRunResponse{}, payrollerrors.ErrPayrollRunExists
	}

	rules, err := s.ruleSets.ApprovedRuleSet(ctx, companyID)
	if err != nil {
		return PayrollRunResponse{}, err
	}

	employees, err := s.employees.FindPayableEmployees(ctx, companyID, departmentID, period, run.PeriodEnd())
	if err != nil {
		return PayrollRunResponse{}, err
	}

	if err := s.createRun(ctx, run); err != nil {
		return PayrollRunResponse{}, err
	}

	logger := s.log(ctx).With(zap.String("run_id", run.ID.String()), zap.String("run_code", run.RunCode))
	logger.Info("payroll run initiated", zap.Int("candidates", len(employees)))

	var (
		failed  int
		loopErr error
	)
	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}
		if err := s.processEmployee(ctx, run, emp, rules); err != nil {
			failed++
			if errors.Is(err, payrollerrors.ErrNoApprovedPayGrade) {
				logger.Warn("skip employee without approved pay grade", zap.String("employee_id", emp.ID.String()))
				continue
			}
			logger.Error("calculate employee payroll failed", zap.String("employee_id", emp.ID.String()), zap.Error(err))
		}
	}

	// Aggregates are stored even when the loop was cancelled.
	if err := s.refreshAggregates(context.WithoutCancel(ctx), run, failed); err != nil {
		return PayrollRunResponse{}, err
	}
	if loopErr != nil {
		return PayrollRunResponse{}, loopErr
	}

	logger.Info("payroll run calculated",
		zap.Int("employees", run.Employees),
		zap.Int("exceptions", run.Exceptions),
		zap.String("total_net_pay", run.TotalNetPay.StringFixed(2)),
	)
	s.audit.Log(ctx, bootstrap.AuditLog{
		Action:  "PAYROLL_RUN_INITIATED",
		Message: fmt.Sprintf("payroll run %s initiated", run.RunCode),
		Meta: auditMeta(ctx, map[string]any{
			"run_id":     run.ID.String(),
			"company_id": companyID,
			"actor_id":   actorID,
			"employees":  run.Employees,
			"exceptions": run.Exceptions,
		}),
	})

	return mapRunToResponse(*run), nil
}

func (s *service) createRun(ctx context.Context, run *PayrollRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repos := s.bind(tx)
	companyID := run.CompanyID.String()

	seq, err := repos.counter.GetNextValue(ctx, companyID, counter.TypePayrollRun)
	if err != nil {
		return err
	}
	run.RunCode = fmt.Sprintf("PR-%s-%04d", run.Period.Format("2006-01"), seq)

	if err := repos.runs.CreateRun(ctx, run); err != nil {
		return err
	}

	return tx.Commit()
}

// processEmployee persists the detail, payslip and settled refund, bonus and
// benefit of one employee in its own transaction.
func (s *service) processEmployee(ctx context.Context, run *PayrollRun, emp employee.Employee, rules payrollconfig.RuleSet) error {
	if emp.PayGradeID == nil {
		return payrollerrors.ErrNoApprovedPayGrade
	}
	if _, ok := rules.PayGrade(emp.PayGradeID.String()); !ok {
		return payrollerrors.ErrNoApprovedPayGrade
	}

	companyID := run.CompanyID.String()
	employeeID := emp.ID.String()
	start, end := run.Period, run.PeriodEnd()

	punches, err := s.attendance.FindByEmployeeInRange(ctx, companyID, employeeID, start, end)
	if err != nil {
		return fmt.Errorf("load attendance: %w", err)
	}
	leaves, err := s.leaves.FindApprovedInRange(ctx, companyID, employeeID, start, end)
	if err != nil {
		return fmt.Errorf("load leaves: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	repos := s.bind(tx)

	refunds, err := repos.refunds.FindPendingByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return fmt.Errorf("load refunds: %w", err)
	}
	bonus, err := repos.configs.FindApprovedSigningBonus(ctx, companyID, employeeID)
	if err != nil {
		return fmt.Errorf("load signing bonus: %w", err)
	}
	benefit, err := repos.configs.FindApprovedTerminationBenefit(ctx, companyID, employeeID)
	if err != nil {
		return fmt.Errorf("load termination benefit: %w", err)
	}

	result, err := Calculate(CalculationInput{
		Employee:            emp,
		PeriodStart:         start,
		PeriodEnd:           end,
		Rules:               rules,
		Attendance:          punches,
		Leaves:              leaves,
		Refunds:             refunds,
		SigningBonus:        bonus,
		TerminationBenefit:  benefit,
		ExpectedHoursPerDay: s.hoursPerDay,
	})
	if err != nil {
		return err
	}

	detail := result.Detail(*run, emp.ID)
	if err := repos.runs.CreateDetail(ctx, &detail); err != nil {
		return fmt.Errorf("create detail: %w", err)
	}
	payslip := result.Payslip(detail)
	if err := repos.runs.CreatePayslip(ctx, &payslip); err != nil {
		return fmt.Errorf("create payslip: %w", err)
	}

	now := s.now()
	if err := repos.refunds.MarkPaid(ctx, companyID, result.RefundIDs, run.ID.String(), now); err != nil {
		return fmt.Errorf("settle refunds: %w", err)
	}
	if result.SigningBonusID != nil {
		if err := repos.configs.MarkSigningBonusPaid(ctx, *result.SigningBonusID, now); err != nil {
			return fmt.Errorf("settle signing bonus: %w", err)
		}
	}
	if result.TerminationBenefitID != nil {
		if err := repos.configs.MarkTerminationBenefitPaid(ctx, *result.TerminationBenefitID, now); err != nil {
			return fmt.Errorf("settle termination benefit: %w", err)
		}
	}

	return tx.Commit()
}

func (s *service) refreshAggregates(ctx context.Context, run *PayrollRun, failed int) error {
	agg, err := s.repo.Aggregate(ctx, run.CompanyID.String(), run.ID.String())
	if err != nil {
		return err
	}
	run.Employees = int(agg.Employees)
	run.Exceptions = failed + int(agg.Exceptions)
	run.TotalNetPay = agg.TotalNetPay
	return s.repo.UpdateRun(ctx, run)
}

func (s *service) GetAll(ctx context.Context, companyID string, filterReq GetPayrollRunsFilterRequest) ([]PayrollRunResponse, error) {
	var filter RunFilter
	if filterReq.Period != "" {
		period, err := parsePeriod(filterReq.Period)
		if err != nil {
			return nil, err
		}
		filter.Period = &period
	}
	if filterReq.Status != "" {
		if !IsValidStatus(filterReq.Status) {
			return nil, payrollerrors.ErrInvalidStatusFilter
		}
		filter.Status = filterReq.Status
	}

	runs, err := s.repo.FindRuns(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	return mapRunsToResponse(runs), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (PayrollRunResponse, error) {
	run, err := s.repo.FindRunByID(ctx, companyID, id)
	if err != nil {
		return PayrollRunResponse{}, err
	}
	return mapRunToResponse(*run), nil
}

func (s *service) GetDetails(ctx context.Context, companyID, id string) ([]PayrollDetailResponse, error) {
	if _, err := s.repo.FindRunByID(ctx, companyID, id); err != nil {
		return nil, err
	}
	details, err := s.repo.FindDetails(ctx, companyID, id, false)
	if err != nil {
		return nil, err
	}
	return mapDetailsToResponse(details), nil
}

func (s *service) GetExceptions(ctx context.Context, companyID, id string) ([]PayrollDetailResponse, error) {
	if _, err := s.repo.FindRunByID(ctx, companyID, id); err != nil {
		return nil, err
	}
	details, err := s.repo.FindDetails(ctx, companyID, id, true)
	if err != nil {
		return nil, err
	}
	return mapDetailsToResponse(details), nil
}

func (s *service) GetPayslips(ctx context.Context, companyID, runID string) ([]PayslipResponse, error) {
	if _, err := s.repo.FindRunByID(ctx, companyID, runID); err != nil {
		return nil, err
	}
	payslips, err := s.repo.FindPayslips(ctx, companyID, runID)
	if err != nil {
		return nil, err
	}
	return mapPayslipsToResponse(payslips), nil
}

func (s *service) GetPayslip(ctx context.Context, companyID, runID, employeeID string) (PayslipResponse, error) {
	payslip, err := s.repo.FindPayslipByEmployee(ctx, companyID, runID, employeeID)
	if err != nil {
		return PayslipResponse{}, err
	}
	return mapPayslipToResponse(*payslip), nil
}

func parsePeriod(v string) (time.Time, error) {
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return time.Time{}, payrollerrors.ErrInvalidPeriodFormat
	}
	return t, nil
}
