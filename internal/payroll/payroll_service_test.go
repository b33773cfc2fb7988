package payroll_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-payroll/internal/attendance"
	"go-payroll/internal/bootstrap"
	"go-payroll/internal/employee"
	"go-payroll/internal/events"
	"go-payroll/internal/leave"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/payroll"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/payrollconfig"
	payrollconfigerrors "go-payroll/internal/payrollconfig/errors"
	"go-payroll/internal/refund"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/counter"
	countermock "go-payroll/internal/shared/counter/mock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type fakePayrollRepository struct {
	createRunFn             func(ctx context.Context, run *payroll.PayrollRun) error
	updateRunFn             func(ctx context.Context, run *payroll.PayrollRun) error
	findRunsFn              func(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, error)
	findRunByIDFn           func(ctx context.Context, companyID, id string) (*payroll.PayrollRun, error)
	lockRunByIDFn           func(ctx context.Context, companyID, id string) (*payroll.PayrollRun, error)
	existsForPeriodFn       func(ctx context.Context, companyID string, period time.Time, entity string) (bool, error)
	createDetailFn          func(ctx context.Context, detail *payroll.EmployeePayrollDetail) error
	updateDetailFn          func(ctx context.Context, detail *payroll.EmployeePayrollDetail) error
	findDetailsFn           func(ctx context.Context, companyID, runID string, onlyExceptions bool) ([]payroll.EmployeePayrollDetail, error)
	findDetailByIDFn        func(ctx context.Context, companyID, runID, detailID string) (*payroll.EmployeePayrollDetail, error)
	countExceptionsFn       func(ctx context.Context, companyID, runID string) (int64, error)
	aggregateFn             func(ctx context.Context, companyID, runID string) (payroll.RunAggregates, error)
	listEmployeeIDsFn       func(ctx context.Context, companyID, runID string) ([]string, error)
	createPayslipFn         func(ctx context.Context, payslip *payroll.Payslip) error
	findPayslipsFn          func(ctx context.Context, companyID, runID string) ([]payroll.Payslip, error)
	findPayslipByEmployeeFn func(ctx context.Context, companyID, runID, employeeID string) (*payroll.Payslip, error)
	markPayslipsPaidFn      func(ctx context.Context, companyID, runID string) (int64, error)
	updatePayslipPDFFn      func(ctx context.Context, companyID, payslipID, url string, generatedAt time.Time) error
}

func (f *fakePayrollRepository) WithTx(tx *sql.Tx) payroll.Repository {
	return f
}

func (f *fakePayrollRepository) CreateRun(ctx context.Context, run *payroll.PayrollRun) error {
	if f.createRunFn != nil {
		return f.createRunFn(ctx, run)
	}
	return nil
}

func (f *fakePayrollRepository) UpdateRun(ctx context.Context, run *payroll.PayrollRun) error {
	if f.updateRunFn != nil {
		return f.updateRunFn(ctx, run)
	}
	return nil
}

func (f *fakePayrollRepository) FindRuns(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, error) {
	if f.findRunsFn != nil {
		return f.findRunsFn(ctx, companyID, filter)
	}
	return nil, nil
}

func (f *fakePayrollRepository) FindRunByID(ctx context.Context, companyID, id string) (*payroll.PayrollRun, error) {
	if f.findRunByIDFn != nil {
		return f.findRunByIDFn(ctx, companyID, id)
	}
	return nil, payrollerrors.ErrPayrollRunNotFound
}

func (f *fakePayrollRepository) LockRunByID(ctx context.Context, companyID, id string) (*payroll.PayrollRun, error) {
	if f.lockRunByIDFn != nil {
		return f.lockRunByIDFn(ctx, companyID, id)
	}
	return nil, payrollerrors.ErrPayrollRunNotFound
}

func (f *fakePayrollRepository) ExistsForPeriod(ctx context.Context, companyID string, period time.Time, entity string) (bool, error) {
	if f.existsForPeriodFn != nil {
		return f.existsForPeriodFn(ctx, companyID, period, entity)
	}
	return false, nil
}

func (f *fakePayrollRepository) CreateDetail(ctx context.Context, detail *payroll.EmployeePayrollDetail) error {
	if f.createDetailFn != nil {
		return f.createDetailFn(ctx, detail)
	}
	return nil
}

func (f *fakePayrollRepository) UpdateDetail(ctx context.Context, detail *payroll.EmployeePayrollDetail) error {
	if f.updateDetailFn != nil {
		return f.updateDetailFn(ctx, detail)
	}
	return nil
}

func (f *fakePayrollRepository) FindDetails(ctx context.Context, companyID, runID string, onlyExceptions bool) ([]payroll.EmployeePayrollDetail, error) {
	if f.findDetailsFn != nil {
		return f.findDetailsFn(ctx, companyID, runID, onlyExceptions)
	}
	return nil, nil
}

func (f *fakePayrollRepository) FindDetailByID(ctx context.Context, companyID, runID, detailID string) (*payroll.EmployeePayrollDetail, error) {
	if f.findDetailByIDFn != nil {
		return f.findDetailByIDFn(ctx, companyID, runID, detailID)
	}
	return nil, payrollerrors.ErrPayrollDetailNotFound
}

func (f *fakePayrollRepository) CountExceptions(ctx context.Context, companyID, runID string) (int64, error) {
	if f.countExceptionsFn != nil {
		return f.countExceptionsFn(ctx, companyID, runID)
	}
	return 0, nil
}

func (f *fakePayrollRepository) Aggregate(ctx context.Context, companyID, runID string) (payroll.RunAggregates, error) {
	if f.aggregateFn != nil {
		return f.aggregateFn(ctx, companyID, runID)
	}
	return payroll.RunAggregates{}, nil
}

func (f *fakePayrollRepository) ListEmployeeIDs(ctx context.Context, companyID, runID string) ([]string, error) {
	if f.listEmployeeIDsFn != nil {
		return f.listEmployeeIDsFn(ctx, companyID, runID)
	}
	return nil, nil
}

func (f *fakePayrollRepository) CreatePayslip(ctx context.Context, payslip *payroll.Payslip) error {
	if f.createPayslipFn != nil {
		return f.createPayslipFn(ctx, payslip)
	}
	return nil
}

func (f *fakePayrollRepository) FindPayslips(ctx context.Context, companyID, runID string) ([]payroll.Payslip, error) {
	if f.findPayslipsFn != nil {
		return f.findPayslipsFn(ctx, companyID, runID)
	}
	return nil, nil
}

func (f *fakePayrollRepository) FindPayslipByEmployee(ctx context.Context, companyID, runID, employeeID string) (*payroll.Payslip, error) {
	if f.findPayslipByEmployeeFn != nil {
		return f.findPayslipByEmployeeFn(ctx, companyID, runID, employeeID)
	}
	return nil, payrollerrors.ErrPayslipNotFound
}

func (f *fakePayrollRepository) MarkPayslipsPaid(ctx context.Context, companyID, runID string) (int64, error) {
	if f.markPayslipsPaidFn != nil {
		return f.markPayslipsPaidFn(ctx, companyID, runID)
	}
	return 0, nil
}

func (f *fakePayrollRepository) UpdatePayslipPDF(ctx context.Context, companyID, payslipID, url string, generatedAt time.Time) error {
	if f.updatePayslipPDFFn != nil {
		return f.updatePayslipPDFFn(ctx, companyID, payslipID, url, generatedAt)
	}
	return nil
}

type fakeEmployeeRepository struct {
	findByIDAndCompanyFn   func(ctx context.Context, companyID, id string) (*employee.Employee, error)
	findByIDsFn            func(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error)
	findPayableEmployeesFn func(ctx context.Context, companyID string, departmentID *string, start, end time.Time) ([]employee.Employee, error)
}

func (f *fakeEmployeeRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*employee.Employee, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, errors.New("employee not found")
}

func (f *fakeEmployeeRepository) FindByIDs(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error) {
	if f.findByIDsFn != nil {
		return f.findByIDsFn(ctx, companyID, ids)
	}
	return nil, nil
}

func (f *fakeEmployeeRepository) FindPayableEmployees(ctx context.Context, companyID string, departmentID *string, start, end time.Time) ([]employee.Employee, error) {
	if f.findPayableEmployeesFn != nil {
		return f.findPayableEmployeesFn(ctx, companyID, departmentID, start, end)
	}
	return nil, nil
}

type fakeConfigRepository struct {
	findSigningBonusFn       func(ctx context.Context, companyID, employeeID string) (*payrollconfig.EmployeeSigningBonus, error)
	findTerminationBenefitFn func(ctx context.Context, companyID, employeeID string) (*payrollconfig.EmployeeTerminationBenefit, error)
	markSigningBonusPaidFn   func(ctx context.Context, id string, paidAt time.Time) error
	markBenefitPaidFn        func(ctx context.Context, id string, paidAt time.Time) error
}

func (f *fakeConfigRepository) WithTx(tx *sql.Tx) payrollconfig.Repository {
	return f
}

func (f *fakeConfigRepository) FindApprovedRuleSet(ctx context.Context, companyID string) (payrollconfig.RuleSet, error) {
	return payrollconfig.RuleSet{}, nil
}

func (f *fakeConfigRepository) FindApprovedSigningBonus(ctx context.Context, companyID, employeeID string) (*payrollconfig.EmployeeSigningBonus, error) {
	if f.findSigningBonusFn != nil {
		return f.findSigningBonusFn(ctx, companyID, employeeID)
	}
	return nil, nil
}

func (f *fakeConfigRepository) FindApprovedTerminationBenefit(ctx context.Context, companyID, employeeID string) (*payrollconfig.EmployeeTerminationBenefit, error) {
	if f.findTerminationBenefitFn != nil {
		return f.findTerminationBenefitFn(ctx, companyID, employeeID)
	}
	return nil, nil
}

func (f *fakeConfigRepository) MarkSigningBonusPaid(ctx context.Context, id string, paidAt time.Time) error {
	if f.markSigningBonusPaidFn != nil {
		return f.markSigningBonusPaidFn(ctx, id, paidAt)
	}
	return nil
}

func (f *fakeConfigRepository) MarkTerminationBenefitPaid(ctx context.Context, id string, paidAt time.Time) error {
	if f.markBenefitPaidFn != nil {
		return f.markBenefitPaidFn(ctx, id, paidAt)
	}
	return nil
}

type fakeRuleSetProvider struct {
	ruleSet payrollconfig.RuleSet
	err     error
}

func (f *fakeRuleSetProvider) ApprovedRuleSet(ctx context.Context, companyID string) (payrollconfig.RuleSet, error) {
	return f.ruleSet, f.err
}

func (f *fakeRuleSetProvider) Invalidate(ctx context.Context, companyID string) error {
	return nil
}

type fakeAttendanceRepository struct {
	findFn func(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]attendance.Attendance, error)
}

func (f *fakeAttendanceRepository) FindByEmployeeInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]attendance.Attendance, error) {
	if f.findFn != nil {
		return f.findFn(ctx, companyID, employeeID, start, end)
	}
	return nil, nil
}

type fakeLeaveRepository struct{}

func (f *fakeLeaveRepository) FindApprovedInRange(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]leave.Leave, error) {
	return nil, nil
}

type fakeRefundRepository struct {
	findPendingFn func(ctx context.Context, companyID, employeeID string) ([]refund.Refund, error)
	markPaidFn    func(ctx context.Context, companyID string, ids []string, runID string, paidAt time.Time) error
	settleFn      func(ctx context.Context, companyID string, employeeIDs []string, runID string, paidAt time.Time) (int64, error)
	revertByRunFn func(ctx context.Context, companyID, runID string) (int64, error)
}

func (f *fakeRefundRepository) WithTx(tx *sql.Tx) refund.Repository {
	return f
}

func (f *fakeRefundRepository) FindPendingByEmployee(ctx context.Context, companyID, employeeID string) ([]refund.Refund, error) {
	if f.findPendingFn != nil {
		return f.findPendingFn(ctx, companyID, employeeID)
	}
	return nil, nil
}

func (f *fakeRefundRepository) MarkPaid(ctx context.Context, companyID string, ids []string, runID string, paidAt time.Time) error {
	if f.markPaidFn != nil {
		return f.markPaidFn(ctx, companyID, ids, runID, paidAt)
	}
	return nil
}

func (f *fakeRefundRepository) SettlePendingForEmployees(ctx context.Context, companyID string, employeeIDs []string, runID string, paidAt time.Time) (int64, error) {
	if f.settleFn != nil {
		return f.settleFn(ctx, companyID, employeeIDs, runID, paidAt)
	}
	return 0, nil
}

func (f *fakeRefundRepository) RevertByRun(ctx context.Context, companyID, runID string) (int64, error) {
	if f.revertByRunFn != nil {
		return f.revertByRunFn(ctx, companyID, runID)
	}
	return 0, nil
}

type fakeOutboxRepository struct {
	createFn func(ctx context.Context, event kafka.OutboxEvent) error
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository {
	return f
}

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error {
	return nil
}

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type recordingAuditLogger struct {
	entries []bootstrap.AuditLog
}

func (r *recordingAuditLogger) Log(ctx context.Context, entry bootstrap.AuditLog) {
	r.entries = append(r.entries, entry)
}

type payrollServiceDeps struct {
	db         *sql.DB
	sqlMock    sqlmock.Sqlmock
	service    payroll.Service
	repo       *fakePayrollRepository
	employees  *fakeEmployeeRepository
	configs    *fakeConfigRepository
	rules      *fakeRuleSetProvider
	attendance *fakeAttendanceRepository
	refunds    *fakeRefundRepository
	counter    *countermock.MockRepository
	outbox     *fakeOutboxRepository
	audit      *recordingAuditLogger
	now        time.Time
}

func setupPayrollServiceTest(t *testing.T) *payrollServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	ctrl := gomock.NewController(t)
	counterRepo := countermock.NewMockRepository(ctrl)
	counterRepo.EXPECT().WithTx(gomock.Any()).Return(counterRepo).AnyTimes()

	deps := &payrollServiceDeps{
		db:         db,
		sqlMock:    sqlMock,
		repo:       &fakePayrollRepository{},
		employees:  &fakeEmployeeRepository{},
		configs:    &fakeConfigRepository{},
		rules:      &fakeRuleSetProvider{},
		attendance: &fakeAttendanceRepository{},
		refunds:    &fakeRefundRepository{},
		counter:    counterRepo,
		outbox:     &fakeOutboxRepository{},
		audit:      &recordingAuditLogger{},
		now:        time.Date(2025, time.October, 3, 10, 0, 0, 0, time.UTC),
	}

	deps.service = payroll.NewService(payroll.ServiceDeps{
		DB:         db,
		Repo:       deps.repo,
		Employees:  deps.employees,
		Configs:    deps.configs,
		RuleSets:   deps.rules,
		Attendance: deps.attendance,
		Leaves:     &fakeLeaveRepository{},
		Refunds:    deps.refunds,
		Counter:    counterRepo,
		Outbox:     deps.outbox,
		Audit:      deps.audit,
		Payslips:   payroll.PayslipStorage{Dir: t.TempDir(), PublicBaseURL: "http://files.local/payslips"},
		Now:        func() time.Time { return deps.now },
	})

	return deps
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

// stateStore keeps one run across LockRunByID and UpdateRun calls.
func stateStore(deps *payrollServiceDeps, run payroll.PayrollRun) *payroll.PayrollRun {
	stored := run
	deps.repo.lockRunByIDFn = func(ctx context.Context, companyID, id string) (*payroll.PayrollRun, error) {
		cp := stored
		return &cp, nil
	}
	deps.repo.updateRunFn = func(ctx context.Context, r *payroll.PayrollRun) error {
		stored = *r
		return nil
	}
	return &stored
}

func newRun(status string) payroll.PayrollRun {
	return payroll.PayrollRun{
		ID:                  uuid.New(),
		CompanyID:           uuid.New(),
		RunCode:             "PR-2025-09-0001",
		Period:              date(2025, time.September, 1),
		Entity:              "Acme Indonesia",
		Status:              status,
		PaymentStatus:       payroll.PaymentStatusPending,
		PayrollSpecialistID: uuid.New(),
	}
}

func TestPayrollService_Initiate(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	actorID := uuid.New().String()

	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	deps.rules.ruleSet = ruleSet("1000", "1000")

	payable := staff(date(2020, time.January, 1))
	account := "0011223344"
	payable.BankAccountNumber = &account
	noGrade := staff(date(2020, time.January, 1))
	noGrade.PayGradeID = nil
	unknown := uuid.New()
	unapproved := staff(date(2020, time.January, 1))
	unapproved.PayGradeID = &unknown

	deps.employees.findPayableEmployeesFn = func(ctx context.Context, cid string, departmentID *string, start, end time.Time) ([]employee.Employee, error) {
		assert.Equal(t, companyID, cid)
		assert.Nil(t, departmentID)
		assert.Equal(t, date(2025, time.September, 1), start)
		assert.Equal(t, date(2025, time.September, 30), end)
		return []employee.Employee{noGrade, payable, unapproved}, nil
	}
	deps.attendance.findFn = func(ctx context.Context, cid, employeeID string, start, end time.Time) ([]attendance.Attendance, error) {
		assert.Equal(t, payable.ID.String(), employeeID)
		return punches(2025, time.September, 8), nil
	}

	refundID := uuid.New()
	deps.refunds.findPendingFn = func(ctx context.Context, cid, employeeID string) ([]refund.Refund, error) {
		return []refund.Refund{{ID: refundID, Description: "Travel", Amount: dec("75"), Status: refund.StatusPending}}, nil
	}
	var paidRefunds []string
	deps.refunds.markPaidFn = func(ctx context.Context, cid string, ids []string, runID string, paidAt time.Time) error {
		paidRefunds = ids
		assert.Equal(t, deps.now, paidAt)
		return nil
	}

	deps.counter.EXPECT().GetNextValue(gomock.Any(), companyID, counter.TypePayrollRun).Return(int64(7), nil)

	var created payroll.PayrollRun
	deps.repo.createRunFn = func(ctx context.Context, run *payroll.PayrollRun) error {
		created = *run
		return nil
	}
	var details []payroll.EmployeePayrollDetail
	deps.repo.createDetailFn = func(ctx context.Context, d *payroll.EmployeePayrollDetail) error {
		details = append(details, *d)
		return nil
	}
	var payslips int
	deps.repo.createPayslipFn = func(ctx context.Context, p *payroll.Payslip) error {
		payslips++
		return nil
	}
	deps.repo.aggregateFn = func(ctx context.Context, cid, runID string) (payroll.RunAggregates, error) {
		return payroll.RunAggregates{Employees: 1, Exceptions: 0, TotalNetPay: dec("1075")}, nil
	}

	// One transaction for the run, one per employee with an approved pay grade.
	expectTx(t, deps.sqlMock, true)
	expectTx(t, deps.sqlMock, true)

	resp, err := deps.service.Initiate(ctx, companyID, actorID, payroll.InitiatePayrollRequest{
		Period: "2025-09",
		Entity: "Acme Indonesia",
	})

	assert.NoError(t, err)
	assert.Equal(t, "PR-2025-09-0007", created.RunCode)
	assert.Equal(t, payroll.StatusDraft, created.Status)
	assert.Equal(t, actorID, created.PayrollSpecialistID.String())

	assert.Equal(t, "PR-2025-09-0007", resp.RunCode)
	assert.Equal(t, payroll.StatusDraft, resp.Status)
	assert.Equal(t, 1, resp.Employees)
	assert.Equal(t, 2, resp.Exceptions)
	assert.Equal(t, "1075.00", resp.TotalNetPay.StringFixed(2))

	assert.Len(t, details, 1)
	assert.Equal(t, payable.ID, details[0].EmployeeID)
	assert.Equal(t, "1075.00", details[0].NetPay.StringFixed(2))
	assert.Empty(t, details[0].Exceptions)
	assert.Equal(t, 1, payslips)
	assert.Equal(t, []string{refundID.String()}, paidRefunds)

	assert.Len(t, deps.audit.entries, 1)
	assert.Equal(t, "PAYROLL_RUN_INITIATED", deps.audit.entries[0].Action)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_Initiate_AlreadyExists(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	deps.repo.existsForPeriodFn = func(ctx context.Context, companyID string, period time.Time, entity string) (bool, error) {
		assert.Equal(t, date(2025, time.September, 1), period)
		assert.Equal(t, "Acme Indonesia", entity)
		return true, nil
	}

	_, err := deps.service.Initiate(context.Background(), uuid.New().String(), uuid.New().String(), payroll.InitiatePayrollRequest{
		Period: "2025-09",
		Entity: "Acme Indonesia",
	})

	assert.ErrorIs(t, err, payrollerrors.ErrPayrollRunExists)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_Initiate_InvalidInput(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	_, err := deps.service.Initiate(context.Background(), uuid.New().String(), uuid.New().String(), payroll.InitiatePayrollRequest{
		Period: "09-2025",
		Entity: "Acme",
	})
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidPeriodFormat)

	_, err = deps.service.Initiate(context.Background(), "not-a-uuid", uuid.New().String(), payroll.InitiatePayrollRequest{
		Period: "2025-09",
		Entity: "Acme",
	})
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidCompanyID)
}

func TestPayrollService_Initiate_ConfigUnavailable(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	deps.rules.err = payrollconfigerrors.ErrConfigUnavailable

	_, err := deps.service.Initiate(context.Background(), uuid.New().String(), uuid.New().String(), payroll.InitiatePayrollRequest{
		Period: "2025-09",
		Entity: "Acme",
	})

	assert.ErrorIs(t, err, payrollconfigerrors.ErrConfigUnavailable)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_Initiate_CancelledKeepsAggregates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	deps.rules.ruleSet = ruleSet("1000", "1000")
	deps.employees.findPayableEmployeesFn = func(ctx context.Context, cid string, departmentID *string, start, end time.Time) ([]employee.Employee, error) {
		return []employee.Employee{staff(date(2020, time.January, 1)), staff(date(2020, time.January, 1))}, nil
	}
	attendanceCalls := 0
	deps.attendance.findFn = func(ctx context.Context, cid, employeeID string, start, end time.Time) ([]attendance.Attendance, error) {
		attendanceCalls++
		cancel()
		return nil, nil
	}
	deps.counter.EXPECT().GetNextValue(gomock.Any(), gomock.Any(), counter.TypePayrollRun).Return(int64(1), nil)

	var updated *payroll.PayrollRun
	deps.repo.updateRunFn = func(ctx context.Context, run *payroll.PayrollRun) error {
		assert.NoError(t, ctx.Err())
		updated = run
		return nil
	}

	expectTx(t, deps.sqlMock, true)

	_, err := deps.service.Initiate(ctx, uuid.New().String(), uuid.New().String(), payroll.InitiatePayrollRequest{
		Period: "2025-09",
		Entity: "Acme",
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attendanceCalls)
	if assert.NotNil(t, updated) {
		assert.Equal(t, 1, updated.Exceptions)
	}
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_ApproveManager_FromDraftFails(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusDraft)
	stored := stateStore(deps, run)

	expectTx(t, deps.sqlMock, false)

	_, err := deps.service.ApproveManager(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String())

	assert.ErrorIs(t, err, payrollerrors.ErrInvalidStatusTransition)
	assert.Equal(t, payroll.StatusDraft, stored.Status)
	assert.Empty(t, deps.audit.entries)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_ApproveManager(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusUnderReview)
	stored := stateStore(deps, run)
	managerID := uuid.New()

	expectTx(t, deps.sqlMock, true)

	ctx := contextutil.WithRequestID(context.Background(), "req-123")
	ctx = contextutil.WithUserID(ctx, managerID.String())

	resp, err := deps.service.ApproveManager(ctx, run.CompanyID.String(), managerID.String(), run.ID.String())

	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusPendingFinanceApproval, resp.Status)
	assert.Equal(t, managerID, *stored.PayrollManagerID)
	assert.Equal(t, deps.now, *stored.ManagerApprovedAt)
	assert.Equal(t, "PAYROLL_RUN_APPROVE_MANAGER", deps.audit.entries[0].Action)
	assert.Equal(t, "req-123", deps.audit.entries[0].Meta["request_id"])
	assert.Equal(t, managerID.String(), deps.audit.entries[0].Meta["user_id"])
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_RejectManager_RequiresReason(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusUnderReview)
	_, err := deps.service.RejectManager(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String(), payroll.ReasonRequest{Reason: "   "})

	assert.ErrorIs(t, err, payrollerrors.ErrReasonRequired)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_RejectManager_ThenRevert(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusUnderReview)
	stored := stateStore(deps, run)
	specialist := uuid.New()

	expectTx(t, deps.sqlMock, true)
	expectTx(t, deps.sqlMock, true)

	resp, err := deps.service.RejectManager(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String(), payroll.ReasonRequest{Reason: " wrong bank file "})
	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusRejected, resp.Status)
	assert.Equal(t, "wrong bank file", *stored.RejectionReason)

	resp, err = deps.service.RevertToUnderReview(context.Background(), run.CompanyID.String(), specialist.String(), run.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusUnderReview, resp.Status)
	assert.Nil(t, stored.RejectionReason)
	assert.Equal(t, specialist, stored.PayrollSpecialistID)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_RejectFinance_RevertsRefunds(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusPendingFinanceApproval)
	stored := stateStore(deps, run)

	reverted := false
	deps.refunds.revertByRunFn = func(ctx context.Context, companyID, runID string) (int64, error) {
		reverted = true
		assert.Equal(t, run.ID.String(), runID)
		return 2, nil
	}

	expectTx(t, deps.sqlMock, true)

	resp, err := deps.service.RejectFinance(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String(), payroll.ReasonRequest{Reason: "totals mismatch"})

	assert.NoError(t, err)
	assert.True(t, reverted)
	assert.Equal(t, payroll.StatusRejected, resp.Status)
	assert.Equal(t, "totals mismatch", *stored.RejectionReason)
	assert.Equal(t, payroll.PaymentStatusPending, stored.PaymentStatus)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_RejectFinance_RevertFailureRollsBack(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusPendingFinanceApproval)
	stored := stateStore(deps, run)
	deps.refunds.revertByRunFn = func(ctx context.Context, companyID, runID string) (int64, error) {
		return 0, errors.New("db down")
	}

	expectTx(t, deps.sqlMock, false)

	_, err := deps.service.RejectFinance(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String(), payroll.ReasonRequest{Reason: "totals mismatch"})

	assert.Error(t, err)
	assert.Equal(t, payroll.StatusPendingFinanceApproval, stored.Status)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_ApproveFinanceThenExecute_SettlesOnce(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusPendingFinanceApproval)
	stored := stateStore(deps, run)
	financeID := uuid.New()

	var queued []kafka.OutboxEvent
	deps.outbox.createFn = func(ctx context.Context, event kafka.OutboxEvent) error {
		queued = append(queued, event)
		return nil
	}
	payslipCalls := 0
	deps.repo.markPayslipsPaidFn = func(ctx context.Context, companyID, runID string) (int64, error) {
		payslipCalls++
		return 3, nil
	}
	employeeIDs := []string{uuid.NewString(), uuid.NewString()}
	deps.repo.listEmployeeIDsFn = func(ctx context.Context, companyID, runID string) ([]string, error) {
		return employeeIDs, nil
	}
	settleCalls := 0
	deps.refunds.settleFn = func(ctx context.Context, companyID string, ids []string, runID string, paidAt time.Time) (int64, error) {
		settleCalls++
		assert.Equal(t, employeeIDs, ids)
		return 1, nil
	}

	expectTx(t, deps.sqlMock, true)
	expectTx(t, deps.sqlMock, true)

	resp, err := deps.service.ApproveFinance(context.Background(), run.CompanyID.String(), financeID.String(), run.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusApproved, resp.Status)
	assert.Equal(t, payroll.PaymentStatusPaid, resp.PaymentStatus)
	assert.Equal(t, financeID, *stored.FinanceStaffID)
	assert.NotNil(t, stored.PaidAt)

	resp, err = deps.service.Execute(context.Background(), run.CompanyID.String(), financeID.String(), run.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusLocked, resp.Status)
	assert.NotNil(t, stored.LockedAt)

	assert.Equal(t, 2, payslipCalls)
	assert.Equal(t, 2, settleCalls)
	if assert.Len(t, queued, 1) {
		assert.Equal(t, events.PayrollRunSettledTopic, queued[0].Topic)
		assert.Equal(t, run.ID.String(), queued[0].AggregateID)

		var payload events.PayrollRunSettledEvent
		assert.NoError(t, json.Unmarshal(queued[0].Payload, &payload))
		assert.Equal(t, "finance_approval", payload.Trigger)
		assert.Equal(t, "2025-09", payload.Period)
		assert.Equal(t, financeID.String(), payload.SettledBy)
	}
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_LockAndUnlock(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusApproved)
	stored := stateStore(deps, run)

	expectTx(t, deps.sqlMock, true)
	expectTx(t, deps.sqlMock, true)
	expectTx(t, deps.sqlMock, false)

	resp, err := deps.service.Lock(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusLocked, resp.Status)

	resp, err = deps.service.Unlock(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String(), payroll.ReasonRequest{Reason: "late correction"})
	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusUnlocked, resp.Status)
	assert.Equal(t, "late correction", *stored.UnlockReason)
	assert.NotNil(t, stored.UnlockedAt)

	// UNLOCKED is terminal.
	_, err = deps.service.Review(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String())
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidStatusTransition)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_Review_RescansExceptions(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusDraft)
	run.Exceptions = 2
	stored := stateStore(deps, run)

	healed := payroll.EmployeePayrollDetail{
		ID: uuid.New(), EmployeeID: uuid.New(),
		BaseSalary: dec("1000"), NetPay: dec("900"),
		BankStatus: payroll.BankStatusMissing, Exceptions: payroll.ExceptionMissingBankDetails,
	}
	spiked := payroll.EmployeePayrollDetail{
		ID: uuid.New(), EmployeeID: uuid.New(),
		BaseSalary: dec("1000"), NetPay: dec("1500"),
		BankStatus: payroll.BankStatusValid,
	}
	unchanged := payroll.EmployeePayrollDetail{
		ID: uuid.New(), EmployeeID: uuid.New(),
		BaseSalary: dec("1000"), NetPay: dec("800"),
		BankStatus: payroll.BankStatusValid,
	}
	deps.repo.findDetailsFn = func(ctx context.Context, companyID, runID string, onlyExceptions bool) ([]payroll.EmployeePayrollDetail, error) {
		assert.False(t, onlyExceptions)
		return []payroll.EmployeePayrollDetail{healed, spiked, unchanged}, nil
	}

	account := "987654321"
	deps.employees.findByIDsFn = func(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error) {
		assert.Equal(t, []string{healed.EmployeeID.String()}, ids)
		return []employee.Employee{{ID: healed.EmployeeID, BankAccountNumber: &account}}, nil
	}

	updated := map[uuid.UUID]payroll.EmployeePayrollDetail{}
	deps.repo.updateDetailFn = func(ctx context.Context, d *payroll.EmployeePayrollDetail) error {
		updated[d.ID] = *d
		return nil
	}
	deps.repo.countExceptionsFn = func(ctx context.Context, companyID, runID string) (int64, error) {
		return 1, nil
	}

	expectTx(t, deps.sqlMock, true)

	resp, err := deps.service.Review(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String())

	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusUnderReview, resp.Status)
	assert.Equal(t, 1, stored.Exceptions)

	assert.Len(t, updated, 2)
	assert.Equal(t, payroll.BankStatusValid, updated[healed.ID].BankStatus)
	assert.Empty(t, updated[healed.ID].Exceptions)
	assert.Equal(t, payroll.ExceptionSalarySpike, updated[spiked.ID].Exceptions)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_ResolveException(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusUnderReview)
	stored := stateStore(deps, run)
	actorID := uuid.New().String()

	detail := payroll.EmployeePayrollDetail{
		ID:           uuid.New(),
		PayrollRunID: run.ID,
		EmployeeID:   uuid.New(),
		NetPay:       dec("1500"),
		BankStatus:   payroll.BankStatusValid,
		Exceptions:   payroll.ExceptionSalarySpike,
	}
	deps.repo.findDetailByIDFn = func(ctx context.Context, companyID, runID, detailID string) (*payroll.EmployeePayrollDetail, error) {
		cp := detail
		return &cp, nil
	}
	var saved payroll.EmployeePayrollDetail
	deps.repo.updateDetailFn = func(ctx context.Context, d *payroll.EmployeePayrollDetail) error {
		saved = *d
		return nil
	}
	deps.repo.countExceptionsFn = func(ctx context.Context, companyID, runID string) (int64, error) {
		return 4, nil
	}

	expectTx(t, deps.sqlMock, true)

	resp, err := deps.service.ResolveException(context.Background(), run.CompanyID.String(), actorID, run.ID.String(), detail.ID.String(), payroll.ResolveExceptionRequest{Resolution: "one-off retention bonus"})

	assert.NoError(t, err)
	assert.Empty(t, resp.Exceptions)
	assert.Empty(t, saved.Exceptions)
	if assert.NotNil(t, saved.Resolution) {
		assert.Equal(t, payroll.ExceptionSalarySpike, saved.Resolution.PreviousException)
		assert.Equal(t, "one-off retention bonus", saved.Resolution.Resolution)
		assert.Equal(t, actorID, saved.Resolution.ResolvedBy)
		assert.Equal(t, deps.now, saved.Resolution.ResolvedAt)
	}
	assert.Equal(t, 4, stored.Exceptions)
	assert.Equal(t, "PAYROLL_EXCEPTION_RESOLVED", deps.audit.entries[0].Action)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestPayrollService_ResolveException_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		exceptions string
		wantErr    error
	}{
		{name: "approved run", status: payroll.StatusApproved, exceptions: payroll.ExceptionSalarySpike, wantErr: payrollerrors.ErrInvalidStatusTransition},
		{name: "nothing to resolve", status: payroll.StatusDraft, exceptions: "", wantErr: payrollerrors.ErrNoExceptionToResolve},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := setupPayrollServiceTest(t)
			defer deps.db.Close()

			run := newRun(tt.status)
			stateStore(deps, run)
			deps.repo.findDetailByIDFn = func(ctx context.Context, companyID, runID, detailID string) (*payroll.EmployeePayrollDetail, error) {
				return &payroll.EmployeePayrollDetail{ID: uuid.New(), Exceptions: tt.exceptions, BankStatus: payroll.BankStatusValid}, nil
			}
			deps.repo.updateDetailFn = func(ctx context.Context, d *payroll.EmployeePayrollDetail) error {
				t.Fatal("detail must not be updated")
				return nil
			}

			expectTx(t, deps.sqlMock, false)

			_, err := deps.service.ResolveException(context.Background(), run.CompanyID.String(), uuid.New().String(), run.ID.String(), uuid.New().String(), payroll.ResolveExceptionRequest{Resolution: "ok"})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
		})
	}
}

func TestPayrollService_GetAll_InvalidStatus(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	_, err := deps.service.GetAll(context.Background(), uuid.New().String(), payroll.GetPayrollRunsFilterRequest{Status: "PAID"})
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidStatusFilter)
}

func TestPayrollService_GetAll_Filters(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	deps.repo.findRunsFn = func(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, error) {
		if assert.NotNil(t, filter.Period) {
			assert.Equal(t, date(2025, time.September, 1), *filter.Period)
		}
		assert.Equal(t, payroll.StatusLocked, filter.Status)
		return []payroll.PayrollRun{newRun(payroll.StatusLocked)}, nil
	}

	resp, err := deps.service.GetAll(context.Background(), uuid.New().String(), payroll.GetPayrollRunsFilterRequest{Period: "2025-09", Status: payroll.StatusLocked})

	assert.NoError(t, err)
	assert.Len(t, resp, 1)
	assert.Equal(t, "2025-09", resp[0].Period)
}

func TestPayrollService_GetExceptions_RunNotFound(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	_, err := deps.service.GetExceptions(context.Background(), uuid.New().String(), uuid.New().String())
	assert.ErrorIs(t, err, payrollerrors.ErrPayrollRunNotFound)
}

func TestPayrollService_GeneratePayslipPDFs(t *testing.T) {
	deps := setupPayrollServiceTest(t)
	defer deps.db.Close()

	run := newRun(payroll.StatusApproved)
	deps.repo.findRunByIDFn = func(ctx context.Context, companyID, id string) (*payroll.PayrollRun, error) {
		return &run, nil
	}
	existing := "http://files.local/payslips/old.pdf"
	pending := payroll.Payslip{
		ID:         uuid.New(),
		EmployeeID: uuid.New(),
		NetPay:     dec("850"),
		Employee:   &payroll.EmployeeRef{EmployeeNumber: "EMP-042", FullName: "Rina Hartono"},
	}
	deps.repo.findPayslipsFn = func(ctx context.Context, companyID, runID string) ([]payroll.Payslip, error) {
		return []payroll.Payslip{pending, {ID: uuid.New(), PDFURL: &existing}}, nil
	}

	var urls []string
	deps.repo.updatePayslipPDFFn = func(ctx context.Context, companyID, payslipID, url string, generatedAt time.Time) error {
		assert.Equal(t, pending.ID.String(), payslipID)
		urls = append(urls, url)
		return nil
	}

	count, err := deps.service.GeneratePayslipPDFs(context.Background(), run.CompanyID.String(), run.ID.String())

	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"http://files.local/payslips/PR-2025-09-0001-EMP-042.pdf"}, urls)
}

func TestPayslipStorage_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "payslips")
	storage := payroll.PayslipStorage{Dir: dir, PublicBaseURL: "https://cdn.example.com/slips/"}

	url, err := storage.Save("PR-2025-09-0001-EMP-001.pdf", []byte("%PDF-1.3"))

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/slips/PR-2025-09-0001-EMP-001.pdf", url)
	content, err := os.ReadFile(filepath.Join(dir, "PR-2025-09-0001-EMP-001.pdf"))
	assert.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(content))
}
