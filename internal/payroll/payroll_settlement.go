package payroll

import (
	"context"
	"time"

	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const aggregateTypePayrollRun = "payroll_run"

// settleRun marks the run, its payslips and the pending refunds of its
// employees as paid. It is safe to call more than once; the settled event is
// queued only the first time the run becomes PAID.
func (s *service) settleRun(ctx context.Context, repos txRepos, run *PayrollRun, actor uuid.UUID, trigger string, now time.Time) error {
	companyID := run.CompanyID.String()
	runID := run.ID.String()
	firstSettlement := run.PaymentStatus != PaymentStatusPaid

	run.PaymentStatus = PaymentStatusPaid
	if run.PaidAt == nil {
		run.PaidAt = &now
	}

	payslips, err := repos.runs.MarkPayslipsPaid(ctx, companyID, runID)
	if err != nil {
		return err
	}

	employeeIDs, err := repos.runs.ListEmployeeIDs(ctx, companyID, runID)
	if err != nil {
		return err
	}
	refunds, err := repos.refunds.SettlePendingForEmployees(ctx, companyID, employeeIDs, runID, now)
	if err != nil {
		return err
	}

	s.log(ctx).Info("payroll run settled",
		zap.String("run_id", runID),
		zap.String("trigger", trigger),
		zap.Int64("payslips", payslips),
		zap.Int64("refunds", refunds),
	)

	if !firstSettlement {
		return nil
	}

	requestID := contextutil.GetRequestID(ctx)
	event, err := kafka.NewOutboxEvent(
		aggregateTypePayrollRun,
		runID,
		events.PayrollRunSettledEventType,
		events.PayrollRunSettledTopic,
		requestID,
		events.PayrollRunSettledEvent{
			EventType:    events.PayrollRunSettledEventType,
			RequestID:    requestID,
			PayrollRunID: runID,
			RunCode:      run.RunCode,
			CompanyID:    companyID,
			Period:       run.PeriodLabel(),
			SettledBy:    actor.String(),
			Trigger:      trigger,
			OccurredAt:   now.UTC(),
		},
	)
	if err != nil {
		return err
	}

	return repos.outbox.Create(ctx, event)
}
