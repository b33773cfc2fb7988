package consumer

import (
	"context"
	"encoding/json"

	"go-payroll/internal/events"
	"go-payroll/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// PayslipRenderer renders the PDF payslips of a settled run.
type PayslipRenderer interface {
	GeneratePayslipPDFs(ctx context.Context, companyID, runID string) (int, error)
}

// ConsumePayrollRunSettled renders payslip PDFs for every settled run.
// Messages that fail to render stay uncommitted. Undecodable messages are
// committed and dropped.
func ConsumePayrollRunSettled(
	ctx context.Context,
	reader MessageReader,
	renderer PayslipRenderer,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.payroll_run_settled")
	log.Info("payroll run settled consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("payroll run settled consumer stopped")
				return
			}
			log.Error("fetch payroll run settled message failed", zap.Error(err))
			continue
		}

		handleSettledMessage(ctx, reader, renderer, log, msg)
	}
}

func handleSettledMessage(
	ctx context.Context,
	reader MessageReader,
	renderer PayslipRenderer,
	log *zap.Logger,
	msg kafkago.Message,
) bool {
	var event events.PayrollRunSettledEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.PayrollRunID == "" {
		log.Error("decode payroll run settled event failed", zap.Error(err), zap.Int64("offset", msg.Offset))
		_ = reader.CommitMessages(ctx, msg)
		return false
	}

	ctx = contextutil.WithRequestID(ctx, event.RequestID)

	count, err := renderer.GeneratePayslipPDFs(ctx, event.CompanyID, event.PayrollRunID)
	if err != nil {
		log.Error("generate payslip pdfs failed",
			zap.String("request_id", event.RequestID),
			zap.String("payroll_run_id", event.PayrollRunID),
			zap.String("company_id", event.CompanyID),
			zap.Error(err),
		)
		return false
	}

	if err := reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit payroll run settled message failed", zap.Error(err))
		return false
	}

	log.Info("payslip pdfs generated",
		zap.String("request_id", event.RequestID),
		zap.String("payroll_run_id", event.PayrollRunID),
		zap.String("run_code", event.RunCode),
		zap.Int("payslips", count),
	)
	return true
}
