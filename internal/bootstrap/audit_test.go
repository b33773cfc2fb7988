package bootstrap_test

import (
	"context"
	"testing"

	"go-payroll/internal/bootstrap"
	"go-payroll/internal/shared/contextutil"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStdoutAuditLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	audit := bootstrap.NewStdoutAuditLogger(zap.New(core))

	ctx := contextutil.WithRequestID(context.Background(), "rid-1")
	audit.Log(ctx, bootstrap.AuditLog{Action: "PAYROLL_RUN_UNLOCKED", Message: "run unlocked", Meta: map[string]any{"run_code": "PR-2026-02-0001"}})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "PAYROLL_RUN_UNLOCKED", fields["action"])
		assert.Equal(t, "rid-1", fields["request_id"])
	}
}
