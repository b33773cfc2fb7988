package app

import (
	"database/sql"

	"go-payroll/internal/attendance"
	"go-payroll/internal/bootstrap"
	"go-payroll/internal/config"
	"go-payroll/internal/employee"
	"go-payroll/internal/leave"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/payroll"
	"go-payroll/internal/payrollconfig"
	"go-payroll/internal/rbac"
	"go-payroll/internal/rbac/infra"
	"go-payroll/internal/refund"
	"go-payroll/internal/shared/counter"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) error {
	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer(cfg.Auth.RBACModelPath)
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbac.NewRepository(gormDB), enforcer, logger)

	// --- Services ---
	payrollService := newPayrollService(cfg, db, gormDB, rdb, logger)

	// --- Handlers ---
	payrollHandler := payroll.NewHandlerWithRedis(payrollService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		payroll.RegisterRoutes(api, payrollHandler, rbacService, payroll.RouteConfig{
			JWTSecret: cfg.Auth.JWTSecret,
			Logger:    logger,
			Redis:     rdb,
		})
	}

	return nil
}

// newPayrollService wires the payroll service with its repositories. rdb may
// be nil, the approved configuration is then read from the database on every
// run.
func newPayrollService(
	cfg config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) payroll.Service {
	configRepo := payrollconfig.NewRepository(gormDB)

	return payroll.NewService(payroll.ServiceDeps{
		DB:         db,
		Repo:       payroll.NewRepository(gormDB),
		Employees:  employee.NewRepository(gormDB),
		Configs:    configRepo,
		RuleSets:   payrollconfig.NewCachedProvider(configRepo, rdb, cfg.Payroll.ConfigCacheTTL, logger),
		Attendance: attendance.NewRepository(gormDB),
		Leaves:     leave.NewRepository(gormDB),
		Refunds:    refund.NewRepository(gormDB),
		Counter:    counter.NewRepository(gormDB),
		Outbox:     kafka.NewOutboxRepository(db),
		Audit:      bootstrap.NewStdoutAuditLogger(logger),
		Payslips: payroll.PayslipStorage{
			Dir:           cfg.Payroll.PayslipStorageDir,
			PublicBaseURL: cfg.Payroll.PayslipPublicBaseURL,
		},
		ExpectedHoursPerDay: cfg.Payroll.ExpectedHoursPerDay,
	}, logger)
}
