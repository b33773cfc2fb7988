package app

import (
	"strings"

	"go-payroll/internal/config"
	"go-payroll/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BuildApp connects the infrastructure and registers every module on router.
func BuildApp(router *gin.Engine, cfg config.Config, logger *zap.Logger) error {
	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database, cfg.ConnectRetries)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	logger.Info("database connection established")

	redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.ConnectRetries)
	if err != nil {
		return err
	}
	logger.Info("redis connection established")

	// Rendered payslips are served from local storage unless an external
	// base URL is configured.
	if base := cfg.Payroll.PayslipPublicBaseURL; strings.HasPrefix(base, "/") {
		router.Static(base, cfg.Payroll.PayslipStorageDir)
	}

	return registerModules(router, cfg, sqlDB, gormDB, redisClient, logger)
}
