package payroll

import (
	"go-payroll/internal/middleware"
	"go-payroll/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouteConfig struct {
	JWTSecret string
	Logger    *zap.Logger
	Redis     *redis.Client
}

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	cfg RouteConfig,
) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	authorize := func(action string) gin.HandlerFunc {
		return middleware.RBACAuthorize(rbacService, rbac.ResourcePayrollRun, action)
	}
	// Mutations recalculate or settle whole runs, keep them slow.
	limit := middleware.RateLimitByUser(rate.Limit(2), 5)

	runs := r.Group("/payroll-runs")
	runs.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.ContextLogger(logger))
	{
		runs.GET("", authorize(rbac.ActionRead), handler.GetAll)
		runs.GET("/:id", authorize(rbac.ActionRead), handler.GetByID)
		runs.GET("/:id/details", authorize(rbac.ActionRead), handler.GetDetails)
		runs.GET("/:id/exceptions", authorize(rbac.ActionRead), handler.GetExceptions)
		runs.GET("/:id/payslips", authorize(rbac.ActionRead), handler.GetPayslips)
		runs.GET("/:id/payslips/:employeeId", authorize(rbac.ActionRead), handler.GetPayslip)
		runs.GET("/:id/payslips/:employeeId/download", authorize(rbac.ActionRead), handler.DownloadPayslip)

		if cfg.Redis != nil {
			runs.POST("", limit, authorize(rbac.ActionInitiate), middleware.Idempotency(cfg.Redis), handler.Initiate)
		} else {
			runs.POST("", limit, authorize(rbac.ActionInitiate), handler.Initiate)
		}

		runs.POST("/:id/review", limit, authorize(rbac.ActionReview), handler.Review)
		runs.POST("/:id/revert", limit, authorize(rbac.ActionReview), handler.Revert)
		runs.POST("/:id/manager-approve", limit, authorize(rbac.ActionManagerApprove), handler.ApproveManager)
		runs.POST("/:id/manager-reject", limit, authorize(rbac.ActionManagerApprove), handler.RejectManager)
		runs.POST("/:id/finance-approve", limit, authorize(rbac.ActionFinanceApprove), handler.ApproveFinance)
		runs.POST("/:id/finance-reject", limit, authorize(rbac.ActionFinanceApprove), handler.RejectFinance)
		runs.POST("/:id/lock", limit, authorize(rbac.ActionLock), handler.Lock)
		runs.POST("/:id/execute", limit, authorize(rbac.ActionExecute), handler.Execute)
		runs.POST("/:id/unlock", limit, authorize(rbac.ActionUnlock), handler.Unlock)
		runs.POST("/:id/details/:detailId/resolve", limit, authorize(rbac.ActionResolveException), handler.ResolveException)
	}
}
