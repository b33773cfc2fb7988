package payroll

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go-payroll/internal/middleware"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	service Service
	rdb     *redis.Client
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func NewHandlerWithRedis(service Service, rdb *redis.Client) *Handler {
	return &Handler{service: service, rdb: rdb}
}

func getActorID(c *gin.Context) string {
	actorID := c.GetString(middleware.ContextEmployeeID)
	if actorID == "" {
		actorID = c.GetString(middleware.ContextUserID)
	}
	return actorID
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Initiate(c *gin.Context) {
	lockKey := c.GetString(middleware.ContextIdempotencyLockKey)
	cacheKey := c.GetString(middleware.ContextIdempotencyCacheKey)

	if h.rdb != nil && lockKey != "" {
		defer h.rdb.Del(c.Request.Context(), lockKey)
	}

	companyID := c.GetString(middleware.ContextCompanyID)
	actorID := getActorID(c)

	var req InitiatePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Initiate(c.Request.Context(), companyID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if h.rdb != nil && cacheKey != "" {
		if payload, marshalErr := json.Marshal(resp); marshalErr == nil {
			_ = h.rdb.Set(c.Request.Context(), cacheKey, payload, middleware.IdempotencyResultTTL).Err()
		}
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetAll(c *gin.Context) {
	companyID := c.GetString(middleware.ContextCompanyID)

	var filterReq GetPayrollRunsFilterRequest
	if err := c.ShouldBindQuery(&filterReq); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.GetAll(c.Request.Context(), companyID, filterReq)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	items, meta := response.Paginate(resp, page, pageSize)
	response.Success(c, http.StatusOK, items, &meta)
}

func (h *Handler) GetByID(c *gin.Context) {
	resp, err := h.service.GetByID(c.Request.Context(), c.GetString(middleware.ContextCompanyID), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Review(c *gin.Context) {
	resp, err := h.service.Review(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"))
	h.writeRun(c, resp, err)
}

func (h *Handler) ApproveManager(c *gin.Context) {
	resp, err := h.service.ApproveManager(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"))
	h.writeRun(c, resp, err)
}

func (h *Handler) RejectManager(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.RejectManager(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"), req)
	h.writeRun(c, resp, err)
}

func (h *Handler) Revert(c *gin.Context) {
	resp, err := h.service.RevertToUnderReview(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"))
	h.writeRun(c, resp, err)
}

func (h *Handler) ApproveFinance(c *gin.Context) {
	resp, err := h.service.ApproveFinance(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"))
	h.writeRun(c, resp, err)
}

func (h *Handler) RejectFinance(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.RejectFinance(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"), req)
	h.writeRun(c, resp, err)
}

func (h *Handler) Lock(c *gin.Context) {
	resp, err := h.service.Lock(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"))
	h.writeRun(c, resp, err)
}

func (h *Handler) Execute(c *gin.Context) {
	resp, err := h.service.Execute(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"))
	h.writeRun(c, resp, err)
}

func (h *Handler) Unlock(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Unlock(c.Request.Context(), c.GetString(middleware.ContextCompanyID), getActorID(c), c.Param("id"), req)
	h.writeRun(c, resp, err)
}

func (h *Handler) writeRun(c *gin.Context, resp PayrollRunResponse, err error) {
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetDetails(c *gin.Context) {
	resp, err := h.service.GetDetails(c.Request.Context(), c.GetString(middleware.ContextCompanyID), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetExceptions(c *gin.Context) {
	resp, err := h.service.GetExceptions(c.Request.Context(), c.GetString(middleware.ContextCompanyID), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ResolveException(c *gin.Context) {
	var req ResolveExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.ResolveException(
		c.Request.Context(),
		c.GetString(middleware.ContextCompanyID),
		getActorID(c),
		c.Param("id"),
		c.Param("detailId"),
		req,
	)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetPayslips(c *gin.Context) {
	resp, err := h.service.GetPayslips(c.Request.Context(), c.GetString(middleware.ContextCompanyID), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetPayslip(c *gin.Context) {
	resp, err := h.service.GetPayslip(c.Request.Context(), c.GetString(middleware.ContextCompanyID), c.Param("id"), c.Param("employeeId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) DownloadPayslip(c *gin.Context) {
	resp, err := h.service.GetPayslip(c.Request.Context(), c.GetString(middleware.ContextCompanyID), c.Param("id"), c.Param("employeeId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if resp.PDFURL == nil || *resp.PDFURL == "" {
		h.writeServiceError(c, payrollerrors.ErrPayslipNotGenerated)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, *resp.PDFURL)
}
