package handler

import (
	"context"
	"net/http"

	"dealer_crm_backend/internal/finance/transport"
	"dealer_crm_backend/platform/httpkit"
	"dealer_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Calculator is the finance service surface.
type Calculator interface {
	Quote(ctx context.Context, req transport.RTOQuoteRequest) (transport.RTOQuoteResponse, error)
	Monthly(ctx context.Context, req transport.RTOMonthlyRequest) (transport.RTOMonthlyResponse, error)
	Matrix(ctx context.Context, req transport.PaymentMatrixRequest) (transport.PaymentMatrixResponse, error)
	Factors() transport.FactorTableResponse
}

type Handler struct {
	svc Calculator
	val *validator.Validator
}

func New(svc Calculator, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rto", h.Quote)
	rg.POST("/rto/monthly", h.Monthly)
	rg.POST("/rto/matrix", h.Matrix)
	rg.GET("/rto/factors", h.Factors)
}

func (h *Handler) Quote(c *gin.Context) {
	var req transport.RTOQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Quote(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Monthly(c *gin.Context) {
	var req transport.RTOMonthlyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Monthly(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Matrix(c *gin.Context) {
	var req transport.PaymentMatrixRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Matrix(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Factors(c *gin.Context) {
	httpkit.OK(c, h.svc.Factors())
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return false
	}
	return true
}
