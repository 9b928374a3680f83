package handler

import (
	"context"
	"net/http"

	"dealer_crm_backend/internal/leads/domain"
	"dealer_crm_backend/internal/leads/transport"
	"dealer_crm_backend/platform/httpkit"
	"dealer_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// LeadService is the service surface the handler drives.
type LeadService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error)
	GetByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (transport.LeadResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, req transport.ListLeadsRequest) (transport.LeadListResponse, error)
	Update(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error)
	UpdateStatus(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, actorID *uuid.UUID, status string) (transport.LeadResponse, error)
	BulkUpdateStatus(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, ids []uuid.UUID, status string) (transport.BulkStatusResponse, error)
	LogActivity(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, actorID *uuid.UUID, req transport.CreateActivityRequest) (transport.ActivityResponse, error)
	ListActivities(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID) (transport.ActivityListResponse, error)
	Recalculate(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (transport.LeadResponse, error)
	Assess(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (transport.AssessmentResponse, error)
}

// RescoreEnqueuer queues a background rescore of a whole tenant.
type RescoreEnqueuer interface {
	EnqueueTenantRescore(ctx context.Context, tenantID uuid.UUID) (taskID string, queue string, err error)
}

type Handler struct {
	svc      LeadService
	rescorer RescoreEnqueuer
	val      *validator.Validator
}

// New creates the leads handler. rescorer may be nil when no job queue is
// configured; the admin rescore route then answers 503.
func New(svc LeadService, rescorer RescoreEnqueuer, val *validator.Validator) *Handler {
	return &Handler{svc: svc, rescorer: rescorer, val: val}
}

// RegisterValidations adds the leadstatus and activitykind tags and unwraps
// OptionalString fields for their tags.
func RegisterValidations(val *validator.Validator) error {
	val.RegisterCustomTypeFunc(transport.OptionalStringValue, transport.OptionalString{})
	if err := val.RegisterValidation("leadstatus", func(fl govalidator.FieldLevel) bool {
		return domain.IsKnownStatus(fl.Field().String())
	}); err != nil {
		return err
	}
	return val.RegisterValidation("activitykind", func(fl govalidator.FieldLevel) bool {
		return domain.IsKnownActivityKind(fl.Field().String())
	})
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/bulk-status", h.BulkUpdateStatus)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.GET("/:id/activities", h.ListActivities)
	rg.POST("/:id/activities", h.LogActivity)
	rg.POST("/:id/rescore", h.Recalculate)
	rg.GET("/:id/score", h.Assess)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/rescore", h.EnqueueTenantRescore)
}

func (h *Handler) Create(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	req := transport.ListLeadsRequest{Page: 1, PageSize: 20}
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	result, err := h.svc.List(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), tenantID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	identity, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	actorID := identity.UserID()
	lead, err := h.svc.UpdateStatus(c.Request.Context(), tenantID, id, &actorID, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) BulkUpdateStatus(c *gin.Context) {
	identity, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	var req transport.BulkStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	actorID := identity.UserID()
	result, err := h.svc.BulkUpdateStatus(c.Request.Context(), tenantID, &actorID, req.IDs, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) LogActivity(c *gin.Context) {
	identity, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.CreateActivityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	actorID := identity.UserID()
	activity, err := h.svc.LogActivity(c.Request.Context(), tenantID, id, &actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, activity)
}

func (h *Handler) ListActivities(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListActivities(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Recalculate(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Recalculate(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Assess(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Assess(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) EnqueueTenantRescore(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	if h.rescorer == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "background jobs are not configured", nil)
		return
	}

	taskID, queue, err := h.rescorer.EnqueueTenantRescore(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.RescoreEnqueuedResponse{TaskID: taskID, Queue: queue})
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

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
