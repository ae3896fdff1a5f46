package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"caseflow_backend/internal/cases/domain"
	"caseflow_backend/internal/cases/service"
	"caseflow_backend/internal/cases/transport"
	"caseflow_backend/platform/httpkit"
	"caseflow_backend/platform/validator"
)

// Handler handles HTTP requests for cases.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidCaseID    = "invalid case id"
	msgInvalidActionID  = "invalid action id"
)

// New creates a new cases handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func caseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCaseID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// GetCase returns case detail.
// GET /api/v1/cases/:id
func (h *Handler) GetCase(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}

	cs, err := h.svc.GetCase(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, cs)
}

// ChangeStage moves a case along the pipeline.
// POST /api/v1/cases/:id/stage
func (h *Handler) ChangeStage(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ChangeStage(c.Request.Context(), service.ChangeStageParams{
		CaseID:             id,
		TargetStage:        req.Stage,
		ActingAgentID:      identity.AgentID(),
		Feedback:           req.Feedback,
		TotalBudget:        req.TotalBudget,
		DownPayment:        req.DownPayment,
		MonthlyInstallment: req.MonthlyInstallment,
		MeetingDate:        req.MeetingDate,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateAction schedules a follow-up action.
// POST /api/v1/cases/:id/actions
func (h *Handler) CreateAction(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	action, err := h.svc.CreateAction(c.Request.Context(), service.CreateActionParams{
		CaseID:        id,
		ActionType:    domain.ActionType(req.ActionType),
		Payload:       req.Payload,
		DueInMinutes:  req.DueInMinutes,
		ActingAgentID: identity.AgentID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, action)
}

// ListActions returns a case's actions.
// GET /api/v1/cases/:id/actions
func (h *Handler) ListActions(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}

	actions, err := h.svc.ListActions(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": actions, "total": len(actions)})
}

// UpdateAction partially updates a pending action. A body carrying
// {"status": "DONE"} or {"status": "SKIPPED"} finishes the action, same as
// the complete/skip endpoints, and cannot be combined with other fields.
// PATCH /api/v1/actions/:id
func (h *Handler) UpdateAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidActionID, nil)
		return
	}

	var req transport.UpdateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	var status *domain.ActionStatus
	if req.Status != nil {
		s := domain.ActionStatus(*req.Status)
		status = &s
	}

	action, err := h.svc.UpdateAction(c.Request.Context(), service.UpdateActionParams{
		ActionID:     id,
		Payload:      req.Payload,
		HasPayload:   len(req.Payload) > 0,
		DueInMinutes: req.DueInMinutes,
		Status:       status,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, action)
}

// CompleteAction marks an action DONE.
// POST /api/v1/actions/:id/complete
func (h *Handler) CompleteAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidActionID, nil)
		return
	}

	action, err := h.svc.CompleteAction(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, action)
}

// SkipAction marks an action SKIPPED.
// POST /api/v1/actions/:id/skip
func (h *Handler) SkipAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidActionID, nil)
		return
	}

	action, err := h.svc.SkipAction(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, action)
}

// FaceChange reassigns a case to another agent.
// POST /api/v1/cases/:id/face-change
func (h *Handler) FaceChange(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.FaceChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	toAgentID, err := uuid.Parse(req.ToAgentID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid toAgentId", nil)
		return
	}

	fc, err := h.svc.Reassign(c.Request.Context(), service.ReassignParams{
		CaseID:        id,
		ToAgentID:     toAgentID,
		Reason:        req.Reason,
		ActingAgentID: identity.AgentID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, fc)
}

// ListFaceChanges returns a case's reassignment history.
// GET /api/v1/cases/:id/face-changes
func (h *Handler) ListFaceChanges(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}

	items, err := h.svc.ListFaceChanges(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items, "total": len(items)})
}

// RunInventoryMatch runs the affordability matcher for a case. All
// request fields are optional, so an empty body runs the matcher with
// the case's stored budget.
// POST /api/v1/cases/:id/inventory-match
func (h *Handler) RunInventoryMatch(c *gin.Context) {
	id, ok := caseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.InventoryMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.RunMatch(c.Request.Context(), service.MatchParams{
		CaseID:             id,
		ActingAgentID:      identity.AgentID(),
		TotalBudget:        req.TotalBudget,
		DownPayment:        req.DownPayment,
		MonthlyInstallment: req.MonthlyInstallment,
		Area:               req.Area,
		MinBedrooms:        req.MinBedrooms,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
