package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"caseflow_backend/internal/inventory/repository"
	"caseflow_backend/internal/inventory/transport"
	"caseflow_backend/platform/httpkit"
	"caseflow_backend/platform/validator"
)

// Handler handles HTTP requests for inventory.
type Handler struct {
	repo *repository.Repository
	val  *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid unit id"
)

// New creates a new inventory handler.
func New(repo *repository.Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

// ListUnits retrieves inventory units matching optional filters.
// GET /api/v1/inventory/units
func (h *Handler) ListUnits(c *gin.Context) {
	var req transport.ListUnitsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	units, err := h.repo.Search(c.Request.Context(), repository.SearchParams{
		MaxPrice:    req.MaxPrice,
		Area:        req.Area,
		MinBedrooms: req.MinBedrooms,
		Limit:       req.Limit,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"units": units, "count": len(units)})
}

// GetUnitByID retrieves a single unit.
// GET /api/v1/inventory/units/:id
func (h *Handler) GetUnitByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	unit, err := h.repo.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, unit)
}
