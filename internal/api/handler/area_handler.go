package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vishnuchaithanya1/Park-Ease/internal/api/middleware"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/service"
)

type AreaHandler struct {
	areaService *service.AreaService
}

func NewAreaHandler(as *service.AreaService) *AreaHandler {
	return &AreaHandler{areaService: as}
}

// POST /api/v1/areas
func (h *AreaHandler) CreateArea(c *gin.Context) {
	var dto domain.CreateAreaDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondBindError(c, err)
		return
	}
	area, err := h.areaService.CreateArea(c.Request.Context(), middleware.ActorFrom(c), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, area)
}

// GET /api/v1/areas
func (h *AreaHandler) ListAreas(c *gin.Context) {
	areas, err := h.areaService.ListAreas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if areas == nil {
		areas = []domain.Area{}
	}
	c.JSON(http.StatusOK, areas)
}

// GET /api/v1/areas/:id
func (h *AreaHandler) GetArea(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	area, err := h.areaService.GetArea(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

// GET /api/v1/availability
func (h *AreaHandler) ListAvailability(c *gin.Context) {
	out, err := h.areaService.ListAvailability(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/v1/areas/:id/availability
func (h *AreaHandler) GetAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	av, err := h.areaService.Availability(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, av)
}

// GET /api/v1/areas/:id/slots
func (h *AreaHandler) ListSlots(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	slots, err := h.areaService.Slots(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if slots == nil {
		slots = []domain.Slot{}
	}
	c.JSON(http.StatusOK, slots)
}

// PUT /api/v1/areas/:id/capacity
func (h *AreaHandler) ResizeArea(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var dto domain.ResizeAreaDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondBindError(c, err)
		return
	}
	area, err := h.areaService.ResizeArea(c.Request.Context(), middleware.ActorFrom(c), id, dto.Class, *dto.NewCapacity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

type multipliersRequest struct {
	Multipliers []float64 `json:"multipliers" binding:"required"`
}

// PUT /api/v1/areas/:id/multipliers
func (h *AreaHandler) UpdateMultipliers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req multipliersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	area, err := h.areaService.UpdateMultipliers(c.Request.Context(), middleware.ActorFrom(c), id, req.Multipliers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

// POST /api/v1/areas/:id/guards
func (h *AreaHandler) AssignGuard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var dto domain.AssignGuardDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.areaService.AssignGuard(c.Request.Context(), middleware.ActorFrom(c), id, dto.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/v1/slots/:id/status
func (h *AreaHandler) SetSlotStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var dto domain.SetSlotStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondBindError(c, err)
		return
	}
	slot, err := h.areaService.SetSlotStatus(c.Request.Context(), middleware.ActorFrom(c), id, dto.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}
