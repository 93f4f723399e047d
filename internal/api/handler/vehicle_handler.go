package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vishnuchaithanya1/Park-Ease/internal/api/middleware"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/service"
)

type VehicleHandler struct {
	vehicleService *service.VehicleService
}

func NewVehicleHandler(vs *service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vs}
}

// POST /api/v1/vehicles
func (h *VehicleHandler) Register(c *gin.Context) {
	var dto domain.RegisterVehicleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondBindError(c, err)
		return
	}
	v, err := h.vehicleService.Register(c.Request.Context(), middleware.ActorFrom(c), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// GET /api/v1/vehicles
func (h *VehicleHandler) ListMine(c *gin.Context) {
	out, err := h.vehicleService.ListForUser(c.Request.Context(), middleware.ActorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if out == nil {
		out = []domain.Vehicle{}
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/v1/vehicles/:id/access
func (h *VehicleHandler) GrantAccess(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var dto domain.GrantVehicleAccessDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.vehicleService.GrantAccess(c.Request.Context(), middleware.ActorFrom(c), id, dto.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/vehicles/:id/dues
func (h *VehicleHandler) Dues(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	total, err := h.vehicleService.VehicleDues(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle_id": id, "outstanding": total})
}
