package handler

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vishnuchaithanya1/Park-Ease/internal/api/middleware"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/service"
)

type GateHandler struct {
	gateService *service.GateService
}

func NewGateHandler(gs *service.GateService) *GateHandler {
	return &GateHandler{gateService: gs}
}

// POST /api/v1/gate/plate
func (h *GateHandler) ProcessPlate(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(domain.KindValidation), "message": "image_base64 is not a valid image"})
		return
	}
	log.Printf("GateHandler.ProcessPlate: %d bytes for area %d (%s)", len(imageBytes), req.AreaID, req.Direction)

	resp, err := h.gateService.ProcessPlateImage(c.Request.Context(), middleware.ActorFrom(c), req.AreaID, req.Direction, imageBytes)
	switch {
	case errors.Is(err, service.ErrLPRDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "LPR_DISABLED", "message": err.Error()})
	case errors.Is(err, service.ErrPlateNotRecognized):
		c.JSON(http.StatusOK, domain.LPRResponseDTO{ErrorMessage: err.Error()})
	case err != nil && resp != nil && domain.KindOf(err) != "":
		status := statusByKind[domain.KindOf(err)]
		c.JSON(status, resp)
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusOK, resp)
	}
}
