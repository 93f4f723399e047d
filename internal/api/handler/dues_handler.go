package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vishnuchaithanya1/Park-Ease/internal/api/middleware"
	"github.com/vishnuchaithanya1/Park-Ease/internal/service"
)

type DuesHandler struct {
	ledger         *service.DuesLedger
	paymentService *service.PaymentService
}

func NewDuesHandler(ledger *service.DuesLedger, ps *service.PaymentService) *DuesHandler {
	return &DuesHandler{ledger: ledger, paymentService: ps}
}

// GET /api/v1/dues
func (h *DuesHandler) Summary(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context(), middleware.ActorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// POST /api/v1/dues/:id/pay
func (h *DuesHandler) Pay(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	due, err := h.paymentService.PayDue(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, due)
}
