package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vishnuchaithanya1/Park-Ease/internal/api/middleware"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/service"
)

type BookingHandler struct {
	bookingService *service.BookingService
	paymentService *service.PaymentService
}

func NewBookingHandler(bs *service.BookingService, ps *service.PaymentService) *BookingHandler {
	return &BookingHandler{bookingService: bs, paymentService: ps}
}

// POST /api/v1/bookings
func (h *BookingHandler) CreateReservation(c *gin.Context) {
	var dto domain.CreateReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondBindError(c, err)
		return
	}
	b, err := h.bookingService.CreateReservation(c.Request.Context(), middleware.ActorFrom(c), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /api/v1/bookings
func (h *BookingHandler) ListMine(c *gin.Context) {
	out, err := h.bookingService.ListForUser(c.Request.Context(), middleware.ActorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if out == nil {
		out = []domain.Booking{}
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookingService.BookingFor(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/v1/bookings/:id/check-in
func (h *BookingHandler) CheckIn(c *gin.Context) {
	h.gateStep(c, h.bookingService.CheckIn)
}

// POST /api/v1/bookings/:id/check-out
func (h *BookingHandler) CheckOut(c *gin.Context) {
	h.gateStep(c, h.bookingService.CheckOut)
}

func (h *BookingHandler) gateStep(c *gin.Context, step func(context.Context, int) (*domain.Booking, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.bookingService.BookingFor(ctx, middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	b, err := step(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/v1/bookings/:id/pay
func (h *BookingHandler) Pay(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var dto domain.SettleBookingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondBindError(c, err)
		return
	}
	b, err := h.paymentService.PayBooking(c.Request.Context(), middleware.ActorFrom(c), id, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/v1/bookings/:id/default
func (h *BookingHandler) ForceDefault(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookingService.ForceDefault(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/v1/areas/:id/bookings
func (h *BookingHandler) ListActiveForArea(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.bookingService.ActiveForArea(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if out == nil {
		out = []domain.Booking{}
	}
	c.JSON(http.StatusOK, out)
}
