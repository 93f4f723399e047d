package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/service"
)

var statusByKind = map[domain.ErrorKind]int{
	domain.KindNotFound:                   http.StatusNotFound,
	domain.KindValidation:                 http.StatusBadRequest,
	domain.KindForbidden:                  http.StatusForbidden,
	domain.KindInvalidTransition:          http.StatusConflict,
	domain.KindVehicleBusy:                http.StatusConflict,
	domain.KindDuesOutstanding:            http.StatusConflict,
	domain.KindNoAvailableSlot:            http.StatusConflict,
	domain.KindInsufficientRemovableSlots: http.StatusConflict,
	domain.KindContended:                  http.StatusServiceUnavailable,
	domain.KindInsufficientPayment:        http.StatusPaymentRequired,
}

// Account errors sit outside the booking taxonomy but keep the same body.
var accountErrors = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrUserAlreadyExists, http.StatusConflict, "USER_EXISTS"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
}

// respondError writes a domain error as {"error": kind, "message": msg}.
// Anything outside the taxonomy is logged and reported as INTERNAL.
func respondError(c *gin.Context, err error) {
	for _, ae := range accountErrors {
		if errors.Is(err, ae.err) {
			c.JSON(ae.status, gin.H{"error": ae.code, "message": err.Error()})
			return
		}
	}
	kind := domain.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "message": "internal error"})
		return
	}
	body := gin.H{"error": string(kind), "message": domain.MessageOf(err)}
	var ir *domain.InsufficientRemovableSlotsError
	if errors.As(err, &ir) {
		body["requested"] = ir.Requested
		body["removable"] = ir.Removable
	}
	c.JSON(status, body)
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": string(domain.KindValidation), "message": err.Error()})
}

// pathID parses an integer path parameter, answering 400 when it is not one.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(domain.KindValidation), "message": "invalid " + name})
		return 0, false
	}
	return id, true
}
