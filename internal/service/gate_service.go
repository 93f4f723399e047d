package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

// GateService turns gate hardware events into booking transitions. Scans
// arrive over SQS; camera frames arrive over HTTP and go through the plate
// reader first.
type GateService struct {
	bookings *BookingService
	lpr      *LPRService
}

func NewGateService(bookings *BookingService, lpr *LPRService) *GateService {
	return &GateService{bookings: bookings, lpr: lpr}
}

// HandleGateEvent processes one queue message. A nil return means the message
// can be deleted: events that no longer apply (booking gone, already checked
// in) are logged and dropped. Contention and infrastructure errors are
// returned so the message is redelivered.
func (s *GateService) HandleGateEvent(ctx context.Context, body string) error {
	var generic domain.GenericGateEvent
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		log.Printf("GateService.HandleGateEvent: dropping malformed message: %v", err)
		return nil
	}

	var err error
	switch generic.MessageType {
	case domain.GateMessageBookingScan:
		var ev domain.BookingScanEvent
		if err = json.Unmarshal([]byte(body), &ev); err != nil {
			log.Printf("GateService.HandleGateEvent: bad gate_scan from %s: %v", generic.DeviceID, err)
			return nil
		}
		_, err = s.applyScan(ctx, ev.AreaID, ev.BookingID, ev.Direction)
	case domain.GateMessagePlateScan:
		var ev domain.PlateScanEvent
		if err = json.Unmarshal([]byte(body), &ev); err != nil {
			log.Printf("GateService.HandleGateEvent: bad plate_scan from %s: %v", generic.DeviceID, err)
			return nil
		}
		_, err = s.applyPlate(ctx, ev.AreaID, ev.Plate, ev.Direction)
	default:
		log.Printf("GateService.HandleGateEvent: ignoring message type '%s' from %s", generic.MessageType, generic.DeviceID)
		return nil
	}

	if err == nil {
		return nil
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindInvalidTransition, domain.KindValidation:
		log.Printf("GateService.HandleGateEvent: %s event from %s not applied: %v", generic.MessageType, generic.DeviceID, err)
		return nil
	}
	return err
}

// ProcessPlateImage reads the plate from a camera frame and applies it as a
// scan at the given gate. The actor must operate the area of the matched
// booking.
func (s *GateService) ProcessPlateImage(ctx context.Context, actor domain.Actor, areaID int, direction domain.GateDirection, image []byte) (*domain.LPRResponseDTO, error) {
	if areaID != 0 {
		if err := s.bookings.authorizeAreaOperator(ctx, actor, areaID); err != nil {
			return nil, err
		}
	}
	plate, confidence, err := s.lpr.ReadPlate(ctx, image)
	if err != nil {
		return nil, err
	}
	found, err := s.bookings.FindActiveByPlate(ctx, plate)
	if err == nil && areaID == 0 {
		if err := s.bookings.authorizeAreaOperator(ctx, actor, found.AreaID); err != nil {
			return nil, err
		}
	}
	var b *domain.Booking
	if err == nil {
		b, err = s.applyScan(ctx, areaID, found.ID, direction)
	}
	if err != nil {
		return &domain.LPRResponseDTO{DetectedPlate: plate, Confidence: confidence, ErrorMessage: domain.MessageOf(err)}, err
	}
	return &domain.LPRResponseDTO{DetectedPlate: plate, Confidence: confidence, Booking: b}, nil
}

func (s *GateService) applyPlate(ctx context.Context, areaID int, plate string, direction domain.GateDirection) (*domain.Booking, error) {
	b, err := s.bookings.FindActiveByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	return s.applyScan(ctx, areaID, b.ID, direction)
}

func (s *GateService) applyScan(ctx context.Context, areaID, bookingID int, direction domain.GateDirection) (*domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if areaID != 0 && b.AreaID != areaID {
		return nil, domain.NewValidationError(fmt.Sprintf("booking %d is for area %d, not %d", b.ID, b.AreaID, areaID))
	}
	switch direction {
	case domain.GateDirectionEntry:
		return s.bookings.CheckIn(ctx, bookingID)
	case domain.GateDirectionExit:
		return s.bookings.CheckOut(ctx, bookingID)
	}
	return nil, domain.NewValidationError(fmt.Sprintf("unknown gate direction %q", direction))
}

