package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

type fakeDetector struct {
	detections []types.TextDetection
	err        error
}

func (f *fakeDetector) DetectText(ctx context.Context, in *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rekognition.DetectTextOutput{TextDetections: f.detections}, nil
}

func line(text string, confidence float32) types.TextDetection {
	return types.TextDetection{Type: types.TextTypesLine, DetectedText: aws.String(text), Confidence: aws.Float32(confidence)}
}

func TestReadPlate(t *testing.T) {
	tests := []struct {
		name      string
		detector  *fakeDetector
		wantPlate string
		wantErr   error
	}{
		{
			name:      "best match wins",
			detector:  &fakeDetector{detections: []types.TextDetection{line("PARKING", 99), line("KA 01 AB 1234", 91), line("KA-01-AB-1284", 80)}},
			wantPlate: "KA01AB1234",
		},
		{
			name:     "nothing plate-like",
			detector: &fakeDetector{detections: []types.TextDetection{line("EXIT", 99)}},
			wantErr:  ErrPlateNotRecognized,
		},
		{
			name:     "rekognition down",
			detector: &fakeDetector{err: errors.New("throttled")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plate, _, err := NewLPRService(tt.detector).ReadPlate(context.Background(), []byte("img"))
			if tt.wantPlate != "" {
				if err != nil || plate != tt.wantPlate {
					t.Fatalf("got %q, %v; want %q", plate, err, tt.wantPlate)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	var disabled *LPRService
	if _, _, err := disabled.ReadPlate(context.Background(), nil); !errors.Is(err, ErrLPRDisabled) {
		t.Errorf("nil service: got %v", err)
	}
}

func TestGateEvents(t *testing.T) {
	h := newHarness(t, DefaultPolicy())
	ctx := context.Background()
	area := h.newArea(t, domain.ClassCounters{Small: 2}, nil, 50)
	v := h.newVehicle(t, h.driver, "KA01AB1234", domain.ClassSmall)
	b := h.reserve(t, h.driver, v, area.ID, domain.IntentReserveAhead)
	gate := NewGateService(h.bookings, NewLPRService(&fakeDetector{detections: []types.TextDetection{line("KA01AB1234", 95)}}))

	wrongArea := fmt.Sprintf(`{"device_id":"g1","message_type":"gate_scan","area_id":%d,"booking_id":%d,"direction":"entry"}`, area.ID+1, b.ID)
	if err := gate.HandleGateEvent(ctx, wrongArea); err != nil {
		t.Fatalf("wrong area should be dropped, got %v", err)
	}
	if got := h.booking(t, b.ID); got.Status != domain.BookingReserved {
		t.Fatalf("wrong-area scan moved booking to %s", got.Status)
	}

	entry := fmt.Sprintf(`{"device_id":"g1","message_type":"gate_scan","area_id":%d,"booking_id":%d,"direction":"entry"}`, area.ID, b.ID)
	if err := gate.HandleGateEvent(ctx, entry); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if got := h.booking(t, b.ID); got.Status != domain.BookingActiveParking {
		t.Fatalf("status after entry = %s", got.Status)
	}
	// A duplicate delivery is acknowledged without effect.
	if err := gate.HandleGateEvent(ctx, entry); err != nil {
		t.Errorf("duplicate entry: %v", err)
	}

	for _, body := range []string{`not json`, `{"message_type":"heartbeat"}`} {
		if err := gate.HandleGateEvent(ctx, body); err != nil {
			t.Errorf("%q: %v", body, err)
		}
	}

	h.clock.Advance(time.Hour)
	stranger := h.newUser(t, "stray-guard", domain.RoleDriver)
	strayGuard := domain.Actor{UserID: stranger.UserID, Role: domain.RoleGuard}
	for _, areaID := range []int{area.ID, 0} {
		if _, err := gate.ProcessPlateImage(ctx, strayGuard, areaID, domain.GateDirectionExit, []byte("frame")); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("unassigned guard at area %d: got %v, want Forbidden", areaID, err)
		}
	}
	if got := h.booking(t, b.ID); got.Status != domain.BookingActiveParking {
		t.Fatalf("unassigned guard moved booking to %s", got.Status)
	}

	res, err := gate.ProcessPlateImage(ctx, h.owner, area.ID, domain.GateDirectionExit, []byte("frame"))
	if err != nil {
		t.Fatalf("ProcessPlateImage: %v", err)
	}
	if res.DetectedPlate != "KA01AB1234" || res.Booking == nil || res.Booking.Status != domain.BookingPaymentPending {
		t.Errorf("result = %+v", res)
	}

	plateExit := fmt.Sprintf(`{"device_id":"g2","message_type":"plate_scan","area_id":%d,"plate":"KA01AB1234","direction":"exit"}`, area.ID)
	if err := gate.HandleGateEvent(ctx, plateExit); err != nil {
		t.Errorf("exit after checkout should be dropped, got %v", err)
	}
}
