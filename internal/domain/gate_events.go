package domain

import "encoding/json"

type GateDirection string

const (
	GateDirectionEntry GateDirection = "entry"
	GateDirectionExit  GateDirection = "exit"
)

const (
	GateMessageBookingScan = "gate_scan"
	GateMessagePlateScan   = "plate_scan"
)

// GenericGateEvent is parsed first to dispatch on message_type.
type GenericGateEvent struct {
	DeviceID    string          `json:"device_id"`
	MessageType string          `json:"message_type"`
	Timestamp   string          `json:"timestamp"`
	RawPayload  json.RawMessage `json:"-"`
}

// BookingScanEvent is emitted when a gate reads a booking QR code.
type BookingScanEvent struct {
	GenericGateEvent
	AreaID    int           `json:"area_id"`
	BookingID int           `json:"booking_id"`
	Direction GateDirection `json:"direction"`
}

// PlateScanEvent is emitted when a gate camera already resolved a plate.
type PlateScanEvent struct {
	GenericGateEvent
	AreaID    int           `json:"area_id"`
	Plate     string        `json:"plate"`
	Direction GateDirection `json:"direction"`
}

type LPRRequestDTO struct {
	AreaID      int           `json:"area_id" binding:"required"`
	Direction   GateDirection `json:"direction" binding:"required"`
	ImageBase64 string        `json:"image_base64" binding:"required"`
}

type LPRResponseDTO struct {
	DetectedPlate string   `json:"detected_plate"`
	Confidence    float32  `json:"confidence,omitempty"`
	Booking       *Booking `json:"booking,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}
