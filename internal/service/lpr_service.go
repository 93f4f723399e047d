package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

var ErrPlateNotRecognized = errors.New("no licence plate recognised in image")
var ErrLPRDisabled = errors.New("plate recognition is not configured")

// TextDetector is the slice of the Rekognition client the plate reader uses.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Registration marks such as KA01AB1234 or DL3C1234 once spaces and hyphens
// are stripped.
var platePattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{1,2}[A-Z]{0,3}[0-9]{4}$`)

type LPRService struct {
	detector TextDetector
}

func NewLPRService(detector TextDetector) *LPRService {
	return &LPRService{detector: detector}
}

// ReadPlate runs text detection over a gate camera frame and returns the
// most confident line that looks like a plate, normalised.
func (s *LPRService) ReadPlate(ctx context.Context, image []byte) (string, float32, error) {
	if s == nil || s.detector == nil {
		return "", 0, ErrLPRDisabled
	}

	result, err := s.detector.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return "", 0, fmt.Errorf("LPRService.ReadPlate: rekognition: %w", err)
	}

	var seen []string
	var best string
	var bestConfidence float32
	for _, det := range result.TextDetections {
		if det.Type != types.TextTypesLine && det.Type != types.TextTypesWord {
			continue
		}
		if det.DetectedText == nil || det.Confidence == nil {
			continue
		}
		txt := cleanPlateText(*det.DetectedText)
		seen = append(seen, txt)
		if platePattern.MatchString(txt) && *det.Confidence > bestConfidence {
			best = txt
			bestConfidence = *det.Confidence
		}
	}

	if best == "" {
		log.Printf("LPRService.ReadPlate: no plate among %d detections (%s)", len(seen), strings.Join(seen, ", "))
		return "", 0, ErrPlateNotRecognized
	}
	log.Printf("LPRService.ReadPlate: read '%s' with confidence %.2f", best, bestConfidence)
	return best, bestConfidence, nil
}

func cleanPlateText(s string) string {
	s = strings.ToUpper(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.':
			return -1
		}
		return r
	}, s)
}
