package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

type IoTDataPublisher interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// IoTSink pushes notifications to gate displays over AWS IoT MQTT. The topic
// "slot.availability" becomes "<prefix>/slot/availability".
type IoTSink struct {
	client IoTDataPublisher
	prefix string
}

func NewIoTSink(client IoTDataPublisher, prefix string) *IoTSink {
	if prefix == "" {
		prefix = "parkease"
	}
	return &IoTSink{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

func (s *IoTSink) Name() string { return "iot" }

func (s *IoTSink) Topic(topic string) string {
	return s.prefix + "/" + strings.ReplaceAll(topic, ".", "/")
}

func (s *IoTSink) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = s.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(s.Topic(n.Topic)),
		Qos:     1,
		Payload: body,
	})
	if err != nil {
		return fmt.Errorf("publish mqtt: %w", err)
	}
	return nil
}
