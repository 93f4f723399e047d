package iot

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type fakeSQS struct {
	batch   []types.Message
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	out := &sqs.ReceiveMessageOutput{Messages: f.batch}
	f.batch = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, *in.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

type handlerFunc func(ctx context.Context, body string) error

func (f handlerFunc) HandleGateEvent(ctx context.Context, body string) error { return f(ctx, body) }

func TestPollDeletesOnlyHandledMessages(t *testing.T) {
	client := &fakeSQS{batch: []types.Message{
		{MessageId: aws.String("1"), ReceiptHandle: aws.String("r1"), Body: aws.String("ok")},
		{MessageId: aws.String("2"), ReceiptHandle: aws.String("r2"), Body: aws.String("busy")},
		{MessageId: aws.String("3"), ReceiptHandle: aws.String("r3")},
	}}
	var seen []string
	h := handlerFunc(func(ctx context.Context, body string) error {
		seen = append(seen, body)
		if body == "busy" {
			return errors.New("contended")
		}
		return nil
	})

	c := NewSQSConsumer(client, "https://sqs.local/queue", h)
	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if len(seen) != 2 {
		t.Errorf("handler saw %v, want two bodies", seen)
	}
	want := []string{"r1", "r3"}
	if len(client.deleted) != len(want) {
		t.Fatalf("deleted %v, want %v", client.deleted, want)
	}
	for i := range want {
		if client.deleted[i] != want[i] {
			t.Errorf("deleted[%d] = %s, want %s", i, client.deleted[i], want[i])
		}
	}
}
