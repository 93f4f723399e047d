package iot

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI is the part of *sqs.Client the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// GateEventHandler processes one message body. A nil error acknowledges the
// message; anything else leaves it for redelivery after the visibility
// timeout.
type GateEventHandler interface {
	HandleGateEvent(ctx context.Context, body string) error
}

type SQSConsumer struct {
	client     SQSAPI
	queueURL   string
	handler    GateEventHandler
	waitTime   int32
	retryDelay time.Duration
}

func NewSQSConsumer(client SQSAPI, queueURL string, handler GateEventHandler) *SQSConsumer {
	return &SQSConsumer{
		client:     client,
		queueURL:   queueURL,
		handler:    handler,
		waitTime:   20,
		retryDelay: 5 * time.Second,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQSConsumer: listening on %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQSConsumer: context cancelled, stopping.")
			return
		default:
		}
		if err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("SQSConsumer: receive failed: %v", err)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
			}
		}
	}
}

// Poll receives one batch and handles each message in order.
func (c *SQSConsumer) Poll(ctx context.Context) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     c.waitTime,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return err
	}

	for _, message := range result.Messages {
		if message.Body == nil {
			c.deleteMessage(ctx, message.ReceiptHandle)
			continue
		}
		if err := c.handler.HandleGateEvent(ctx, *message.Body); err != nil {
			id := ""
			if message.MessageId != nil {
				id = *message.MessageId
			}
			log.Printf("SQSConsumer: message %s left for redelivery: %v", id, err)
			continue
		}
		c.deleteMessage(ctx, message.ReceiptHandle)
	}
	return nil
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQSConsumer: empty receipt handle, cannot delete message.")
		return
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		log.Printf("SQSConsumer: delete failed: %v", err)
	}
}
