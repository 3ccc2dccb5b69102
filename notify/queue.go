package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"
)

// QueueSink relays reminders onto an Azure Storage queue for an external
// notifier process to display.
type QueueSink struct {
	queue *azqueue.QueueClient
}

type alertMessage struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

func newAlertMessage(title, message string, timeout time.Duration) alertMessage {
	return alertMessage{
		ID:             uuid.NewString(),
		Title:          title,
		Message:        message,
		TimeoutSeconds: int(timeout / time.Second),
	}
}

// NewQueueSink creates a QueueSink from the given connection string.
func NewQueueSink(connStr, queueName string) (*QueueSink, error) {
	clientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				// Delivery is best-effort and single attempt.
				MaxRetries: -1,
				TryTimeout: time.Second * 30,
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &clientOptions)
	if err != nil {
		return nil, err
	}
	return &QueueSink{queue: q}, nil
}

// Ensure provisions the queue. Safe to call against an existing queue.
func (s *QueueSink) Ensure(ctx context.Context) error {
	_, err := s.queue.Create(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists" {
			return nil
		}
		return err
	}
	return nil
}

func (s *QueueSink) Notify(ctx context.Context, title, message string, timeout time.Duration) error {
	data, err := json.Marshal(newAlertMessage(title, message, timeout))
	if err != nil {
		return err
	}
	if _, err := s.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		return fmt.Errorf("enqueue alert: %w", err)
	}
	return nil
}
