package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TransformDocumentTask is scheduled each time an upload is stored.
	TransformDocumentTask = "document:transform"
	// ExpireRecordsTask sweeps records past their expiry.
	ExpireRecordsTask = "document:expire"
)

// TransformPayload is serialized into the task payload so the worker knows
// which object to fetch and how to read it.
type TransformPayload struct {
	RecordID  string `json:"record_id"`
	ObjectKey string `json:"object_key"`
	MediaType string `json:"media_type"`
	FileName  string `json:"file_name"`
}

// Enqueuer hands a stored upload to the processing stage.
type Enqueuer interface {
	EnqueueTransform(ctx context.Context, payload TransformPayload) error
}

// TaskQueue enqueues work into Redis through asynq.
type TaskQueue struct {
	client *asynq.Client
}

// NewTaskQueue wraps an asynq client.
func NewTaskQueue(client *asynq.Client) *TaskQueue {
	return &TaskQueue{client: client}
}

// EnqueueTransform enqueues a document transformation job. The record id
// doubles as the task id so a retried upload request cannot schedule the
// same record twice.
func (q *TaskQueue) EnqueueTransform(ctx context.Context, payload TransformPayload) error {
	task, err := NewTransformTask(payload)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.TaskID("transform:"+payload.RecordID),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue transform task: %w", err)
	}
	return nil
}

// NewTransformTask builds the asynq task for payload.
func NewTransformTask(payload TransformPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TransformDocumentTask, data), nil
}

// DecodeTransform reads a TransformPayload back from a task.
func DecodeTransform(task *asynq.Task) (TransformPayload, error) {
	var payload TransformPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	if payload.RecordID == "" || payload.ObjectKey == "" {
		return payload, fmt.Errorf("decode payload: record_id and object_key are required")
	}
	return payload, nil
}

// NewExpireTask builds the periodic sweep task. It carries no payload.
func NewExpireTask() *asynq.Task {
	return asynq.NewTask(ExpireRecordsTask, nil)
}

var _ Enqueuer = (*TaskQueue)(nil)
