// Package job runs background work for archived documents. Jobs are
// recorded in postgres and dispatched over AMQP to the worker command.
package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one unit of background work. The payload carries the task's
// own parameters, e.g. ReindexPayload for reindex jobs.
type Job struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	TaskType  string          `gorm:"not null;column:task_type" json:"task_type"`
	Payload   json.RawMessage `gorm:"not null" json:"payload"`
	Status    JobStatus       `gorm:"not null" json:"status"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobRepository persists jobs and their status transitions.
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	UpdateStatus(ctx context.Context, id int64, status JobStatus, errMsg *string) error
}
