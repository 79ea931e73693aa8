package worker

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/attendance-backend/internal/config"
)

// SummaryJob asks the worker to recompute one class on one date.
type SummaryJob struct {
	ClassID uuid.UUID `json:"class_id"`
	Date    string    `json:"date"`
}

// SummaryQueue pushes jobs onto the Redis list consumed by SummaryWorker.
type SummaryQueue struct {
	rdb *redis.Client
}

// NewSummaryQueue creates a new SummaryQueue.
func NewSummaryQueue(rdb *redis.Client) *SummaryQueue {
	return &SummaryQueue{rdb: rdb}
}

// Enqueue appends a recompute job.
func (q *SummaryQueue) Enqueue(ctx context.Context, classID uuid.UUID, date string) error {
	data, err := json.Marshal(SummaryJob{ClassID: classID, Date: date})
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.RecomputeSummaryQueue, data).Err()
}
