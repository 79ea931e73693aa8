package worker

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/websocket"
)

const (
	popTimeout = time.Second
	retryPause = 5 * time.Second
)

// SummaryStore recomputes stored daily summaries.
type SummaryStore interface {
	Recompute(ctx context.Context, classID uuid.UUID, date string) (*model.DailySummary, error)
	RebuildAll(ctx context.Context) (int, error)
}

// Notifier drops cached dashboards and tells live streams about changes.
type Notifier interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Publish(ctx context.Context, channel string, v any) error
}

// SummaryWorker consumes recompute_summary_queue and keeps daily_summaries in
// step with attendance. It also rebuilds every summary on a schedule.
type SummaryWorker struct {
	rdb             *redis.Client
	store           SummaryStore
	notifier        Notifier
	rebuildInterval time.Duration
	log             zerolog.Logger
}

// NewSummaryWorker creates a new SummaryWorker.
func NewSummaryWorker(rdb *redis.Client, store SummaryStore, notifier Notifier, rebuildInterval time.Duration, log zerolog.Logger) *SummaryWorker {
	return &SummaryWorker{
		rdb:             rdb,
		store:           store,
		notifier:        notifier,
		rebuildInterval: rebuildInterval,
		log:             log.With().Str("component", "summary_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SummaryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("rebuild_interval", w.rebuildInterval).Msg("Worker started")

	go w.scheduleRebuild(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SummaryWorker) processNext(ctx context.Context) {
	queue := config.WorkerKey.RecomputeSummaryQueue
	result, err := w.rdb.BLPop(ctx, popTimeout, queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			time.Sleep(popTimeout)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var job SummaryJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Str("payload", result[1]).Msg("Dropping malformed job")
		return
	}

	if err := w.Handle(ctx, job); err != nil {
		w.log.Error().Err(err).
			Str("class_id", job.ClassID.String()).
			Str("date", job.Date).
			Msg("Recompute error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(context.Background(), queue, result[1])
		select {
		case <-ctx.Done():
		case <-time.After(retryPause):
		}
	}
}

// Handle recomputes one summary, drops cached dashboards and publishes the change.
func (w *SummaryWorker) Handle(ctx context.Context, job SummaryJob) error {
	summary, err := w.store.Recompute(ctx, job.ClassID, job.Date)
	if err != nil {
		return err
	}
	w.afterChange(ctx, websocket.SummaryEvent{
		Event:   websocket.EventSummaryUpdated,
		ClassID: job.ClassID.String(),
		Date:    job.Date,
		Summary: summary,
	})
	return nil
}

// Rebuild recomputes every summary.
func (w *SummaryWorker) Rebuild(ctx context.Context) error {
	start := time.Now()
	n, err := w.store.RebuildAll(ctx)
	if err != nil {
		return err
	}
	w.log.Info().Int("summaries", n).Dur("took", time.Since(start)).Msg("Summaries rebuilt")
	w.afterChange(ctx, websocket.SummaryEvent{Event: websocket.EventSummaryRebuilt})
	return nil
}

// afterChange logs failures instead of returning them.
func (w *SummaryWorker) afterChange(ctx context.Context, event websocket.SummaryEvent) {
	if _, err := w.notifier.DeletePrefix(ctx, config.CacheKey.DashboardPrefix()); err != nil {
		w.log.Warn().Err(err).Msg("Failed to drop dashboard cache")
	}
	if err := w.notifier.Publish(ctx, config.CacheKey.DashboardEventsChannel(), event); err != nil {
		w.log.Warn().Err(err).Msg("Failed to publish dashboard event")
	}
}

func (w *SummaryWorker) scheduleRebuild(ctx context.Context) {
	if err := w.Rebuild(ctx); err != nil && ctx.Err() == nil {
		w.log.Error().Err(err).Msg("Initial rebuild failed")
	}
	if w.rebuildInterval <= 0 {
		return
	}

	ticker := time.NewTicker(w.rebuildInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Rebuild(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Scheduled rebuild failed")
			}
		}
	}
}

// drain processes all remaining items in the queue before shutdown.
func (w *SummaryWorker) drain(ctx context.Context) {
	queue := config.WorkerKey.RecomputeSummaryQueue
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, queue).Result()
		if err != nil {
			break
		}

		var job SummaryJob
		if err := json.Unmarshal([]byte(result), &job); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.Handle(ctx, job); err != nil {
			w.log.Error().Err(err).Msg("Drain recompute error")
			w.rdb.RPush(ctx, queue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
