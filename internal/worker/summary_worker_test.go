package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/websocket"
)

type fakeSummaryStore struct {
	recomputed []SummaryJob
	summary    *model.DailySummary
	rebuilt    int
	err        error
}

func (f *fakeSummaryStore) Recompute(_ context.Context, classID uuid.UUID, date string) (*model.DailySummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.recomputed = append(f.recomputed, SummaryJob{ClassID: classID, Date: date})
	return f.summary, nil
}

func (f *fakeSummaryStore) RebuildAll(context.Context) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.rebuilt++
	return 3, nil
}

type fakeNotifier struct {
	prefixes  []string
	channels  []string
	published []any
}

func (f *fakeNotifier) DeletePrefix(_ context.Context, prefix string) (int, error) {
	f.prefixes = append(f.prefixes, prefix)
	return 1, nil
}

func (f *fakeNotifier) Publish(_ context.Context, channel string, v any) error {
	f.channels = append(f.channels, channel)
	f.published = append(f.published, v)
	return nil
}

func TestHandleRecomputesAndNotifies(t *testing.T) {
	classID := uuid.New()
	store := &fakeSummaryStore{summary: &model.DailySummary{ClassID: classID, Date: "2024-03-04", Present: 3, Total: 3}}
	notifier := &fakeNotifier{}
	w := NewSummaryWorker(nil, store, notifier, 0, zerolog.Nop())

	require.NoError(t, w.Handle(context.Background(), SummaryJob{ClassID: classID, Date: "2024-03-04"}))

	assert.Equal(t, []SummaryJob{{ClassID: classID, Date: "2024-03-04"}}, store.recomputed)
	assert.Equal(t, []string{"dashboard:"}, notifier.prefixes)
	assert.Equal(t, []string{"dashboard:events"}, notifier.channels)

	event, ok := notifier.published[0].(websocket.SummaryEvent)
	require.True(t, ok)
	assert.Equal(t, websocket.EventSummaryUpdated, event.Event)
	assert.Equal(t, classID.String(), event.ClassID)
	assert.Equal(t, 3, event.Summary.Present)
}

func TestHandleErrorSkipsNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	w := NewSummaryWorker(nil, &fakeSummaryStore{err: errors.New("db down")}, notifier, 0, zerolog.Nop())

	err := w.Handle(context.Background(), SummaryJob{ClassID: uuid.New(), Date: "2024-03-04"})
	assert.Error(t, err)
	assert.Empty(t, notifier.published)
}

func TestRebuildPublishesRebuiltEvent(t *testing.T) {
	store := &fakeSummaryStore{}
	notifier := &fakeNotifier{}
	w := NewSummaryWorker(nil, store, notifier, 0, zerolog.Nop())

	require.NoError(t, w.Rebuild(context.Background()))
	assert.Equal(t, 1, store.rebuilt)
	require.Len(t, notifier.published, 1)
	assert.Equal(t, websocket.EventSummaryRebuilt, notifier.published[0].(websocket.SummaryEvent).Event)
}
