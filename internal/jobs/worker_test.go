package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readlog/internal/reading"
)

type fakeEntrySource struct {
	entries []reading.Entry
	err     error
}

func (f *fakeEntrySource) List(ctx context.Context, userID uint64, dayKey string) ([]reading.Entry, error) {
	return f.entries, f.err
}

type fakeStatsSink struct {
	userID uint64
	report json.RawMessage
	err    error
}

func (f *fakeStatsSink) Put(ctx context.Context, userID uint64, report json.RawMessage) error {
	if f.err != nil {
		return f.err
	}
	f.userID = userID
	f.report = report
	return nil
}

func TestRecacheStoresReport(t *testing.T) {
	src := &fakeEntrySource{entries: []reading.Entry{
		{DayKey: "2026-01-01", Category: reading.CategoryEssay, Title: "a", Rating: 4},
		{DayKey: "2026-01-01", Category: reading.CategoryStory, Title: "b", Rating: 5},
	}}
	sink := &fakeStatsSink{}
	w := &Worker{Entries: src, Stats: sink, Timezone: "UTC", Log: zerolog.Nop()}

	require.NoError(t, w.recache(context.Background(), 42))
	assert.Equal(t, uint64(42), sink.userID)

	var report reading.StatsReport
	require.NoError(t, json.Unmarshal(sink.report, &report))
	assert.Equal(t, 2, report.CountsByType[reading.CategoryEssay]+report.CountsByType[reading.CategoryStory])
	assert.Equal(t, []string{"2026"}, report.AvailableYears)
}

func TestRecachePropagatesReadFailure(t *testing.T) {
	src := &fakeEntrySource{err: errors.New("db down")}
	sink := &fakeStatsSink{}
	w := &Worker{Entries: src, Stats: sink, Timezone: "UTC", Log: zerolog.Nop()}

	err := w.recache(context.Background(), 1)
	require.Error(t, err)
	assert.Nil(t, sink.report, "nothing cached on failure")
}

func TestRecachePropagatesWriteFailure(t *testing.T) {
	src := &fakeEntrySource{}
	sink := &fakeStatsSink{err: errors.New("disk full")}
	w := &Worker{Entries: src, Stats: sink, Timezone: "UTC", Log: zerolog.Nop()}

	assert.Error(t, w.recache(context.Background(), 1))
}
