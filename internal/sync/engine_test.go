package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readlog/internal/reading"
)

// fakeLocal is an in-memory LocalStore with optional write failures.
type fakeLocal struct {
	entries    []reading.Entry
	curriculum reading.Curriculum

	failEntriesWrite    bool
	failCurriculumWrite bool
}

func (f *fakeLocal) ReadAllEntries() ([]reading.Entry, error) { return f.entries, nil }

func (f *fakeLocal) WriteAllEntries(entries []reading.Entry) error {
	if f.failEntriesWrite {
		return errors.New("disk full")
	}
	f.entries = entries
	return nil
}

func (f *fakeLocal) ReadCurriculum() (reading.Curriculum, error) { return f.curriculum, nil }

func (f *fakeLocal) WriteCurriculum(cur reading.Curriculum) error {
	if f.failCurriculumWrite {
		return errors.New("disk full")
	}
	f.curriculum = cur
	return nil
}

// fakeRemote is an in-memory RemoteStore that stores upserts by natural /
// client key, so repeated uploads leave the record count unchanged.
type fakeRemote struct {
	entries map[reading.EntryKey]reading.Entry
	topics  map[string]*reading.Topic

	listEntries []reading.Entry
	listTopics  []reading.Topic

	failEntryKeys map[reading.EntryKey]bool
	failTopicIDs  map[string]bool
	listErr       error

	upsertCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		entries:       map[reading.EntryKey]reading.Entry{},
		topics:        map[string]*reading.Topic{},
		failEntryKeys: map[reading.EntryKey]bool{},
		failTopicIDs:  map[string]bool{},
	}
}

func (f *fakeRemote) ListEntries(ctx context.Context, dayKey string) ([]reading.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listEntries, nil
}

func (f *fakeRemote) UpsertEntry(ctx context.Context, e reading.Entry) (*reading.Entry, error) {
	f.upsertCalls++
	if f.failEntryKeys[e.Key()] {
		return nil, errors.New("upstream rejected entry")
	}
	f.entries[e.Key()] = e
	return &e, nil
}

func (f *fakeRemote) ListTopics(ctx context.Context) ([]reading.Topic, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listTopics, nil
}

func (f *fakeRemote) CreateTopic(ctx context.Context, name, clientID string) (*reading.Topic, error) {
	if f.failTopicIDs[clientID] {
		return nil, errors.New("upstream rejected topic")
	}
	t, ok := f.topics[clientID]
	if !ok {
		t = &reading.Topic{ClientID: clientID}
		f.topics[clientID] = t
	}
	t.Name = name
	return t, nil
}

func (f *fakeRemote) AddTopicItem(ctx context.Context, topicID string, item reading.TopicItem) (*reading.TopicItem, error) {
	if f.failTopicIDs[topicID] {
		return nil, errors.New("upstream rejected item")
	}
	t, ok := f.topics[topicID]
	if !ok {
		return nil, errors.New("unknown topic")
	}
	for i := range t.Items {
		if t.Items[i].ClientID == item.ClientID {
			t.Items[i] = item
			return &item, nil
		}
	}
	t.Items = append(t.Items, item)
	return &item, nil
}

func newEngine(local *fakeLocal, remote *fakeRemote) *Engine {
	return NewEngine(local, remote, zerolog.Nop())
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func serverEntry(day string, cat reading.Category, title string, updated string) reading.Entry {
	return reading.Entry{
		DayKey:    day,
		Category:  cat,
		Title:     title,
		Rating:    5,
		UpdatedAt: at(updated),
	}
}

func TestHydrateOverwritesLocalAndDropsUnusable(t *testing.T) {
	local := &fakeLocal{
		entries: []reading.Entry{
			{DayKey: "2026-05-05", Category: reading.CategoryPoem, Title: "local only"},
		},
	}
	remote := newFakeRemote()
	remote.listEntries = []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "keep", "2026-01-01T10:00:00Z"),
		{DayKey: "2026-01-02", Category: reading.CategoryStory}, // no title
		{DayKey: "", Category: reading.CategoryPoem, Title: "no day"},
	}
	remote.listTopics = []reading.Topic{
		{ClientID: "top-1", Name: "kept", Items: []reading.TopicItem{
			{ClientID: "itm-1", Title: "ok", Category: reading.CategoryStory},
			{Title: "no client id", Category: reading.CategoryStory},
		}},
		{Name: "no client id"},
	}

	res, err := newEngine(local, remote).Hydrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entries)
	assert.Equal(t, 2, res.DroppedEntries)
	assert.Equal(t, 1, res.Topics)
	assert.Equal(t, 1, res.DroppedTopics)

	// destructive: the local-only entry is gone
	require.Len(t, local.entries, 1)
	assert.Equal(t, "keep", local.entries[0].Title)
	require.Len(t, local.curriculum.Topics, 1)
	assert.Len(t, local.curriculum.Topics[0].Items, 1)
}

func TestHydrateFetchFailureLeavesLocalUntouched(t *testing.T) {
	local := &fakeLocal{
		entries: []reading.Entry{{DayKey: "2026-05-05", Category: reading.CategoryPoem, Title: "precious"}},
	}
	remote := newFakeRemote()
	remote.listErr = errors.New("network down")

	_, err := newEngine(local, remote).Hydrate(context.Background())
	require.Error(t, err)
	require.Len(t, local.entries, 1)
	assert.Equal(t, "precious", local.entries[0].Title)
}

func TestHydrateSecondReplaceFailureKeepsFirst(t *testing.T) {
	local := &fakeLocal{failCurriculumWrite: true}
	remote := newFakeRemote()
	remote.listEntries = []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "a", "2026-01-01T10:00:00Z"),
	}

	res, err := newEngine(local, remote).Hydrate(context.Background())
	require.Error(t, err)
	// entries replace already applied, curriculum not
	assert.Equal(t, 1, res.Entries)
	assert.Equal(t, 0, res.Topics)
	assert.Len(t, local.entries, 1)
}

func TestUploadEntriesSkipsWithoutAborting(t *testing.T) {
	local := &fakeLocal{entries: []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "a", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-02", reading.CategoryEssay, "b", "2026-01-01T10:00:00Z"),
		{DayKey: "2026-01-03", Category: reading.CategoryEssay}, // missing title
		serverEntry("2026-01-04", reading.CategoryEssay, "d", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-05", reading.CategoryEssay, "e", "2026-01-01T10:00:00Z"),
	}}
	remote := newFakeRemote()

	var reports []EntryUploadResult
	res, err := newEngine(local, remote).UploadEntries(context.Background(), func(p EntryUploadResult) {
		reports = append(reports, p)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Uploaded)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 5, res.Total)
	assert.Len(t, reports, 5, "progress after every item")
	assert.Len(t, remote.entries, 4)
}

func TestUploadEntriesIdempotent(t *testing.T) {
	local := &fakeLocal{entries: []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "a", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-01", reading.CategoryStory, "b", "2026-01-01T10:00:00Z"),
	}}
	remote := newFakeRemote()
	eng := newEngine(local, remote)

	_, err := eng.UploadEntries(context.Background(), nil)
	require.NoError(t, err)
	first := len(remote.entries)

	res, err := eng.UploadEntries(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, first, len(remote.entries), "second run adds no server records")
}

func TestUploadEntriesFailureIsolation(t *testing.T) {
	local := &fakeLocal{entries: []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "a", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-02", reading.CategoryEssay, "b", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-03", reading.CategoryEssay, "c", "2026-01-01T10:00:00Z"),
	}}
	remote := newFakeRemote()
	remote.failEntryKeys[reading.EntryKey{DayKey: "2026-01-02", Category: reading.CategoryEssay}] = true

	res, err := newEngine(local, remote).UploadEntries(context.Background(), nil)
	require.NoError(t, err, "per-item failures never abort the batch")
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.FirstError, "rejected")
}

func TestUploadEntriesCancellation(t *testing.T) {
	local := &fakeLocal{entries: []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "a", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-02", reading.CategoryEssay, "b", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-03", reading.CategoryEssay, "c", "2026-01-01T10:00:00Z"),
	}}
	remote := newFakeRemote()

	ctx, cancel := context.WithCancel(context.Background())
	res, err := newEngine(local, remote).UploadEntries(ctx, func(p EntryUploadResult) {
		if p.Uploaded == 1 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Uploaded, "partial upload is expected on cancellation")
	assert.Len(t, remote.entries, 1)
}

func TestUploadCurriculum(t *testing.T) {
	local := &fakeLocal{curriculum: reading.Curriculum{Topics: []reading.Topic{
		{ClientID: "top-1", Name: "stories", Items: []reading.TopicItem{
			{ClientID: "itm-1", Title: "The Overcoat", Category: reading.CategoryStory},
			{Title: "no client id", Category: reading.CategoryStory},
			{ClientID: "itm-3", Title: "bad category", Category: "screenplay"},
		}},
		{Name: "missing client id"},
		{ClientID: "top-3", Name: "poems"},
	}}}
	remote := newFakeRemote()

	res, err := newEngine(local, remote).UploadCurriculum(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TopicsUpserted)
	assert.Equal(t, 1, res.ItemsUpserted)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 3, res.TotalTopics)
	require.Contains(t, remote.topics, "top-1")
	assert.Len(t, remote.topics["top-1"].Items, 1)
}

func TestUploadCurriculumTopicFailureSkipsItsItemsOnly(t *testing.T) {
	local := &fakeLocal{curriculum: reading.Curriculum{Topics: []reading.Topic{
		{ClientID: "top-bad", Name: "cursed", Items: []reading.TopicItem{
			{ClientID: "itm-1", Title: "never sent", Category: reading.CategoryPoem},
		}},
		{ClientID: "top-ok", Name: "fine", Items: []reading.TopicItem{
			{ClientID: "itm-2", Title: "sent", Category: reading.CategoryPoem},
		}},
	}}}
	remote := newFakeRemote()
	remote.failTopicIDs["top-bad"] = true

	res, err := newEngine(local, remote).UploadCurriculum(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TopicsUpserted)
	assert.Equal(t, 1, res.ItemsUpserted)
	assert.Equal(t, 1, res.Failed)
	assert.NotContains(t, remote.topics, "top-bad")
	assert.Contains(t, remote.topics, "top-ok")
}

func TestMergePullLastWriterWins(t *testing.T) {
	local := &fakeLocal{entries: []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "local newer", "2026-01-02T10:00:00Z"),
		serverEntry("2026-01-05", reading.CategoryEssay, "local older", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-06", reading.CategoryEssay, "local equal", "2026-01-01T10:00:00Z"),
	}}
	remote := newFakeRemote()
	remote.listEntries = []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "server older", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-05", reading.CategoryEssay, "server newer", "2026-01-02T10:00:00Z"),
		serverEntry("2026-01-06", reading.CategoryEssay, "server equal", "2026-01-01T10:00:00Z"),
		serverEntry("2026-01-07", reading.CategoryEssay, "server only", "2026-01-01T10:00:00Z"),
	}

	res, err := newEngine(local, remote).MergePull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntriesAdded)
	assert.Equal(t, 1, res.EntriesUpdated)

	byKey := map[reading.EntryKey]reading.Entry{}
	for _, e := range local.entries {
		byKey[e.Key()] = e
	}
	assert.Equal(t, "local newer", byKey[reading.EntryKey{DayKey: "2026-01-01", Category: reading.CategoryEssay}].Title)
	assert.Equal(t, "server newer", byKey[reading.EntryKey{DayKey: "2026-01-05", Category: reading.CategoryEssay}].Title)
	// equal timestamps: server must be strictly newer to overwrite
	assert.Equal(t, "local equal", byKey[reading.EntryKey{DayKey: "2026-01-06", Category: reading.CategoryEssay}].Title)
	assert.Equal(t, "server only", byKey[reading.EntryKey{DayKey: "2026-01-07", Category: reading.CategoryEssay}].Title)
	assert.Len(t, local.entries, 4, "local-only entries are never removed")
}

func TestMergePullConverges(t *testing.T) {
	local := &fakeLocal{entries: []reading.Entry{
		serverEntry("2026-02-01", reading.CategoryPoem, "local only", "2026-01-01T10:00:00Z"),
	}}
	remote := newFakeRemote()
	remote.listEntries = []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "a", "2026-01-01T10:00:00Z"),
	}
	remote.listTopics = []reading.Topic{
		{ClientID: "top-1", Name: "n", UpdatedAt: at("2026-01-01T10:00:00Z"), Items: []reading.TopicItem{
			{ClientID: "itm-1", Title: "t", Category: reading.CategoryPoem, UpdatedAt: at("2026-01-01T10:00:00Z")},
		}},
	}
	eng := newEngine(local, remote)

	first, err := eng.MergePull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.EntriesAdded)
	assert.Equal(t, 1, first.TopicsAdded)
	assert.Equal(t, 0, first.ItemsAdded, "items of a freshly added topic arrive with it")

	second, err := eng.MergePull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &MergeResult{}, second, "no-op delta yields zero changes")
}

func TestMergePullTopicsRecursive(t *testing.T) {
	local := &fakeLocal{curriculum: reading.Curriculum{Topics: []reading.Topic{
		{ClientID: "top-1", Name: "old name", UpdatedAt: at("2026-01-01T10:00:00Z"), Items: []reading.TopicItem{
			{ClientID: "itm-1", Title: "local newer", Category: reading.CategoryStory, UpdatedAt: at("2026-01-03T10:00:00Z")},
			{ClientID: "itm-local", Title: "local only", Category: reading.CategoryStory, UpdatedAt: at("2026-01-01T10:00:00Z")},
		}},
	}}}
	remote := newFakeRemote()
	remote.listTopics = []reading.Topic{
		{ClientID: "top-1", Name: "new name", UpdatedAt: at("2026-01-02T10:00:00Z"), Items: []reading.TopicItem{
			{ClientID: "itm-1", Title: "server older", Category: reading.CategoryStory, UpdatedAt: at("2026-01-02T10:00:00Z")},
			{ClientID: "itm-2", Title: "server new", Category: reading.CategoryStory, UpdatedAt: at("2026-01-02T10:00:00Z")},
		}},
		{ClientID: "top-2", Name: "brand new", UpdatedAt: at("2026-01-02T10:00:00Z")},
	}

	res, err := newEngine(local, remote).MergePull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.TopicsAdded)
	assert.Equal(t, 1, res.TopicsUpdated)
	assert.Equal(t, 1, res.ItemsAdded)
	assert.Equal(t, 0, res.ItemsUpdated)

	var top1 *reading.Topic
	for i := range local.curriculum.Topics {
		if local.curriculum.Topics[i].ClientID == "top-1" {
			top1 = &local.curriculum.Topics[i]
		}
	}
	require.NotNil(t, top1)
	assert.Equal(t, "new name", top1.Name)
	require.Len(t, top1.Items, 3)

	titles := map[string]string{}
	for _, it := range top1.Items {
		titles[it.ClientID] = it.Title
	}
	assert.Equal(t, "local newer", titles["itm-1"])
	assert.Equal(t, "local only", titles["itm-local"])
	assert.Equal(t, "server new", titles["itm-2"])
}

func TestMergePullKeepsKeysUnique(t *testing.T) {
	local := &fakeLocal{entries: []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "a", "2026-01-01T10:00:00Z"),
	}}
	remote := newFakeRemote()
	remote.listEntries = []reading.Entry{
		serverEntry("2026-01-01", reading.CategoryEssay, "b", "2026-02-01T10:00:00Z"),
		serverEntry("2026-01-01", reading.CategoryEssay, "c", "2026-03-01T10:00:00Z"),
	}

	_, err := newEngine(local, remote).MergePull(context.Background())
	require.NoError(t, err)

	seen := map[reading.EntryKey]int{}
	for _, e := range local.entries {
		seen[e.Key()]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, "duplicate key %v", k)
	}
}
