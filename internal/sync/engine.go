// Package sync reconciles the device-local store with the remote server
// store. Three operations: hydrate (destructive pull), upload (idempotent
// push), and merge-pull (non-destructive pull by last-writer-wins).
//
// Conflict resolution uses wall-clock updated_at comparison. That is a
// known-lossy policy: concurrent edits inside the clock resolution window
// silently favor whichever side is processed as the server.
package sync

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"readlog/internal/reading"
)

// LocalStore is the whole-collection surface of the on-device store.
type LocalStore interface {
	ReadAllEntries() ([]reading.Entry, error)
	WriteAllEntries([]reading.Entry) error
	ReadCurriculum() (reading.Curriculum, error)
	WriteCurriculum(reading.Curriculum) error
}

// RemoteStore is the server transport surface the engine drives.
type RemoteStore interface {
	ListEntries(ctx context.Context, dayKey string) ([]reading.Entry, error)
	UpsertEntry(ctx context.Context, e reading.Entry) (*reading.Entry, error)
	ListTopics(ctx context.Context) ([]reading.Topic, error)
	CreateTopic(ctx context.Context, name, clientID string) (*reading.Topic, error)
	AddTopicItem(ctx context.Context, topicID string, item reading.TopicItem) (*reading.TopicItem, error)
}

// Engine orchestrates sync operations for one user's data. Operations are
// serialized by an in-process mutex: interleaved replace/upload/merge runs
// against the same keys could leave inconsistent partial states.
type Engine struct {
	mu     sync.Mutex
	local  LocalStore
	remote RemoteStore
	log    zerolog.Logger
}

// NewEngine builds an engine over a local and a remote store.
func NewEngine(local LocalStore, remote RemoteStore, log zerolog.Logger) *Engine {
	return &Engine{
		local:  local,
		remote: remote,
		log:    log.With().Str("component", "sync").Logger(),
	}
}

// HydrateResult reports what a replace-hydrate wrote and dropped.
type HydrateResult struct {
	Entries        int `json:"entries"`
	Topics         int `json:"topics"`
	DroppedEntries int `json:"dropped_entries"`
	DroppedTopics  int `json:"dropped_topics"`
}

// EntryUploadResult carries the running totals of an entries upload. It is
// also the progress-callback payload, reported after every item.
type EntryUploadResult struct {
	Uploaded   int    `json:"uploaded"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
	FirstError string `json:"first_error,omitempty"`
}

// CurriculumUploadResult carries the running totals of a curriculum upload.
type CurriculumUploadResult struct {
	TopicsUpserted int    `json:"topics_upserted"`
	ItemsUpserted  int    `json:"items_upserted"`
	Skipped        int    `json:"skipped"`
	Failed         int    `json:"failed"`
	TotalTopics    int    `json:"total_topics"`
	FirstError     string `json:"first_error,omitempty"`
}

// MergeResult reports what a merge-pull changed. A second run with no
// intervening edits reports all zeros.
type MergeResult struct {
	EntriesAdded   int `json:"entries_added"`
	EntriesUpdated int `json:"entries_updated"`
	TopicsAdded    int `json:"topics_added"`
	TopicsUpdated  int `json:"topics_updated"`
	ItemsAdded     int `json:"items_added"`
	ItemsUpdated   int `json:"items_updated"`
}

func (e *Engine) runLogger(op string) zerolog.Logger {
	return e.log.With().Str("op", op).Str("run_id", uuid.New().String()).Logger()
}

// Hydrate pulls the full server state and overwrites the local store with
// it. Destructive to local-only data; callers must confirm with the user
// first. Entries and curriculum are two independent atomic replaces — a
// failure in the second leaves the first applied.
func (e *Engine) Hydrate(ctx context.Context) (*HydrateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.runLogger("hydrate")
	res := &HydrateResult{}

	serverEntries, err := e.remote.ListEntries(ctx, "")
	if err != nil {
		return nil, err
	}
	entries := make([]reading.Entry, 0, len(serverEntries))
	seen := map[reading.EntryKey]struct{}{}
	for _, se := range serverEntries {
		if err := reading.NormalizeEntry(&se); err != nil {
			res.DroppedEntries++
			continue
		}
		if _, dup := seen[se.Key()]; dup {
			res.DroppedEntries++
			continue
		}
		seen[se.Key()] = struct{}{}
		entries = append(entries, se)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	serverTopics, err := e.remote.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	topics := make([]reading.Topic, 0, len(serverTopics))
	for _, st := range serverTopics {
		if strings.TrimSpace(st.ClientID) == "" {
			res.DroppedTopics++
			continue
		}
		st.Items = usableItems(st.Items)
		topics = append(topics, st)
	}

	if err := e.local.WriteAllEntries(entries); err != nil {
		return nil, err
	}
	res.Entries = len(entries)

	if err := e.local.WriteCurriculum(reading.Curriculum{Topics: topics}); err != nil {
		// entries already replaced; report that honestly
		return res, err
	}
	res.Topics = len(topics)

	log.Info().
		Int("entries", res.Entries).
		Int("topics", res.Topics).
		Int("dropped_entries", res.DroppedEntries).
		Int("dropped_topics", res.DroppedTopics).
		Msg("hydrate complete")
	return res, nil
}

func usableItems(items []reading.TopicItem) []reading.TopicItem {
	out := make([]reading.TopicItem, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.ClientID) == "" {
			continue
		}
		if c, err := reading.ParseCategory(string(it.Category)); err == nil {
			it.Category = c
		} else {
			continue
		}
		it.Title = strings.TrimSpace(it.Title)
		if it.Title == "" {
			continue
		}
		it.Tags = reading.NormalizeTags(it.Tags)
		if it.WordCount != nil && *it.WordCount < 0 {
			it.WordCount = nil
		}
		// finished_at holds iff finished
		if !it.Finished {
			it.FinishedAt = nil
		}
		out = append(out, it)
	}
	return out
}

// UploadEntries pushes every local entry to the server's idempotent
// upsert-by-(dayKey, category) endpoint. One bad record never aborts the
// batch: unusable entries are skipped, per-item transport failures are
// counted and the first message kept. progress, when non-nil, is invoked
// after every item with the running totals.
func (e *Engine) UploadEntries(ctx context.Context, progress func(EntryUploadResult)) (*EntryUploadResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.runLogger("upload-entries")

	local, err := e.local.ReadAllEntries()
	if err != nil {
		return nil, err
	}
	res := &EntryUploadResult{Total: len(local)}
	report := func() {
		if progress != nil {
			progress(*res)
		}
	}

	for _, entry := range local {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := reading.NormalizeEntry(&entry); err != nil {
			res.Skipped++
			report()
			continue
		}
		if _, err := e.remote.UpsertEntry(ctx, entry); err != nil {
			res.Failed++
			if res.FirstError == "" {
				res.FirstError = err.Error()
			}
			log.Warn().Err(err).Str("day", entry.DayKey).Str("category", string(entry.Category)).Msg("entry upload failed")
			report()
			continue
		}
		res.Uploaded++
		report()
	}

	log.Info().
		Int("uploaded", res.Uploaded).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Int("total", res.Total).
		Msg("entries upload complete")
	return res, nil
}

// UploadCurriculum pushes every local topic and item through the server's
// idempotent upsert-by-clientId endpoints. Failure isolation matches
// UploadEntries: a failing topic skips only its own items, a failing item
// only itself.
func (e *Engine) UploadCurriculum(ctx context.Context, progress func(CurriculumUploadResult)) (*CurriculumUploadResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.runLogger("upload-curriculum")

	cur, err := e.local.ReadCurriculum()
	if err != nil {
		return nil, err
	}
	res := &CurriculumUploadResult{TotalTopics: len(cur.Topics)}
	report := func() {
		if progress != nil {
			progress(*res)
		}
	}
	fail := func(err error, ev *zerolog.Event, msg string) {
		res.Failed++
		if res.FirstError == "" {
			res.FirstError = err.Error()
		}
		ev.Err(err).Msg(msg)
		report()
	}

	for _, topic := range cur.Topics {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if strings.TrimSpace(topic.ClientID) == "" || strings.TrimSpace(topic.Name) == "" {
			res.Skipped++
			report()
			continue
		}
		if _, err := e.remote.CreateTopic(ctx, topic.Name, topic.ClientID); err != nil {
			fail(err, log.Warn().Str("topic", topic.ClientID), "topic upload failed")
			continue
		}
		res.TopicsUpserted++
		report()

		for _, item := range topic.Items {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if strings.TrimSpace(item.ClientID) == "" || strings.TrimSpace(item.Title) == "" {
				res.Skipped++
				report()
				continue
			}
			if _, err := reading.ParseCategory(string(item.Category)); err != nil {
				res.Skipped++
				report()
				continue
			}
			if _, err := e.remote.AddTopicItem(ctx, topic.ClientID, item); err != nil {
				fail(err, log.Warn().Str("topic", topic.ClientID).Str("item", item.ClientID), "item upload failed")
				continue
			}
			res.ItemsUpserted++
			report()
		}
	}

	log.Info().
		Int("topics_upserted", res.TopicsUpserted).
		Int("items_upserted", res.ItemsUpserted).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Int("total_topics", res.TotalTopics).
		Msg("curriculum upload complete")
	return res, nil
}
