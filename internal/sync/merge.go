package sync

import (
	"context"
	"strings"

	"readlog/internal/reading"
)

// MergePull pulls server entries and topics and merges them into the local
// store without discarding local-only data. A record present on both sides
// is overwritten locally only when the server copy's updated_at is strictly
// newer; equal timestamps leave local untouched, which makes the operation
// converge (a repeat run with no deltas changes nothing).
func (e *Engine) MergePull(ctx context.Context) (*MergeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.runLogger("merge-pull")
	res := &MergeResult{}

	serverEntries, err := e.remote.ListEntries(ctx, "")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	serverTopics, err := e.remote.ListTopics(ctx)
	if err != nil {
		return nil, err
	}

	local, err := e.local.ReadAllEntries()
	if err != nil {
		return nil, err
	}
	merged, added, updated := mergeEntries(local, serverEntries)
	res.EntriesAdded, res.EntriesUpdated = added, updated
	if err := e.local.WriteAllEntries(merged); err != nil {
		return nil, err
	}

	cur, err := e.local.ReadCurriculum()
	if err != nil {
		return nil, err
	}
	mergedCur := e.mergeTopics(&cur, serverTopics, res)
	if err := e.local.WriteCurriculum(mergedCur); err != nil {
		return nil, err
	}

	log.Info().
		Int("entries_added", res.EntriesAdded).
		Int("entries_updated", res.EntriesUpdated).
		Int("topics_added", res.TopicsAdded).
		Int("topics_updated", res.TopicsUpdated).
		Int("items_added", res.ItemsAdded).
		Int("items_updated", res.ItemsUpdated).
		Msg("merge-pull complete")
	return res, nil
}

// mergeEntries folds server entries into the local set by natural key.
// Local-only entries are never removed.
func mergeEntries(local, server []reading.Entry) (out []reading.Entry, added, updated int) {
	index := make(map[reading.EntryKey]int, len(local))
	out = make([]reading.Entry, len(local))
	copy(out, local)
	for i, le := range out {
		index[le.Key()] = i
	}

	for _, se := range server {
		if err := reading.NormalizeEntry(&se); err != nil {
			continue
		}
		i, ok := index[se.Key()]
		if !ok {
			index[se.Key()] = len(out)
			out = append(out, se)
			added++
			continue
		}
		if se.UpdatedAt.After(out[i].UpdatedAt) {
			out[i] = se
			updated++
		}
	}
	return out, added, updated
}

func (e *Engine) mergeTopics(cur *reading.Curriculum, server []reading.Topic, res *MergeResult) reading.Curriculum {
	index := make(map[string]int, len(cur.Topics))
	out := make([]reading.Topic, len(cur.Topics))
	copy(out, cur.Topics)
	for i, t := range out {
		index[t.ClientID] = i
	}

	for _, st := range server {
		if strings.TrimSpace(st.ClientID) == "" {
			continue
		}
		st.Items = usableItems(st.Items)

		i, ok := index[st.ClientID]
		if !ok {
			index[st.ClientID] = len(out)
			out = append(out, st)
			res.TopicsAdded++
			continue
		}

		lt := out[i]
		if st.UpdatedAt.After(lt.UpdatedAt) {
			lt.Name = st.Name
			lt.UpdatedAt = st.UpdatedAt
			res.TopicsUpdated++
		}
		lt.Items = mergeItems(lt.Items, st.Items, res)
		out[i] = lt
	}
	return reading.Curriculum{Topics: out}
}

// mergeItems applies the same newest-wins rule per item, matched by stable
// client id. Local-only items are preserved.
func mergeItems(local, server []reading.TopicItem, res *MergeResult) []reading.TopicItem {
	index := make(map[string]int, len(local))
	out := make([]reading.TopicItem, len(local))
	copy(out, local)
	for i, it := range out {
		index[it.ClientID] = i
	}

	for _, si := range server {
		i, ok := index[si.ClientID]
		if !ok {
			index[si.ClientID] = len(out)
			out = append(out, si)
			res.ItemsAdded++
			continue
		}
		if si.UpdatedAt.After(out[i].UpdatedAt) {
			out[i] = si
			res.ItemsUpdated++
		}
	}
	reading.SortItems(out)
	return out
}
