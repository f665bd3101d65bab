package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"readlog/internal/auth"
	"readlog/internal/jobs"
	"readlog/internal/reading"
	"readlog/internal/store"
)

type EntryHandler struct {
	Repo *store.EntryRepo
	Jobs *jobs.Repo
	Log  zerolog.Logger
}

// List responds with {"entries": [...]}, optionally filtered by ?day=.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	dayKey := strings.TrimSpace(r.URL.Query().Get("day"))
	if dayKey != "" {
		if _, err := reading.ParseDayKey(dayKey); err != nil {
			http.Error(w, "invalid day", http.StatusBadRequest)
			return
		}
	}

	entries, err := h.Repo.List(r.Context(), uid, dayKey)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []reading.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": entries})
}

// Upsert creates or overwrites the entry for (day_key, category).
func (h *EntryHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var e reading.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if e.Rating == 0 {
		e.Rating = 5 // absent rating defaults to 5
	}
	if err := reading.NormalizeEntry(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := h.Repo.Upsert(r.Context(), uid, e)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entry": out})
}

type bulkEntriesReq struct {
	Entries []reading.Entry `json:"entries"`
}

// BulkUpsert applies a batch of upserts with per-item failure isolation and
// enqueues a stats recache. Used by the sync client's upload.
func (h *EntryHandler) BulkUpsert(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req bulkEntriesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	upserted, skipped, failed := 0, 0, 0
	firstErr := ""
	for _, e := range req.Entries {
		if e.Rating == 0 {
			e.Rating = 5
		}
		if err := reading.NormalizeEntry(&e); err != nil {
			skipped++
			continue
		}
		if _, err := h.Repo.Upsert(r.Context(), uid, e); err != nil {
			failed++
			if firstErr == "" {
				firstErr = err.Error()
			}
			h.Log.Warn().Err(err).Uint64("user", uid).Str("day", e.DayKey).Msg("bulk upsert item failed")
			continue
		}
		upserted++
	}

	if upserted > 0 {
		if err := h.Jobs.EnqueueStatsRecache(uid); err != nil {
			h.Log.Warn().Err(err).Uint64("user", uid).Msg("failed to enqueue stats recache")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"upserted":    upserted,
		"skipped":     skipped,
		"failed":      failed,
		"total":       len(req.Entries),
		"first_error": firstErr,
	})
}

// Delete removes the entry for the natural key; absent entries delete
// successfully.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	dayKey := chi.URLParam(r, "dayKey")
	if _, err := reading.ParseDayKey(dayKey); err != nil {
		http.Error(w, "invalid day", http.StatusBadRequest)
		return
	}
	category, err := reading.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(r.Context(), uid, dayKey, category); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}
