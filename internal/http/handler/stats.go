package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"readlog/internal/auth"
	"readlog/internal/reading"
	"readlog/internal/store"
)

type StatsHandler struct {
	DB      *gorm.DB
	Entries *store.EntryRepo
	Stats   *store.StatsRepo

	// Fallback timezone for users without one set.
	Timezone string
}

// Get computes the stats report live over the user's entries.
// ?year=YYYY scopes everything except availableYears.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	scopeYear := strings.TrimSpace(r.URL.Query().Get("year"))

	today, err := reading.Today(h.userTimezone(uid))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	entries, err := h.Entries.List(r.Context(), uid, "")
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	report, err := reading.ComputeStats(entries, scopeYear, today)
	if errors.Is(err, reading.ErrInvalidYear) {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// GetCached serves the worker-maintained snapshot, 404 when none has been
// computed yet.
func (h *StatsHandler) GetCached(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	cache, err := h.Stats.Get(r.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no cached stats", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"computed_at": cache.ComputedAt,
		"report":      json.RawMessage(cache.Report),
	})
}

// Day reports completion for one day: none, partial, or complete.
func (h *StatsHandler) Day(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	dayKey := strings.TrimSpace(r.URL.Query().Get("day"))
	if _, err := reading.ParseDayKey(dayKey); err != nil {
		http.Error(w, "invalid day", http.StatusBadRequest)
		return
	}

	entries, err := h.Entries.List(r.Context(), uid, dayKey)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"day":        dayKey,
		"completion": reading.DayCompletion(entries, dayKey),
	})
}

func (h *StatsHandler) userTimezone(uid uint64) string {
	var u auth.User
	if err := h.DB.Where("id = ?", uid).First(&u).Error; err == nil && u.Timezone != "" {
		return u.Timezone
	}
	return h.Timezone
}
