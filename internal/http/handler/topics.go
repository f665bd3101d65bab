package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"readlog/internal/auth"
	"readlog/internal/reading"
	"readlog/internal/store"
)

type TopicHandler struct {
	Repo *store.TopicRepo
}

// List responds with {"topics": [...]}, items embedded in presentation
// order.
func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	topics, err := h.Repo.ListWithItems(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if topics == nil {
		topics = []reading.Topic{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"topics": topics})
}

type createTopicReq struct {
	Name     string `json:"name"`
	ClientID string `json:"client_id"`
}

// Create upserts a topic by its client id: re-sending the same create is a
// rename at worst, never a duplicate.
func (h *TopicHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createTopicReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.Name == "" || req.ClientID == "" {
		http.Error(w, "name and client_id required", http.StatusBadRequest)
		return
	}

	topic, err := h.Repo.UpsertByClientID(r.Context(), uid, req.Name, req.ClientID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"topic": topic})
}

// AddItem upserts an item by client id under the topic named in the path.
func (h *TopicHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	topicID := chi.URLParam(r, "topicID")

	var item reading.TopicItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	item.ClientID = strings.TrimSpace(item.ClientID)
	item.Title = strings.TrimSpace(item.Title)
	if item.ClientID == "" || item.Title == "" {
		http.Error(w, "client_id and title required", http.StatusBadRequest)
		return
	}
	category, err := reading.ParseCategory(string(item.Category))
	if err != nil {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}
	item.Category = category
	item.Tags = reading.NormalizeTags(item.Tags)
	if item.WordCount != nil && *item.WordCount < 0 {
		item.WordCount = nil
	}

	out, err := h.Repo.UpsertItemByClientID(r.Context(), uid, topicID, item)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "topic not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"item": out})
}

// ToggleItem flips an item's finished flag.
func (h *TopicHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	item, err := h.Repo.ToggleItemFinished(r.Context(), uid, chi.URLParam(r, "topicID"), chi.URLParam(r, "itemID"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"item": item})
}

// DeleteItem removes an item; deleting an absent item still reports ok.
func (h *TopicHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	err := h.Repo.DeleteItem(r.Context(), uid, chi.URLParam(r, "topicID"), chi.URLParam(r, "itemID"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

// DeleteTopic removes a topic and all of its items.
func (h *TopicHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	if err := h.Repo.DeleteTopic(r.Context(), uid, chi.URLParam(r, "topicID")); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}
