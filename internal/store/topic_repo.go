package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"readlog/internal/reading"
)

// TopicRepo persists curriculum topics and their items. The client-assigned
// id is the idempotency key for every write: repeating a create or item add
// updates the existing row instead of duplicating it.
type TopicRepo struct {
	DB *gorm.DB
}

// ListWithItems returns a user's topics with items in presentation order
// (unfinished first, then most recently finished).
func (r *TopicRepo) ListWithItems(ctx context.Context, userID uint64) ([]reading.Topic, error) {
	var topics []reading.Topic
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Preload("Items").
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	for i := range topics {
		reading.SortItems(topics[i].Items)
	}
	return topics, nil
}

// UpsertByClientID creates the topic or renames the existing one with the
// same client id.
func (r *TopicRepo) UpsertByClientID(ctx context.Context, userID uint64, name, clientID string) (*reading.Topic, error) {
	now := time.Now()
	t := reading.Topic{
		UserID:    userID,
		ClientID:  clientID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Omit("Items").Create(&t).Error
	if err != nil {
		return nil, err
	}
	return r.getTopic(ctx, userID, clientID)
}

// UpsertItemByClientID adds the item under the topic identified by its
// client id, or overwrites the existing item with the same client id.
func (r *TopicRepo) UpsertItemByClientID(ctx context.Context, userID uint64, topicClientID string, item reading.TopicItem) (*reading.TopicItem, error) {
	topic, err := r.getTopic(ctx, userID, topicClientID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item.ID = 0
	item.TopicID = topic.ID
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if !item.Finished {
		item.FinishedAt = nil
	} else if item.FinishedAt == nil {
		item.FinishedAt = &now
	}

	err = r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "topic_id"}, {Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "url", "category", "author", "notes", "tags", "word_count",
			"finished", "finished_at", "updated_at",
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, err
	}
	return r.getItem(ctx, topic.ID, item.ClientID)
}

// ToggleItemFinished flips the finished flag, stamping finished_at on the
// false→true transition and clearing it on the way back.
func (r *TopicRepo) ToggleItemFinished(ctx context.Context, userID uint64, topicClientID, itemClientID string) (*reading.TopicItem, error) {
	topic, err := r.getTopic(ctx, userID, topicClientID)
	if err != nil {
		return nil, err
	}
	item, err := r.getItem(ctx, topic.ID, itemClientID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item.Finished = !item.Finished
	item.UpdatedAt = now
	if item.Finished {
		item.FinishedAt = &now
	} else {
		item.FinishedAt = nil
	}

	err = r.DB.WithContext(ctx).Model(&reading.TopicItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"finished":    item.Finished,
			"finished_at": item.FinishedAt,
			"updated_at":  item.UpdatedAt,
		}).Error
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes the item. A missing topic or item is a successful
// no-op: deleting something already gone satisfies the caller's intent.
func (r *TopicRepo) DeleteItem(ctx context.Context, userID uint64, topicClientID, itemClientID string) error {
	topic, err := r.getTopic(ctx, userID, topicClientID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).
		Where("topic_id = ? AND client_id = ?", topic.ID, itemClientID).
		Delete(&reading.TopicItem{}).Error
}

// DeleteTopic removes a topic and, via the FK cascade, its items.
func (r *TopicRepo) DeleteTopic(ctx context.Context, userID uint64, topicClientID string) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND client_id = ?", userID, topicClientID).
		Delete(&reading.Topic{}).Error
}

func (r *TopicRepo) getTopic(ctx context.Context, userID uint64, clientID string) (*reading.Topic, error) {
	var t reading.Topic
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TopicRepo) getItem(ctx context.Context, topicID uint64, clientID string) (*reading.TopicItem, error) {
	var it reading.TopicItem
	err := r.DB.WithContext(ctx).
		Where("topic_id = ? AND client_id = ?", topicID, clientID).
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}
