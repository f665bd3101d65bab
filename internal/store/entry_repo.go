package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"readlog/internal/reading"
)

var ErrNotFound = errors.New("not found")

// EntryRepo persists reading entries. All writes funnel through Upsert so
// the (user_id, day_key, category) natural key stays unique no matter how
// often a client re-sends the same record.
type EntryRepo struct {
	DB *gorm.DB
}

// List returns a user's entries, optionally restricted to one day,
// newest day first.
func (r *EntryRepo) List(ctx context.Context, userID uint64, dayKey string) ([]reading.Entry, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if dayKey != "" {
		q = q.Where("day_key = ?", dayKey)
	}
	var entries []reading.Entry
	if err := q.Order("day_key desc, category asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Upsert inserts the entry or, when the natural key already exists,
// overwrites its content. created_at is preserved on conflict, updated_at
// is bumped.
func (r *EntryRepo) Upsert(ctx context.Context, userID uint64, e reading.Entry) (*reading.Entry, error) {
	now := time.Now()
	e.ID = 0
	e.UserID = userID
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Tags == nil {
		e.Tags = []string{}
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day_key"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "author", "url", "notes", "tags", "rating", "word_count", "updated_at",
		}),
	}).Create(&e).Error
	if err != nil {
		return nil, err
	}

	var out reading.Entry
	err = r.DB.WithContext(ctx).
		Where("user_id = ? AND day_key = ? AND category = ?", userID, e.DayKey, e.Category).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the entry for the natural key. Deleting an absent entry is
// a successful no-op.
func (r *EntryRepo) Delete(ctx context.Context, userID uint64, dayKey string, category reading.Category) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND day_key = ? AND category = ?", userID, dayKey, category).
		Delete(&reading.Entry{}).Error
}
