package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsCache is a per-user snapshot of the computed statistics report,
// refreshed by the background worker after bulk entry writes so the web
// client never pays for a streak walk on the request path.
type StatsCache struct {
	UserID     uint64          `gorm:"primaryKey"`
	Report     json.RawMessage `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	ComputedAt time.Time       `gorm:"not null;default:now()"`
}

// StatsRepo persists cached stats reports.
type StatsRepo struct {
	DB *gorm.DB
}

// Get returns the cached report for a user, ErrNotFound when none exists.
func (r *StatsRepo) Get(ctx context.Context, userID uint64) (*StatsCache, error) {
	var c StatsCache
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Put stores (or replaces) the cached report for a user.
func (r *StatsRepo) Put(ctx context.Context, userID uint64, report json.RawMessage) error {
	c := StatsCache{
		UserID:     userID,
		Report:     report,
		ComputedAt: time.Now(),
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"report", "computed_at"}),
	}).Create(&c).Error
}
