package db

import (
	"fmt"

	"readlog/internal/auth"
	"readlog/internal/jobs"
	"readlog/internal/reading"
	"readlog/internal/store"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&reading.Entry{},
		&reading.Topic{},
		&reading.TopicItem{},
		&store.StatsCache{},
		&jobs.Job{},
		&auth.User{},
	); err != nil {
		return err
	}

	// The natural key: one entry per user, day, and category. Every upsert
	// targets this index.
	if err := gdb.Exec(`create unique index if not exists uq_entries_user_day_category on entries(user_id, day_key, category);`).Error; err != nil {
		return err
	}

	// Client-generated ids are the sync merge keys; the server stores them
	// as first-class unique columns scoped to the owning parent.
	if err := gdb.Exec(`create unique index if not exists uq_topics_user_client on topics(user_id, client_id);`).Error; err != nil {
		return err
	}
	if err := gdb.Exec(`create unique index if not exists uq_items_topic_client on topic_items(topic_id, client_id);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_entries_user_day on entries(user_id, day_key desc);`,
		`create index if not exists idx_entries_user_updated on entries(user_id, updated_at desc);`,
		`create index if not exists idx_items_topic_finished on topic_items(topic_id, finished, finished_at desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
