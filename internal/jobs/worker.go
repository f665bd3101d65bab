package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"readlog/internal/reading"
)

// EntrySource is the slice of the entry repository the worker reads.
type EntrySource interface {
	List(ctx context.Context, userID uint64, dayKey string) ([]reading.Entry, error)
}

// StatsSink stores computed reports.
type StatsSink interface {
	Put(ctx context.Context, userID uint64, report json.RawMessage) error
}

// Worker drains the job queue. Today it knows one job type: recomputing the
// per-user stats cache after bulk entry writes.
type Worker struct {
	ID       string
	Repo     *Repo
	Entries  EntrySource
	Stats    StatsSink
	Timezone string
	Log      zerolog.Logger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	log := w.Log.With().Str("component", "worker").Str("worker_id", w.ID).Logger()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				log.Error().Err(err).Msg("claim failed")
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, log, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, log zerolog.Logger, job *Job) {
	switch job.Type {
	case TypeStatsRecache:
		w.handleStatsRecache(ctx, log, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleStatsRecache(ctx context.Context, log zerolog.Logger, job *Job) {
	if err := w.recache(ctx, job.UserID); err != nil {
		w.retry(job, err.Error())
		return
	}
	log.Info().Uint64("user", job.UserID).Msg("stats cache refreshed")
	_ = w.Repo.MarkDone(job.ID)
}

// recache recomputes and stores one user's stats report.
func (w *Worker) recache(ctx context.Context, userID uint64) error {
	today, err := reading.Today(w.Timezone)
	if err != nil {
		return err
	}

	entries, err := w.Entries.List(ctx, userID, "")
	if err != nil {
		return fmt.Errorf("read entries: %w", err)
	}

	report, err := reading.ComputeStats(entries, "", today)
	if err != nil {
		return err
	}

	buf, err := json.Marshal(report)
	if err != nil {
		return err
	}
	if err := w.Stats.Put(ctx, userID, buf); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
