package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/repository"
)

// RetentionJob purges conversation rows older than the retention window so
// the campaign never accumulates stale health data.
type RetentionJob struct {
	repo      repository.ConversationRepository
	retention time.Duration
	interval  time.Duration
	done      chan struct{}
}

func NewRetentionJob(repo repository.ConversationRepository, retention, interval time.Duration) *RetentionJob {
	return &RetentionJob{
		repo:      repo,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("retention job started")
}

func (j *RetentionJob) Stop() {
	close(j.done)
	log.Info().Msg("retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.purge()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.purge()
		}
	}
}

func (j *RetentionJob) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.repo.DeleteOlderThan(ctx, j.retention)
	if err != nil {
		log.Error().Err(err).Msg("failed to purge old conversations")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("purged old conversations")
	}
}
