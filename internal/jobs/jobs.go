// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// NotificationPruner deletes read notifications older than a retention window.
type NotificationPruner interface {
	PruneRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{log}))),
		log:  log,
	}
}

// AddNotificationPrune registers the prune job on schedule, e.g. "@daily" or "0 3 * * *".
func (s *Scheduler) AddNotificationPrune(schedule string, pruner NotificationPruner, retention time.Duration) error {
	_, err := s.cron.AddFunc(schedule, func() {
		PruneNotifications(context.Background(), pruner, retention, s.log)
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func PruneNotifications(ctx context.Context, pruner NotificationPruner, retention time.Duration, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	n, err := pruner.PruneRead(ctx, retention)
	if err != nil {
		log.Error().Err(err).Msg("notification prune failed")
		return
	}
	log.Info().Int64("deleted", n).Dur("took", time.Since(start)).Msg("notification prune done")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
