// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/train-station/internal/metrics"
)

// TokenPurger deletes refresh tokens that can no longer be used.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

const tokenCleanupJob = "token_cleanup"

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
}

// NewScheduler builds a UTC cron runner whose panics are recovered and
// reported through log.
func NewScheduler(log logrus.FieldLogger) *Scheduler {
	log = log.WithField("component", "scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// AddTokenCleanup schedules purging of expired and revoked refresh tokens.
func (s *Scheduler) AddTokenCleanup(spec string, tokens TokenPurger) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := PurgeTokens(ctx, tokens, time.Now().UTC())
		metrics.RecordJobRun(tokenCleanupJob, err == nil)
		if err != nil {
			s.log.WithError(err).WithField("job", tokenCleanupJob).Error("job failed")
			return
		}
		s.log.WithFields(logrus.Fields{"job": tokenCleanupJob, "purged": n}).Info("job finished")
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", tokenCleanupJob, spec, err)
	}
	return nil
}

// PurgeTokens removes every token that expired or was revoked before now.
func PurgeTokens(ctx context.Context, tokens TokenPurger, now time.Time) (int64, error) {
	return tokens.PurgeExpired(ctx, now)
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
