package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler re-runs a task on a cron spec. A run that is still going when
// the next one is due makes the next one skip.
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	l := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
	}
}

// Schedule replaces the current task. spec is a five-field cron line or a
// descriptor such as "@every 1h".
func (s *Scheduler) Schedule(spec string, task func()) error {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	id, err := s.cron.AddFunc(spec, task)
	if err != nil {
		return fmt.Errorf("failed to add cron job %q: %w", spec, err)
	}
	s.entryID = id
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop returns a context that is done once running tasks have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
