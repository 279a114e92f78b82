// Package scheduler closes the week automatically on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"vontta/internal/archive"
)

// Closer is the week-closing operation, run as actorID.
type Closer func(ctx context.Context, actorID string) (archive.CloseResult, error)

// Scheduler wraps a seconds-aware cron in the team time zone.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	close   Closer
	actorID string
	logger  *slog.Logger
	timeout time.Duration
}

func New(loc *time.Location, closer Closer, actorID string, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		loc:     loc,
		close:   closer,
		actorID: actorID,
		logger:  logger,
		timeout: 2 * time.Minute,
	}
}

// ScheduleClose registers the closing job. spec has six fields, seconds
// first.
func (s *Scheduler) ScheduleClose(spec string) (cron.EntryID, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty close schedule")
	}
	id, err := s.cron.AddFunc(spec, s.runClose)
	if err != nil {
		return 0, fmt.Errorf("schedule week close %q: %w", spec, err)
	}
	return id, nil
}

// Reschedule replaces every registered job with spec. An empty spec leaves
// nothing scheduled.
func (s *Scheduler) Reschedule(spec string) error {
	for _, e := range s.cron.Entries() {
		s.cron.Remove(e.ID)
	}
	if spec == "" {
		return nil
	}
	_, err := s.ScheduleClose(spec)
	return err
}

func (s *Scheduler) runClose() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	res, err := s.close(ctx, s.actorID)
	if err != nil {
		s.logger.Error("scheduled week close failed", "error", err)
		return
	}
	s.logger.Info("scheduled week close", "history_id", res.HistoryID, "fully_closed", res.FullyClosed())
}

// Next reports when the next job runs, zero when nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		at := e.Next
		// Entries only get Next once the cron is running.
		if at.IsZero() {
			at = e.Schedule.Next(time.Now().In(s.loc))
		}
		if next.IsZero() || at.Before(next) {
			next = at
		}
	}
	return next
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running close to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
