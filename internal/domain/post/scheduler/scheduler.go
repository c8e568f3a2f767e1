package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/vadim/poolsmm/internal/telemetry"
)

// Job is the body of a scheduled job
type Job func(ctx context.Context)

// ErrInvalidSpec is returned for cron expressions the parser rejects
var ErrInvalidSpec = errors.New("invalid schedule spec")

// JobInfo describes a registered job
type JobInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	NextRunTime *time.Time `json:"next_run_time"`
	Trigger     string     `json:"trigger"`
}

type registered struct {
	entryID  cron.EntryID
	name     string
	schedule cron.Schedule
	trigger  string
}

// Scheduler runs periodic and one-shot jobs on a single cron runner.
// Job bodies share a bounded pool of worker slots, and overlapping runs
// of the same job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	sem    *semaphore.Weighted
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*registered
	running bool
}

// New creates a stopped scheduler evaluating schedules in loc with workers job slots
func New(loc *time.Location, workers int, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if workers <= 0 {
		workers = 10
	}

	cronLogger := telemetry.CronLogger{Logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		loc:    loc,
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*registered),
	}
}

// Location returns the scheduler timezone
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// AddPeriodic registers a recurring job, replacing any job with the same id
func (s *Scheduler) AddPeriodic(id, name, spec string, fn Job) error {
	sched, err := parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSpec, spec, err)
	}
	s.add(id, name, sched, "cron["+spec+"]", fn, false)
	return nil
}

// ScheduleAt registers a job that runs once at at. A second call with the
// same id replaces the first. Times not in the future are moved to one
// second from now.
func (s *Scheduler) ScheduleAt(id, name string, at time.Time, fn Job) {
	if earliest := time.Now().Add(time.Second); at.Before(earliest) {
		at = earliest
	}
	s.add(id, name, onceSchedule{at: at}, "date["+at.In(s.loc).Format(time.RFC3339)+"]", fn, true)
}

func (s *Scheduler) add(id, name string, sched cron.Schedule, trigger string, fn Job, once bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.jobs[id]; ok {
		s.cron.Remove(prev.entryID)
	}

	reg := &registered{name: name, schedule: sched, trigger: trigger}
	reg.entryID = s.cron.Schedule(sched, cron.FuncJob(func() {
		if once {
			s.forget(id, reg)
		}
		s.run(id, fn)
	}))

	s.jobs[id] = reg
	s.logger.Debug("job registered", "job_id", id, "trigger", trigger)
}

// forget drops a fired one-shot entry unless it was already replaced.
// The entry id is read under s.mu, which add holds while assigning it.
func (s *Scheduler) forget(id string, reg *registered) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.jobs[id]; ok && cur == reg {
		delete(s.jobs, id)
	}
	s.cron.Remove(reg.entryID)
}

func (s *Scheduler) run(id string, fn Job) {
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		s.logger.Warn("job dropped, scheduler stopping", "job_id", id)
		return
	}
	defer s.sem.Release(1)

	start := time.Now()
	s.logger.Debug("job started", "job_id", id)
	fn(s.ctx)
	s.logger.Debug("job finished", "job_id", id, "duration", time.Since(start))
}

// Cancel removes a job. It reports whether the job existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, id)
	s.logger.Debug("job cancelled", "job_id", id)
	return true
}

// Has reports whether a job is registered
func (s *Scheduler) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// Jobs lists registered jobs ordered by next run time
func (s *Scheduler) Jobs() []JobInfo {
	now := time.Now().In(s.loc)

	s.mu.Lock()
	out := make([]JobInfo, 0, len(s.jobs))
	for id, j := range s.jobs {
		info := JobInfo{ID: id, Name: j.name, Trigger: j.trigger}
		if next := j.schedule.Next(now); !next.IsZero() {
			info.NextRunTime = &next
		}
		out = append(out, info)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		a, b := out[i].NextRunTime, out[k].NextRunTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return out[i].ID < out[k].ID
		}
	})
	return out
}

// Running reports whether Start was called and Stop was not
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start begins evaluating schedules in a background goroutine
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("job scheduler started", "timezone", s.loc.String(), "jobs", len(s.jobs))
}

// Stop halts the runner and waits for running jobs until ctx is done,
// then cancels the context passed to jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	defer s.cancel()

	select {
	case <-done.Done():
		s.logger.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// onceSchedule fires a single time
type onceSchedule struct {
	at time.Time
}

func (o onceSchedule) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}
