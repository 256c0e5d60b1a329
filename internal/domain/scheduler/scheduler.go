package scheduler

import (
	"context"
	"sync"
	"time"

	"glasserp/pkg/logger"
)

// Locker elects the process that runs a job. release gives the lock back
// early; otherwise it expires after ttl.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Job is one periodic task.
type Job struct {
	Name     string
	Schedule Schedule
	// Timeout bounds a run and doubles as the lock lease.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// RunRecorder observes job outcomes (metrics).
type RunRecorder interface {
	JobRun(name string, d time.Duration, err error)
}

// Scheduler fires jobs on their schedules.
type Scheduler struct {
	jobs     []Job
	locker   Locker
	recorder RunRecorder
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates a scheduler. locker may be nil in single-process deployments.
func New(locker Locker, recorder RunRecorder, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		locker:   locker,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is cancelled. A job already running when ctx is
// cancelled finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go func(j Job) {
			defer s.wg.Done()
			s.loop(ctx, j)
		}(j)
	}
	<-ctx.Done()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	next := j.Schedule.Next(s.now())
	logger.Info(ctx, "job scheduled", "job", j.Name, "next_run", next)
	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.RunOnce(context.WithoutCancel(ctx), j)
		next = j.Schedule.Next(s.now())
	}
}

// RunOnce runs j now if this process wins the lock.
func (s *Scheduler) RunOnce(ctx context.Context, j Job) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, "job:"+j.Name, timeout)
		if err != nil {
			logger.Error(ctx, "job lock failed", "job", j.Name, "error", err)
			return
		}
		if !ok {
			logger.Debug(ctx, "job held by another process", "job", j.Name)
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn(ctx, "job lock release failed", "job", j.Name, "error", err)
			}
		}()
	}

	start := s.now()
	err := j.Run(ctx)
	if s.recorder != nil {
		s.recorder.JobRun(j.Name, s.now().Sub(start), err)
	}
	if err != nil {
		logger.Error(ctx, "job failed", "job", j.Name, "error", err)
		return
	}
	logger.Info(ctx, "job finished", "job", j.Name, "took", s.now().Sub(start))
}
