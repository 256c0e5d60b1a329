// Package scheduler runs the periodic jobs: payment-due reminders and the
// cash reports. One process at a time runs a job, elected through a lock.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule computes the next run strictly after a given instant.
type Schedule = cron.Schedule

var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron parses a five-field cron expression evaluated in loc.
func Cron(spec string, loc *time.Location) (Schedule, error) {
	s, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if ss, ok := s.(*cron.SpecSchedule); ok && loc != nil {
		ss.Location = loc
	}
	return s, nil
}

// MustCron is Cron for expressions known at compile time.
func MustCron(spec string, loc *time.Location) Schedule {
	s, err := Cron(spec, loc)
	if err != nil {
		panic(err)
	}
	return s
}

// Every fires at a fixed interval, rounded to whole seconds.
func Every(d time.Duration) Schedule {
	return cron.Every(d)
}
