package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Schedule says when a job runs.
type Schedule struct {
	def  gocron.JobDefinition
	desc string
}

// String returns the schedule in @every / crontab form.
func (s Schedule) String() string {
	return s.desc
}

// Every runs a job at a fixed interval measured from the previous start.
func Every(d time.Duration) Schedule {
	return Schedule{
		def:  gocron.DurationJob(d),
		desc: fmt.Sprintf("@every %s", d),
	}
}

// Cron runs a job on a five-field crontab expression, evaluated in the
// scheduler's location.
func Cron(expr string) Schedule {
	return Schedule{
		def:  gocron.CronJob(expr, false),
		desc: expr,
	}
}

// Crontab presets.
const (
	Every5Minutes    = "*/5 * * * *"
	Every15Minutes   = "*/15 * * * *"
	EveryHour        = "0 * * * *"
	EveryDayMidnight = "0 0 * * *"
	EveryDay0005     = "5 0 * * *"
)
