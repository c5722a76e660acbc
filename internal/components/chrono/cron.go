package chrono

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"qhare-bridge/internal/components/telemetry"
)

// CronAPI schedules recurring jobs.
//
// note: fault injection point
type CronAPI interface {
	Cron(spec string, callback func()) error
	Stop()
}

// StandardCron runs jobs with `github.com/robfig/cron/v3`. A run that is still going when
// its next tick arrives makes that tick be skipped.
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron starts a scheduler that reads specs in the given location, nil means
// the local time zone.
func NewStandardCron(tel telemetry.API, location *time.Location) StandardCron {
	if location == nil {
		location = time.Local
	}
	logger := cronLogger{tel: telemetry.NewScopedAPI("cron", tel)}
	scheduler := cron.New(
		cron.WithLocation(location),
		cron.WithLogger(logger),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)
	scheduler.Start()
	return StandardCron{cron: scheduler}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	if err != nil {
		return fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return nil
}

// Stop waits for running jobs to finish.
func (s StandardCron) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger forwards the scheduler's logs to telemetry as "key=value" pairs.
type cronLogger struct {
	tel telemetry.API
}

func pairs(keysAndValues []any) string {
	parts := make([]string, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", keysAndValues[i], keysAndValues[i+1]))
	}
	return strings.Join(parts, " ")
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(msg, pairs(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken("job", fmt.Errorf("%s: %w", msg, err), pairs(keysAndValues))
}
