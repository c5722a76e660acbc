package qhare

import (
	"context"
	"time"

	"qhare-bridge/internal/components/chrono"
)

const report_session_keep_alive = "session.keep-alive"

// KeepAlive refreshes the session on the given cron spec so that requests rarely pay for
// a login. Each run only logs in when the re-auth window has elapsed.
func (s *Session) KeepAlive(cron chrono.CronAPI, spec string) error {
	return cron.Cron(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		err := s.EnsureAuthenticated(ctx, false)
		if err != nil {
			s.tel.ReportBroken(report_session_keep_alive, err)
		}
	})
}
