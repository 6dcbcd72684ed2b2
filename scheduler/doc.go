// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package scheduler runs the server's background tasks.

It wraps a go-quartz standard scheduler with named tasks:

	s, _ := scheduler.New(5 * time.Second)
	s.Start(ctx)
	s.ScheduleCron("retention", "0 0 4 * * *", job.Run)
	s.ScheduleEvery("stars", 6*time.Hour, cache.Refresh)
	defer s.Stop(ctx)

Cron expressions have a leading seconds field and are evaluated in UTC.
A task that returns an error is logged and runs again at its next trigger.
*/
package scheduler
