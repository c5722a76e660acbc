package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type Report struct {
	Id     string
	Params []any
}

// Telemetry records every report it receives, it satisfies telemetry.API.
type Telemetry struct {
	t testing.TB

	mu       sync.Mutex
	Broken   []Report
	Warnings []Report
	Counts   map[string]int64
}

func NewTelemetry(t testing.TB) *Telemetry {
	return &Telemetry{t: t, Counts: map[string]int64{}}
}

func (r *Telemetry) ReportBroken(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.Logf("broken: %s %v", id, params)
	r.Broken = append(r.Broken, Report{Id: id, Params: params})
}

func (r *Telemetry) ReportWarning(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.Logf("warning: %s %v", id, params)
	r.Warnings = append(r.Warnings, Report{Id: id, Params: params})
}

func (r *Telemetry) ReportDebug(msg string, params ...any) {
	r.t.Logf("debug: %s %v", msg, params)
}

func (r *Telemetry) ReportCount(id string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counts[id] = count
}

// WarningIds returns the ids of the warnings received so far, in order.
func (r *Telemetry) WarningIds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		ids[i] = w.Id
	}
	return ids
}

func (r *Telemetry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("broken=%v warnings=%v", r.Broken, r.Warnings)
}

// Clock is a manually advanced clock, it satisfies chrono.TimeAPI.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
