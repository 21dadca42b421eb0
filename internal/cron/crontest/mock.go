// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/confidant/internal/cron"
	"github.com/flemzord/confidant/internal/retrieval"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

// Compile-time interface check.
var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and counts calls.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Unloader is a test double for cron.IdleUnloader.
type Unloader struct {
	Unloaded bool
	Err      error

	mu      sync.Mutex
	maxIdle []time.Duration
}

// UnloadIfIdle records maxIdle and returns the configured result.
func (u *Unloader) UnloadIfIdle(_ context.Context, maxIdle time.Duration) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.maxIdle = append(u.maxIdle, maxIdle)
	return u.Unloaded, u.Err
}

// Calls returns the maxIdle values received.
func (u *Unloader) Calls() []time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]time.Duration(nil), u.maxIdle...)
}

// Backfiller is a test double for cron.Backfiller.
type Backfiller struct {
	Report retrieval.BackfillReport
	Err    error

	mu  sync.Mutex
	all []bool
}

// Run records the all flag and returns the configured result.
func (b *Backfiller) Run(_ context.Context, all bool) (retrieval.BackfillReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, all)
	return b.Report, b.Err
}

// Calls returns the all flags received.
func (b *Backfiller) Calls() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.all...)
}
