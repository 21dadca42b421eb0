// Package cron runs the periodic maintenance of the context engine:
// unloading an idle local embedding model and backfilling missing vectors.
package cron

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job.
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/5 * * * *").
	Schedule() string

	// Run executes the job. Implementations should honor ctx cancellation.
	Run(ctx context.Context) error
}
