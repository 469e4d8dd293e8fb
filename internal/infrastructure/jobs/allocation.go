// Package jobs holds the River background workers.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog"

	"github.com/aurelia/concierge-system/internal/api/metrics"
)

type AllocationRenewalArgs struct{}

func (AllocationRenewalArgs) Kind() string { return "renew_credit_allocations" }

// Renewer grants the monthly allocation to every account that is due.
type Renewer interface {
	RenewDueAllocations(ctx context.Context) (int, error)
}

type AllocationRenewalWorker struct {
	river.WorkerDefaults[AllocationRenewalArgs]
	renewer Renewer
	log     zerolog.Logger
}

func NewAllocationRenewalWorker(renewer Renewer, log zerolog.Logger) *AllocationRenewalWorker {
	return &AllocationRenewalWorker{renewer: renewer, log: log}
}

func (w *AllocationRenewalWorker) Work(ctx context.Context, job *river.Job[AllocationRenewalArgs]) error {
	renewed, err := w.renewer.RenewDueAllocations(ctx)
	if renewed > 0 {
		metrics.AllocationsRenewedTotal.Add(float64(renewed))
	}
	if err != nil {
		return fmt.Errorf("renew allocations: %w", err)
	}
	w.log.Info().
		Int64("job_id", job.ID).
		Int("attempt", job.Attempt).
		Int("renewed", renewed).
		Msg("monthly allocations renewed")
	return nil
}

// Timeout bounds one renewal sweep.
func (w *AllocationRenewalWorker) Timeout(*river.Job[AllocationRenewalArgs]) time.Duration {
	return 10 * time.Minute
}

// NewClient builds the River client with the renewal worker registered and
// scheduled every interval. Call Start on the returned client.
func NewClient(pool *pgxpool.Pool, renewer Renewer, interval time.Duration, log zerolog.Logger) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewAllocationRenewalWorker(renewer, log)); err != nil {
		return nil, fmt.Errorf("register renewal worker: %w", err)
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{allocationSchedule(interval)},
	})
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	return client, nil
}

func allocationSchedule(interval time.Duration) *river.PeriodicJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return AllocationRenewalArgs{}, &river.InsertOpts{
				UniqueOpts: river.UniqueOpts{ByPeriod: interval},
			}
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
