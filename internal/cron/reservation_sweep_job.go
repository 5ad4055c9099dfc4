package cron

import (
	"context"
	"fmt"

	"github.com/glowcart/glowcart-backend/internal/reservations"
)

type reservationSweeper interface {
	Sweep(ctx context.Context) (reservations.SweepResult, error)
}

// NewReservationSweepJob returns the job that hands expired reservations' stock back.
func NewReservationSweepJob(sweeper reservationSweeper) (Job, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("reservation sweeper required")
	}
	return &reservationSweepJob{sweeper: sweeper}, nil
}

type reservationSweepJob struct {
	sweeper reservationSweeper
}

func (j *reservationSweepJob) Name() string { return "reservation-sweep" }

// Run reports any per-reservation failure as a job failure. Reservations that
// did expire stay committed and failed ones are retried next cycle.
func (j *reservationSweepJob) Run(ctx context.Context) error {
	result, err := j.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("reservation sweep: %d of %d failed: %w", result.Failed, result.Scanned, err)
	}
	return nil
}
