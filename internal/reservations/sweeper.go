package reservations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/internal/stock"
	"github.com/glowcart/glowcart-backend/pkg/config"
	"github.com/glowcart/glowcart-backend/pkg/enums"
	"github.com/glowcart/glowcart-backend/pkg/logger"
	"github.com/glowcart/glowcart-backend/pkg/metrics"
)

const (
	defaultSweepBatchSize   = 100
	defaultSweepItemTimeout = 10 * time.Second
)

// SweeperParams wires the expiration sweeper.
type SweeperParams struct {
	DB         dbClient
	Repository Repository
	Ledger     stockLedger
	Outbox     eventEmitter
	Logger     *logger.Logger
	Metrics    *metrics.ReservationMetrics
	Config     config.ReservationConfig
	Now        func() time.Time
}

// Sweeper returns stock held by expired reservations.
type Sweeper struct {
	db          dbClient
	repo        Repository
	ledger      stockLedger
	outbox      eventEmitter
	logg        *logger.Logger
	metrics     *metrics.ReservationMetrics
	batchSize   int
	itemTimeout time.Duration
	now         func() time.Time
}

// SweepResult summarises one sweep cycle.
type SweepResult struct {
	Scanned       int   `json:"scanned"`
	Expired       int   `json:"expired"`
	Skipped       int   `json:"skipped"`
	Failed        int   `json:"failed"`
	UnitsRestored int   `json:"unitsRestored"`
	Errors        error `json:"-"`
}

func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.Config.SweepBatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	itemTimeout := params.Config.SweepItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = defaultSweepItemTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		db:          params.DB,
		repo:        params.Repository,
		ledger:      params.Ledger,
		outbox:      params.Outbox,
		logg:        params.Logger,
		metrics:     params.Metrics,
		batchSize:   batch,
		itemTimeout: itemTimeout,
		now:         func() time.Time { return now().UTC() },
	}, nil
}

type sweepOutcome int

const (
	sweepExpired sweepOutcome = iota
	sweepSkipped
)

// Sweep expires every active reservation whose expires_at has passed. Each
// reservation commits in its own transaction, so one failure never blocks the
// rest of the batch and re-running a sweep is harmless.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	cutoff := s.now()
	var cursor *ExpiryCursor

	for {
		if err := ctx.Err(); err != nil {
			result.Errors = multierr.Append(result.Errors, err)
			break
		}
		page, err := s.repo.WithTx(s.db.DB()).FindExpired(ctx, cutoff, s.batchSize, cursor)
		if err != nil {
			result.Errors = multierr.Append(result.Errors, storageErr(err, "find expired reservations"))
			break
		}
		if len(page) == 0 {
			break
		}
		cursor = &page[len(page)-1]
		for _, ref := range page {
			id := ref.ID
			result.Scanned++
			outcome, restored, err := s.expireOne(ctx, id, cutoff)
			switch {
			case err != nil:
				result.Failed++
				result.Errors = multierr.Append(result.Errors, fmt.Errorf("reservation %s: %w", id, err))
				s.logg.Error(s.logg.WithReservationID(ctx, id.String()), "reservation expiry failed", err)
			case outcome == sweepSkipped:
				result.Skipped++
			default:
				result.Expired++
				result.UnitsRestored += restored
			}
		}
		if len(page) < s.batchSize {
			break
		}
	}

	s.metrics.ObserveSweep(result.Expired, result.Skipped, result.Failed)
	s.metrics.AddReleased(result.UnitsRestored)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"scanned":        result.Scanned,
		"expired":        result.Expired,
		"skipped":        result.Skipped,
		"failed":         result.Failed,
		"units_restored": result.UnitsRestored,
	})
	if result.Failed > 0 {
		s.logg.Warn(logCtx, "reservation sweep finished with failures")
	} else {
		s.logg.Info(logCtx, "reservation sweep finished")
	}
	return result, result.Errors
}

// expireOne re-checks the reservation under its row lock. A cart that was
// refreshed, migrated or completed after the scan is skipped untouched.
func (s *Sweeper) expireOne(ctx context.Context, id uuid.UUID, cutoff time.Time) (sweepOutcome, int, error) {
	itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()
	itemCtx = s.logg.WithReservationID(itemCtx, id.String())

	outcome := sweepSkipped
	restored := 0
	err := s.db.WithTx(itemCtx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, err := repo.FindByID(itemCtx, id, true)
		if errors.Is(err, ErrReservationNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !reservation.IsActive() || !reservation.ExpiresAt.Before(cutoff) {
			return nil
		}

		lines, err := repo.ListLines(itemCtx, reservation.ID)
		if err != nil {
			return err
		}
		ordered := append(lines[:0:0], lines...)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID.String() < ordered[j].ProductID.String() })

		var skipped []uuid.UUID
		for _, line := range ordered {
			ok, err := s.ledger.Release(itemCtx, tx, stock.Movement{
				ProductID:     line.ProductID,
				ReservationID: &reservation.ID,
				Quantity:      line.Quantity,
				Reason:        enums.StockMovementExpire,
			})
			if err != nil {
				return err
			}
			if !ok {
				skipped = append(skipped, line.ProductID)
				continue
			}
			restored += line.Quantity
		}
		if _, err := repo.DeleteLines(itemCtx, reservation.ID); err != nil {
			return err
		}
		now := s.now()
		if err := repo.Transition(itemCtx, reservation.ID, enums.ReservationStateExpired, now, nil); err != nil {
			return err
		}
		if err := emitReservationEvent(itemCtx, s.outbox, tx, enums.EventReservationExpired, reservation, now,
			expiredPayload(reservation, now, lineSnapshot(lines), restored, skipped)); err != nil {
			return err
		}
		outcome = sweepExpired
		return nil
	})
	if err != nil {
		return sweepSkipped, 0, err
	}
	return outcome, restored, nil
}
