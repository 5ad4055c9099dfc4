package reservations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/internal/stock"
	"github.com/glowcart/glowcart-backend/pkg/config"
	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/enums"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/glowcart/glowcart-backend/pkg/logger"
	"github.com/glowcart/glowcart-backend/pkg/metrics"
)

const (
	opGetCart        = "get_cart"
	opAddItem        = "add_item"
	opUpdateQuantity = "update_quantity"
	opRemoveItem     = "remove_item"
	opClear          = "clear"
	opMigrate        = "migrate"
	opExtend         = "extend"
	opComplete       = "complete"
)

// ServiceParams wires the reservation engine.
type ServiceParams struct {
	DB         dbClient
	Repository Repository
	Ledger     stockLedger
	Outbox     eventEmitter
	Logger     *logger.Logger
	Metrics    *metrics.ReservationMetrics
	Config     config.ReservationConfig
	Now        func() time.Time
}

// Service is the reservation engine. Every mutating operation runs as one
// transaction that changes lines and stock together, retried on lost races.
type Service struct {
	db         dbClient
	repo       Repository
	ledger     stockLedger
	outbox     eventEmitter
	logg       *logger.Logger
	metrics    *metrics.ReservationMetrics
	ttl        TTLPolicy
	maxRetries int
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
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
	ttl := NewTTLPolicy(params.Config)
	if ttl.Guest <= 0 || ttl.Registered <= 0 {
		return nil, fmt.Errorf("reservation ttls must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	maxRetries := params.Config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Service{
		db:         params.DB,
		repo:       params.Repository,
		ledger:     params.Ledger,
		outbox:     params.Outbox,
		logg:       params.Logger,
		metrics:    params.Metrics,
		ttl:        ttl,
		maxRetries: maxRetries,
		now:        func() time.Time { return now().UTC() },
	}, nil
}

// MigrationResult reports what MigrateGuestToUser did. Migrated=false is the
// no-op outcome when the session had no active cart.
type MigrationResult struct {
	Migrated    bool      `json:"migrated"`
	GuestCartID uuid.UUID `json:"guestCartId,omitempty"`
	MovedLines  int       `json:"movedLines"`
	MergedLines int       `json:"mergedLines"`
	Cart        *Cart     `json:"cart"`
}

// Completion is the line snapshot handed to order placement.
type Completion struct {
	ReservationID uuid.UUID       `json:"reservationId"`
	UserID        *uuid.UUID      `json:"userId,omitempty"`
	CompletedAt   time.Time       `json:"completedAt"`
	Lines         []CompletedLine `json:"lines"`
}

type CompletedLine struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// GetOrCreate returns the identity's active cart, creating an empty one if needed.
func (s *Service) GetOrCreate(ctx context.Context, identity Identity) (*Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	var cart *Cart
	err := s.run(ctx, opGetCart, identity, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, err := s.getOrCreateTx(ctx, repo, identity, false)
		if err != nil {
			return err
		}
		cart, err = s.loadCart(ctx, tx, repo, reservation)
		return err
	})
	return cart, err
}

// GetCart reads the active cart without locking. Identities with no active cart
// fall back to GetOrCreate.
func (s *Service) GetCart(ctx context.Context, identity Identity) (*Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	conn := s.db.DB().WithContext(ctx)
	repo := s.repo.WithTx(conn)
	reservation, err := repo.FindActive(ctx, identity, false)
	if errors.Is(err, ErrReservationNotFound) {
		return s.GetOrCreate(ctx, identity)
	}
	if err != nil {
		s.metrics.ObserveOperation(opGetCart, outcomeOf(err))
		return nil, storageErr(err, "load cart")
	}
	cart, err := s.loadCart(ctx, conn, repo, reservation)
	s.metrics.ObserveOperation(opGetCart, outcomeOf(err))
	return cart, err
}

// AddItem reserves quantity more units of productID, merging into an existing line.
func (s *Service) AddItem(ctx context.Context, identity Identity, productID uuid.UUID, quantity int) (*Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if err := validateLineInput(productID, quantity, 1); err != nil {
		return nil, err
	}
	var cart *Cart
	err := s.run(ctx, opAddItem, identity, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, err := s.getOrCreateTx(ctx, repo, identity, true)
		if err != nil {
			return err
		}
		line, err := repo.FindLine(ctx, reservation.ID, productID)
		if err != nil && !errors.Is(err, ErrLineNotFound) {
			return storageErr(err, "load cart line")
		}

		if _, err := s.ledger.Reserve(ctx, tx, stock.Movement{
			ProductID:     productID,
			ReservationID: &reservation.ID,
			Quantity:      quantity,
		}); err != nil {
			return err
		}

		expiresAt := s.ttl.ExpiryFrom(s.now(), reservation.Kind, reservation.ExpiresAt)
		if line != nil {
			err = repo.UpdateLine(ctx, line.ID, line.Quantity+quantity, expiresAt)
		} else {
			err = repo.CreateLine(ctx, &models.ReservationLine{
				ReservationID: reservation.ID,
				ProductID:     productID,
				Quantity:      quantity,
				ReservedUntil: expiresAt,
			})
		}
		if err != nil {
			return storageErr(err, "save cart line")
		}
		if err := s.touch(ctx, repo, reservation, expiresAt); err != nil {
			return err
		}
		s.metrics.AddReserved(quantity)
		cart, err = s.loadCart(ctx, tx, repo, reservation)
		return err
	})
	return cart, err
}

// UpdateQuantity sets a line to quantity, moving only the difference through the
// ledger. A quantity of zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, identity Identity, productID uuid.UUID, quantity int) (*Cart, error) {
	if quantity == 0 {
		return s.RemoveItem(ctx, identity, productID)
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if err := validateLineInput(productID, quantity, 0); err != nil {
		return nil, err
	}
	var cart *Cart
	err := s.run(ctx, opUpdateQuantity, identity, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, line, err := s.lockLine(ctx, repo, identity, productID)
		if err != nil {
			return err
		}

		delta := quantity - line.Quantity
		movement := stock.Movement{ProductID: productID, ReservationID: &reservation.ID}
		switch {
		case delta > 0:
			movement.Quantity = delta
			if _, err := s.ledger.Reserve(ctx, tx, movement); err != nil {
				return err
			}
			s.metrics.AddReserved(delta)
		case delta < 0:
			movement.Quantity = -delta
			if _, err := s.ledger.Release(ctx, tx, movement); err != nil {
				return err
			}
			s.metrics.AddReleased(-delta)
		}

		expiresAt := s.ttl.ExpiryFrom(s.now(), reservation.Kind, reservation.ExpiresAt)
		if err := repo.UpdateLine(ctx, line.ID, quantity, expiresAt); err != nil {
			return storageErr(err, "update cart line")
		}
		if err := s.touch(ctx, repo, reservation, expiresAt); err != nil {
			return err
		}
		cart, err = s.loadCart(ctx, tx, repo, reservation)
		return err
	})
	return cart, err
}

// RemoveItem deletes the line and credits its full quantity back.
func (s *Service) RemoveItem(ctx context.Context, identity Identity, productID uuid.UUID) (*Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	var cart *Cart
	err := s.run(ctx, opRemoveItem, identity, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, line, err := s.lockLine(ctx, repo, identity, productID)
		if err != nil {
			return err
		}
		if err := repo.DeleteLine(ctx, line.ID); err != nil {
			return storageErr(err, "delete cart line")
		}
		if _, err := s.ledger.Release(ctx, tx, stock.Movement{
			ProductID:     productID,
			ReservationID: &reservation.ID,
			Quantity:      line.Quantity,
		}); err != nil {
			return err
		}
		s.metrics.AddReleased(line.Quantity)

		expiresAt := s.ttl.ExpiryFrom(s.now(), reservation.Kind, reservation.ExpiresAt)
		if err := s.touch(ctx, repo, reservation, expiresAt); err != nil {
			return err
		}
		cart, err = s.loadCart(ctx, tx, repo, reservation)
		return err
	})
	return cart, err
}

// Clear credits every line back and leaves the reservation active and empty.
func (s *Service) Clear(ctx context.Context, identity Identity) (*Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	var cart *Cart
	err := s.run(ctx, opClear, identity, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, err := s.getOrCreateTx(ctx, repo, identity, true)
		if err != nil {
			return err
		}
		lines, err := repo.ListLines(ctx, reservation.ID)
		if err != nil {
			return storageErr(err, "list cart lines")
		}
		released, err := s.releaseLines(ctx, tx, reservation, lines, enums.StockMovementRelease)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteLines(ctx, reservation.ID); err != nil {
			return storageErr(err, "delete cart lines")
		}
		s.metrics.AddReleased(released)

		expiresAt := s.ttl.ExpiryFrom(s.now(), reservation.Kind, reservation.ExpiresAt)
		if err := s.touch(ctx, repo, reservation, expiresAt); err != nil {
			return err
		}
		cart = buildCart(reservation, nil, nil)
		return nil
	})
	return cart, err
}

// MigrateGuestToUser re-parents the session's lines onto the user's active cart.
// Stock is not touched: the units were already reserved by the guest cart.
func (s *Service) MigrateGuestToUser(ctx context.Context, sessionToken string, userID uuid.UUID) (*MigrationResult, error) {
	guestIdentity := Anonymous(sessionToken)
	userIdentity := Registered(userID)
	if err := guestIdentity.Validate(); err != nil {
		return nil, err
	}
	if err := userIdentity.Validate(); err != nil {
		return nil, err
	}

	var result *MigrationResult
	err := s.run(ctx, opMigrate, userIdentity, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		guest, err := repo.FindActive(ctx, guestIdentity, false)
		if errors.Is(err, ErrReservationNotFound) {
			user, err := s.getOrCreateTx(ctx, repo, userIdentity, false)
			if err != nil {
				return err
			}
			cart, err := s.loadCart(ctx, tx, repo, user)
			if err != nil {
				return err
			}
			result = &MigrationResult{Cart: cart}
			return nil
		}
		if err != nil {
			return storageErr(err, "load guest cart")
		}
		user, err := repo.FindActive(ctx, userIdentity, false)
		if err != nil && !errors.Is(err, ErrReservationNotFound) {
			return storageErr(err, "load user cart")
		}

		guest, user, err = s.lockPair(ctx, repo, guest.ID, user)
		if err != nil {
			return err
		}
		if user == nil {
			user, err = s.createReservation(ctx, repo, userIdentity)
			if err != nil {
				return err
			}
		}

		guestLines, err := repo.ListLines(ctx, guest.ID)
		if err != nil {
			return storageErr(err, "list guest lines")
		}
		userLines, err := repo.ListLines(ctx, user.ID)
		if err != nil {
			return storageErr(err, "list user lines")
		}
		existing := make(map[uuid.UUID]models.ReservationLine, len(userLines))
		for _, line := range userLines {
			existing[line.ProductID] = line
		}

		now := s.now()
		expiresAt := s.ttl.ExpiryFrom(now, user.Kind, user.ExpiresAt)
		moved, merged := 0, 0
		for _, line := range guestLines {
			if target, ok := existing[line.ProductID]; ok {
				if err := repo.UpdateLine(ctx, target.ID, target.Quantity+line.Quantity, expiresAt); err != nil {
					return storageErr(err, "merge cart line")
				}
				if err := repo.DeleteLine(ctx, line.ID); err != nil {
					return storageErr(err, "delete merged line")
				}
				merged++
				continue
			}
			if err := repo.MoveLine(ctx, line.ID, user.ID, expiresAt); err != nil {
				return storageErr(err, "move cart line")
			}
			moved++
		}

		if err := repo.Transition(ctx, guest.ID, enums.ReservationStateMigrated, now, &user.ID); err != nil {
			return storageErr(err, "close guest cart")
		}
		if err := s.touch(ctx, repo, user, expiresAt); err != nil {
			return err
		}
		if err := emitReservationEvent(ctx, s.outbox, tx, enums.EventReservationMigrated, guest, now,
			migratedPayload(guest, user, userID, moved, merged)); err != nil {
			return err
		}

		cart, err := s.loadCart(ctx, tx, repo, user)
		if err != nil {
			return err
		}
		result = &MigrationResult{
			Migrated:    true,
			GuestCartID: guest.ID,
			MovedLines:  moved,
			MergedLines: merged,
			Cart:        cart,
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"guest_reservation_id": guest.ID.String(),
			"reservation_id":       user.ID.String(),
			"moved_lines":          moved,
			"merged_lines":         merged,
		})
		s.logg.Info(logCtx, "guest cart migrated")
		return nil
	})
	return result, err
}

// Extend pushes an active reservation's expiry to until. Used by operators.
func (s *Service) Extend(ctx context.Context, reservationID uuid.UUID, until time.Time) (*Cart, error) {
	return s.extend(ctx, reservationID, func(time.Time) time.Time { return until })
}

// ExtendBy adds by to the later of now and the reservation's current expiry.
func (s *Service) ExtendBy(ctx context.Context, reservationID uuid.UUID, by time.Duration) (*Cart, error) {
	if by <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "extension must be positive")
	}
	return s.extend(ctx, reservationID, func(current time.Time) time.Time {
		base := s.now()
		if current.After(base) {
			base = current
		}
		return base.Add(by)
	})
}

func (s *Service) extend(ctx context.Context, reservationID uuid.UUID, target func(current time.Time) time.Time) (*Cart, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id is required")
	}
	var cart *Cart
	err := s.runByID(ctx, opExtend, reservationID, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, err := s.lockActiveByID(ctx, repo, reservationID)
		if err != nil {
			return err
		}
		expiresAt, err := s.ttl.ClampExtension(s.now(), reservation.ExpiresAt, target(reservation.ExpiresAt))
		if err != nil {
			return err
		}
		if err := s.touch(ctx, repo, reservation, expiresAt); err != nil {
			return err
		}
		if err := repo.StampLines(ctx, reservation.ID, expiresAt); err != nil {
			return storageErr(err, "stamp cart lines")
		}
		cart, err = s.loadCart(ctx, tx, repo, reservation)
		return err
	})
	return cart, err
}

// Complete closes a reservation after an order was placed against it. The lines
// are kept as the order snapshot and no stock is credited: the units are sold.
func (s *Service) Complete(ctx context.Context, reservationID uuid.UUID) (*Completion, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id is required")
	}
	var completion *Completion
	err := s.runByID(ctx, opComplete, reservationID, func(ctx context.Context, tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reservation, err := s.lockActiveByID(ctx, repo, reservationID)
		if err != nil {
			return err
		}
		lines, err := repo.ListLines(ctx, reservation.ID)
		if err != nil {
			return storageErr(err, "list cart lines")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot complete an empty cart")
		}
		now := s.now()
		if err := repo.Transition(ctx, reservation.ID, enums.ReservationStateCleaned, now, nil); err != nil {
			return storageErr(err, "close cart")
		}
		snapshot := lineSnapshot(lines)
		if err := emitReservationEvent(ctx, s.outbox, tx, enums.EventReservationCompleted, reservation, now,
			completedPayload(reservation, now, snapshot)); err != nil {
			return err
		}
		completion = &Completion{
			ReservationID: reservation.ID,
			UserID:        reservation.UserID,
			CompletedAt:   now,
			Lines:         make([]CompletedLine, 0, len(lines)),
		}
		for _, line := range lines {
			completion.Lines = append(completion.Lines, CompletedLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		return nil
	})
	return completion, err
}

func (s *Service) run(ctx context.Context, op string, identity Identity, fn func(ctx context.Context, tx *gorm.DB) error) error {
	ctx = s.logg.WithFields(ctx, identity.logFields())
	return s.execute(ctx, op, fn)
}

func (s *Service) runByID(ctx context.Context, op string, reservationID uuid.UUID, fn func(ctx context.Context, tx *gorm.DB) error) error {
	ctx = s.logg.WithReservationID(ctx, reservationID.String())
	return s.execute(ctx, op, fn)
}

func (s *Service) execute(ctx context.Context, op string, fn func(ctx context.Context, tx *gorm.DB) error) error {
	err := s.withRetry(ctx, op, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return fn(ctx, tx)
		})
	})
	if err != nil {
		err = storageErr(err, op)
		if ctxErr := ctx.Err(); ctxErr != nil && pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, ctxErr, "request timed out")
		}
	}
	s.metrics.ObserveOperation(op, outcomeOf(err))
	return err
}

func (s *Service) getOrCreateTx(ctx context.Context, repo Repository, identity Identity, lock bool) (*models.Reservation, error) {
	reservation, err := repo.FindActive(ctx, identity, lock)
	if err == nil {
		return reservation, nil
	}
	if !errors.Is(err, ErrReservationNotFound) {
		return nil, storageErr(err, "load cart")
	}
	return s.createReservation(ctx, repo, identity)
}

// createReservation inserts a fresh active cart. A concurrent insert for the same
// identity trips the partial unique index and surfaces as a retryable conflict.
func (s *Service) createReservation(ctx context.Context, repo Repository, identity Identity) (*models.Reservation, error) {
	reservation := &models.Reservation{
		Kind:      identity.Kind(),
		State:     enums.ReservationStateActive,
		ExpiresAt: s.now().Add(s.ttl.For(identity.Kind())),
	}
	if identity.IsRegistered() {
		userID := identity.UserID()
		reservation.UserID = &userID
	} else {
		token := identity.SessionToken()
		reservation.SessionToken = &token
	}
	if err := repo.Create(ctx, reservation); err != nil {
		return nil, storageErr(err, "create cart")
	}
	return reservation, nil
}

func (s *Service) lockLine(ctx context.Context, repo Repository, identity Identity, productID uuid.UUID) (*models.Reservation, *models.ReservationLine, error) {
	reservation, err := repo.FindActive(ctx, identity, true)
	if errors.Is(err, ErrReservationNotFound) {
		return nil, nil, lineNotFound(productID)
	}
	if err != nil {
		return nil, nil, storageErr(err, "load cart")
	}
	line, err := repo.FindLine(ctx, reservation.ID, productID)
	if errors.Is(err, ErrLineNotFound) {
		return nil, nil, lineNotFound(productID)
	}
	if err != nil {
		return nil, nil, storageErr(err, "load cart line")
	}
	return reservation, line, nil
}

func (s *Service) lockActiveByID(ctx context.Context, repo Repository, id uuid.UUID) (*models.Reservation, error) {
	reservation, err := repo.FindByID(ctx, id, true)
	if errors.Is(err, ErrReservationNotFound) {
		return nil, reservationNotFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "load reservation")
	}
	if !reservation.IsActive() {
		return nil, notActive(id, reservation.State)
	}
	return reservation, nil
}

// lockPair locks the guest and (when present) user reservations in ascending id
// order and re-validates both are still active after the locks are held.
func (s *Service) lockPair(ctx context.Context, repo Repository, guestID uuid.UUID, user *models.Reservation) (*models.Reservation, *models.Reservation, error) {
	ids := []uuid.UUID{guestID}
	if user != nil {
		ids = append(ids, user.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	locked := make(map[uuid.UUID]*models.Reservation, len(ids))
	for _, id := range ids {
		reservation, err := repo.FindByID(ctx, id, true)
		if err != nil {
			if errors.Is(err, ErrReservationNotFound) {
				return nil, nil, ErrConcurrencyConflict
			}
			return nil, nil, storageErr(err, "lock reservation")
		}
		if !reservation.IsActive() {
			return nil, nil, ErrConcurrencyConflict
		}
		locked[id] = reservation
	}
	if user != nil {
		return locked[guestID], locked[user.ID], nil
	}
	return locked[guestID], nil, nil
}

func (s *Service) touch(ctx context.Context, repo Repository, reservation *models.Reservation, expiresAt time.Time) error {
	if err := repo.Touch(ctx, reservation.ID, expiresAt); err != nil {
		return storageErr(err, "refresh cart expiry")
	}
	reservation.ExpiresAt = expiresAt
	return nil
}

// releaseLines credits lines back in ascending product order. Missing products are skipped.
func (s *Service) releaseLines(ctx context.Context, tx *gorm.DB, reservation *models.Reservation, lines []models.ReservationLine, reason enums.StockMovementReason) (int, error) {
	ordered := append([]models.ReservationLine(nil), lines...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID.String() < ordered[j].ProductID.String() })

	released := 0
	for _, line := range ordered {
		ok, err := s.ledger.Release(ctx, tx, stock.Movement{
			ProductID:     line.ProductID,
			ReservationID: &reservation.ID,
			Quantity:      line.Quantity,
			Reason:        reason,
		})
		if err != nil {
			return released, err
		}
		if ok {
			released += line.Quantity
		}
	}
	return released, nil
}

func (s *Service) loadCart(ctx context.Context, tx *gorm.DB, repo Repository, reservation *models.Reservation) (*Cart, error) {
	lines, err := repo.ListLines(ctx, reservation.ID)
	if err != nil {
		return nil, storageErr(err, "list cart lines")
	}
	return s.project(ctx, tx, reservation, lines)
}

func validateLineInput(productID uuid.UUID, quantity, min int) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if quantity < min || quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer").
			WithDetails(map[string]any{"quantity": quantity})
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
