package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/enums"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/glowcart/glowcart-backend/pkg/logger"
)

// Movement describes a single stock delta. Quantity is always positive; the
// operation decides the sign.
type Movement struct {
	ProductID     uuid.UUID
	ReservationID *uuid.UUID
	Quantity      int
	Reason        enums.StockMovementReason
}

// Audit compares the sellable counter with what active reservations hold.
type Audit struct {
	ProductID      uuid.UUID              `json:"productId"`
	StockTotal     int                    `json:"stockTotal"`
	ReservedActive int                    `json:"reservedActive"`
	Ceiling        int                    `json:"ceiling"`
	Recent         []models.StockMovement `json:"recentMovements,omitempty"`
}

// Ledger owns every write to products.stock_total. All methods run on the
// caller's transaction handle so the delta commits with the reservation change.
type Ledger struct {
	logg *logger.Logger
}

func NewLedger(logg *logger.Logger) (*Ledger, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Ledger{logg: logg}, nil
}

// Load returns the product row or a NOT_FOUND error wrapping ErrProductNotFound.
func (l *Ledger) Load(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(productID)
		}
		return nil, storageErr(err, "load product")
	}
	return &product, nil
}

// LoadMany returns the products that still exist, keyed by id. Missing ids are omitted.
func (l *Ledger) LoadMany(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := tx.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, storageErr(err, "load products")
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Reserve decrements stock by m.Quantity. The decrement is a single conditional
// update so two concurrent reservations can never both take the last unit.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, m Movement) (int, error) {
	if err := m.check(enums.StockMovementReserve); err != nil {
		return 0, err
	}
	product, err := l.Load(ctx, tx, m.ProductID)
	if err != nil {
		return 0, err
	}
	if !product.Sellable() {
		return 0, unavailable(m.ProductID)
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_total >= ?", m.ProductID, m.Quantity).
		Update("stock_total", gorm.Expr("stock_total - ?", m.Quantity))
	if res.Error != nil {
		return 0, storageErr(res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		current, err := l.Load(ctx, tx, m.ProductID)
		if err != nil {
			return 0, err
		}
		return 0, insufficient(m.ProductID, m.Quantity, current.StockTotal)
	}

	return l.journal(ctx, tx, m, -m.Quantity)
}

// Release credits m.Quantity back. It reports false without error when the
// product row no longer exists so callers can skip deleted catalog entries.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, m Movement) (bool, error) {
	if err := m.check(enums.StockMovementRelease); err != nil {
		return false, err
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", m.ProductID).
		Update("stock_total", gorm.Expr("stock_total + ?", m.Quantity))
	if res.Error != nil {
		return false, storageErr(res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		logCtx := l.logg.WithFields(ctx, map[string]any{
			"product_id": m.ProductID.String(),
			"quantity":   m.Quantity,
			"reason":     m.Reason,
		})
		l.logg.Warn(logCtx, "stock release skipped: product missing")
		return false, nil
	}

	if _, err := l.journal(ctx, tx, m, m.Quantity); err != nil {
		return false, err
	}
	return true, nil
}

// check defaults an empty reason and rejects unknown ones before any row is
// touched.
func (m *Movement) check(defaultReason enums.StockMovementReason) error {
	if m.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if m.Reason == "" {
		m.Reason = defaultReason
	}
	if !m.Reason.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown stock movement reason %q", m.Reason)
	}
	return nil
}

func (l *Ledger) journal(ctx context.Context, tx *gorm.DB, m Movement, delta int) (int, error) {
	var after int
	if err := tx.WithContext(ctx).
		Model(&models.Product{}).
		Select("stock_total").
		Where("id = ?", m.ProductID).
		Scan(&after).Error; err != nil {
		return 0, storageErr(err, "read stock")
	}
	row := models.StockMovement{
		ProductID:     m.ProductID,
		ReservationID: m.ReservationID,
		Delta:         delta,
		Reason:        m.Reason,
		StockAfter:    after,
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, storageErr(err, "journal stock movement")
	}
	return after, nil
}

// Audit reports the product's stock alongside the units held by active
// reservations. Ceiling is the product's original allotment and must stay constant
// while only reservation traffic touches the product.
func (l *Ledger) Audit(ctx context.Context, db *gorm.DB, productID uuid.UUID, recent int) (*Audit, error) {
	product, err := l.Load(ctx, db, productID)
	if err != nil {
		return nil, err
	}
	var reserved int64
	if err := db.WithContext(ctx).
		Table("reservation_lines").
		Joins("JOIN reservations ON reservations.id = reservation_lines.reservation_id").
		Where("reservations.state = ? AND reservation_lines.product_id = ?", enums.ReservationStateActive, productID).
		Select("COALESCE(SUM(reservation_lines.quantity), 0)").
		Scan(&reserved).Error; err != nil {
		return nil, storageErr(err, "sum active reservations")
	}
	audit := &Audit{
		ProductID:      productID,
		StockTotal:     product.StockTotal,
		ReservedActive: int(reserved),
		Ceiling:        product.StockTotal + int(reserved),
	}
	if recent > 0 {
		if err := db.WithContext(ctx).
			Where("product_id = ?", productID).
			Order("created_at DESC").
			Limit(recent).
			Find(&audit.Recent).Error; err != nil {
			return nil, storageErr(err, "list stock movements")
		}
	}
	return audit, nil
}

// Auditor binds a ledger to a read connection for the admin stock endpoint.
type Auditor struct {
	ledger *Ledger
	db     *gorm.DB
}

func NewAuditor(ledger *Ledger, db *gorm.DB) (*Auditor, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &Auditor{ledger: ledger, db: db}, nil
}

func (a *Auditor) Audit(ctx context.Context, productID uuid.UUID, recent int) (*Audit, error) {
	return a.ledger.Audit(ctx, a.db, productID, recent)
}
