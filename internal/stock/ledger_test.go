package stock

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/enums"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/glowcart/glowcart-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.ReservationSchema()...))
	return db
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := NewLedger(logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return ledger
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, sellable bool) models.Product {
	t.Helper()
	product := models.Product{
		Name:       "Rose Lip Oil",
		Price:      decimal.RequireFromString("18.50"),
		StockTotal: stock,
		IsActive:   sellable,
		IsApproved: true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", id).Error)
	return product.StockTotal
}

func TestReserveDecrementsAndJournals(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, db, 5, true)
	reservationID := uuid.New()

	var after int
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		after, err = ledger.Reserve(ctx, tx, Movement{ProductID: product.ID, ReservationID: &reservationID, Quantity: 3})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, after)
	assert.Equal(t, 2, stockOf(t, db, product.ID))

	var movements []models.StockMovement
	require.NoError(t, db.Find(&movements, "product_id = ?", product.ID).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, -3, movements[0].Delta)
	assert.Equal(t, enums.StockMovementReserve, movements[0].Reason)
	assert.Equal(t, 2, movements[0].StockAfter)
	require.NotNil(t, movements[0].ReservationID)
	assert.Equal(t, reservationID, *movements[0].ReservationID)
}

func TestReserveInsufficientCarriesAvailable(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	product := seedProduct(t, db, 2, true)

	_, err := ledger.Reserve(context.Background(), db, Movement{ProductID: product.ID, Quantity: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	details, ok := InsufficientDetails(err)
	require.True(t, ok)
	assert.Equal(t, InsufficientStockDetails{ProductID: product.ID, Requested: 3, Available: 2}, details)
	assert.Equal(t, 2, stockOf(t, db, product.ID), "failed reserve must not touch stock")
}

func TestReserveRejectsMissingAndUnsellableProducts(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Reserve(ctx, db, Movement{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, errors.Is(err, ErrProductNotFound))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	hidden := seedProduct(t, db, 10, false)
	_, err = ledger.Reserve(ctx, db, Movement{ProductID: hidden.ID, Quantity: 1})
	assert.True(t, errors.Is(err, ErrProductUnavailable))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 10, stockOf(t, db, hidden.ID))

	_, err = ledger.Reserve(ctx, db, Movement{ProductID: hidden.ID, Quantity: 0})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestReleaseCreditsAndSkipsMissingProducts(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, db, 1, true)

	ok, err := ledger.Release(ctx, db, Movement{ProductID: product.ID, Quantity: 4, Reason: enums.StockMovementExpire})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, stockOf(t, db, product.ID))

	var movement models.StockMovement
	require.NoError(t, db.First(&movement, "product_id = ?", product.ID).Error)
	assert.Equal(t, 4, movement.Delta)
	assert.Equal(t, enums.StockMovementExpire, movement.Reason)

	ok, err = ledger.Release(ctx, db, Movement{ProductID: uuid.New(), Quantity: 2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownReasonTouchesNothing(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	product := seedProduct(t, db, 3, true)

	_, err := ledger.Reserve(context.Background(), db, Movement{ProductID: product.ID, Quantity: 1, Reason: "gift"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = ledger.Release(context.Background(), db, Movement{ProductID: product.ID, Quantity: 1, Reason: "gift"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 3, stockOf(t, db, product.ID))
}

func TestRollbackUndoesReserve(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	product := seedProduct(t, db, 4, true)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.Reserve(context.Background(), tx, Movement{ProductID: product.ID, Quantity: 4}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, stockOf(t, db, product.ID))

	var count int64
	db.Model(&models.StockMovement{}).Count(&count)
	assert.Zero(t, count)
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	product := seedProduct(t, db, 5, true)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				_, err := ledger.Reserve(context.Background(), tx, Movement{ProductID: product.ID, Quantity: 1})
				return err
			})
			if err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrInsufficientStock), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, reserved)
	assert.Equal(t, 0, stockOf(t, db, product.ID))
}

func TestAuditSumsActiveLinesOnly(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, db, 6, true)
	now := time.Now().UTC()

	session := "sess-a"
	active := models.Reservation{Kind: enums.ReservationKindGuest, State: enums.ReservationStateActive, SessionToken: &session, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, db.Create(&active).Error)
	expired := models.Reservation{Kind: enums.ReservationKindGuest, State: enums.ReservationStateExpired, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, db.Create(&expired).Error)

	require.NoError(t, db.Create(&models.ReservationLine{ReservationID: active.ID, ProductID: product.ID, Quantity: 3, ReservedUntil: active.ExpiresAt}).Error)
	require.NoError(t, db.Create(&models.ReservationLine{ReservationID: expired.ID, ProductID: product.ID, Quantity: 9, ReservedUntil: expired.ExpiresAt}).Error)
	_, err := ledger.Release(ctx, db, Movement{ProductID: product.ID, Quantity: 1, Reason: enums.StockMovementAdjust})
	require.NoError(t, err)

	audit, err := ledger.Audit(ctx, db, product.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, audit.StockTotal)
	assert.Equal(t, 3, audit.ReservedActive)
	assert.Equal(t, 10, audit.Ceiling)
	assert.Len(t, audit.Recent, 1)

	_, err = ledger.Audit(ctx, db, uuid.New(), 0)
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestAuditorUsesBoundConnection(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	product := seedProduct(t, db, 4, true)

	_, err := NewAuditor(nil, db)
	require.Error(t, err)
	_, err = NewAuditor(ledger, nil)
	require.Error(t, err)

	auditor, err := NewAuditor(ledger, db)
	require.NoError(t, err)
	audit, err := auditor.Audit(context.Background(), product.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, audit.StockTotal)
	assert.Equal(t, 4, audit.Ceiling)
	assert.Empty(t, audit.Recent)
}

func TestLoadManyOmitsMissing(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger(t)
	product := seedProduct(t, db, 1, true)

	found, err := ledger.LoadMany(context.Background(), db, []uuid.UUID{product.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, product.ID)
}
