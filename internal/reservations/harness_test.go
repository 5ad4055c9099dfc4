package reservations

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/internal/stock"
	"github.com/glowcart/glowcart-backend/pkg/config"
	dbpkg "github.com/glowcart/glowcart-backend/pkg/db"
	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/logger"
	"github.com/glowcart/glowcart-backend/pkg/outbox"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	db      *gorm.DB
	client  *dbpkg.Client
	repo    Repository
	ledger  *stock.Ledger
	outbox  *outbox.Service
	logg    *logger.Logger
	clock   *testClock
	cfg     config.ReservationConfig
	svc     *Service
	sweeper *Sweeper
}

func testConfig() config.ReservationConfig {
	return config.ReservationConfig{
		GuestTTL:         time.Hour,
		RegisteredTTL:    7 * 24 * time.Hour,
		MaxExtension:     30 * 24 * time.Hour,
		SweepBatchSize:   2,
		SweepItemTimeout: 5 * time.Second,
		MaxRetries:       2,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := "file:reservations_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.ReservationSchema()...))

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ledger, err := stock.NewLedger(logg)
	require.NoError(t, err)

	h := &harness{
		db:     conn,
		client: dbpkg.FromGORM(conn),
		repo:   NewRepository(conn),
		ledger: ledger,
		outbox: outbox.NewService(outbox.NewRepository(conn), logg),
		logg:   logg,
		clock:  &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		cfg:    testConfig(),
	}
	h.svc = h.newService(t, h.repo)
	h.sweeper, err = NewSweeper(SweeperParams{
		DB:         h.client,
		Repository: h.repo,
		Ledger:     h.ledger,
		Outbox:     h.outbox,
		Logger:     logg,
		Config:     h.cfg,
		Now:        h.clock.Now,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) newService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:         h.client,
		Repository: repo,
		Ledger:     h.ledger,
		Outbox:     h.outbox,
		Logger:     h.logg,
		Config:     h.cfg,
		Now:        h.clock.Now,
	})
	require.NoError(t, err)
	return svc
}

func (h *harness) seedProduct(t *testing.T, name string, stockTotal int) models.Product {
	t.Helper()
	product := models.Product{
		Name:       name,
		Price:      decimal.RequireFromString("12.00"),
		StockTotal: stockTotal,
		IsActive:   true,
		IsApproved: true,
	}
	require.NoError(t, h.db.Create(&product).Error)
	return product
}

func (h *harness) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, h.db.First(&product, "id = ?", id).Error)
	return product.StockTotal
}

func (h *harness) reservation(t *testing.T, id uuid.UUID) models.Reservation {
	t.Helper()
	var reservation models.Reservation
	require.NoError(t, h.db.First(&reservation, "id = ?", id).Error)
	return reservation
}

// activeHeld sums units held by active reservations for productID.
func (h *harness) activeHeld(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var held int64
	require.NoError(t, h.db.Table("reservation_lines").
		Joins("JOIN reservations ON reservations.id = reservation_lines.reservation_id").
		Where("reservations.state = ? AND reservation_lines.product_id = ?", "active", productID).
		Select("COALESCE(SUM(reservation_lines.quantity), 0)").
		Scan(&held).Error)
	return int(held)
}

func (h *harness) outboxCount(t *testing.T, eventType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

// conflictingRepo loses every guarded expiry refresh.
type conflictingRepo struct {
	Repository
}

func (r *conflictingRepo) WithTx(tx *gorm.DB) Repository {
	return &conflictingRepo{Repository: r.Repository.WithTx(tx)}
}

func (r *conflictingRepo) Touch(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	return ErrConcurrencyConflict
}
