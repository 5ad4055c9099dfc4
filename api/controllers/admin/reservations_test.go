package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	admindto "github.com/glowcart/glowcart-backend/api/controllers/admin/dto"
	"github.com/glowcart/glowcart-backend/internal/reservations"
	"github.com/glowcart/glowcart-backend/internal/stock"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/glowcart/glowcart-backend/pkg/logger"
)

type stubReservations struct {
	until      time.Time
	by         time.Duration
	completed  uuid.UUID
	calls      []string
	completion *reservations.Completion
	err        error
}

func (s *stubReservations) Extend(ctx context.Context, id uuid.UUID, until time.Time) (*reservations.Cart, error) {
	s.calls = append(s.calls, "extend")
	s.until = until
	return &reservations.Cart{ID: id, ExpiresAt: until}, s.err
}

func (s *stubReservations) ExtendBy(ctx context.Context, id uuid.UUID, by time.Duration) (*reservations.Cart, error) {
	s.calls = append(s.calls, "extend_by")
	s.by = by
	return &reservations.Cart{ID: id}, s.err
}

func (s *stubReservations) Complete(ctx context.Context, id uuid.UUID) (*reservations.Completion, error) {
	s.calls = append(s.calls, "complete")
	s.completed = id
	if s.err != nil {
		return nil, s.err
	}
	return s.completion, nil
}

type stubSweeper struct {
	result reservations.SweepResult
	err    error
}

func (s stubSweeper) Sweep(context.Context) (reservations.SweepResult, error) {
	return s.result, s.err
}

type stubAuditor struct {
	recent int
	audit  *stock.Audit
	err    error
}

func (s *stubAuditor) Audit(ctx context.Context, productID uuid.UUID, recent int) (*stock.Audit, error) {
	s.recent = recent
	return s.audit, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestReservationExtendAbsolute(t *testing.T) {
	svc := &stubReservations{}
	id := uuid.New()
	until := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	body := `{"expiresAt":"` + until.Format(time.RFC3339) + `"}`
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "reservationId", id.String())
	resp := httptest.NewRecorder()

	ReservationExtend(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.calls) != 1 || svc.calls[0] != "extend" || !svc.until.Equal(until) {
		t.Fatalf("unexpected calls %v until %s", svc.calls, svc.until)
	}
}

func TestReservationExtendByMinutes(t *testing.T) {
	svc := &stubReservations{}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"extendByMinutes":90}`)), "reservationId", uuid.NewString())
	resp := httptest.NewRecorder()

	ReservationExtend(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.by != 90*time.Minute {
		t.Fatalf("expected 90m, got %s", svc.by)
	}
}

func TestReservationExtendRejectsAmbiguousPayloads(t *testing.T) {
	cases := map[string]string{
		"empty":    `{}`,
		"both":     `{"expiresAt":"2026-03-05T09:00:00Z","extendByMinutes":5}`,
		"negative": `{"extendByMinutes":-5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubReservations{}
			req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "reservationId", uuid.NewString())
			resp := httptest.NewRecorder()

			ReservationExtend(svc, testLogger()).ServeHTTP(resp, req)

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.Code)
			}
			if len(svc.calls) != 0 {
				t.Fatalf("service should not be called")
			}
		})
	}
}

func TestReservationExtendRejectsBadID(t *testing.T) {
	svc := &stubReservations{}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"extendByMinutes":5}`)), "reservationId", "abc")
	resp := httptest.NewRecorder()

	ReservationExtend(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestReservationCompleteMapsStateConflict(t *testing.T) {
	svc := &stubReservations{err: pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not active")}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", nil), "reservationId", uuid.NewString())
	resp := httptest.NewRecorder()

	ReservationComplete(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestReservationCompleteReturnsSnapshot(t *testing.T) {
	id := uuid.New()
	productID := uuid.New()
	svc := &stubReservations{completion: &reservations.Completion{
		ReservationID: id,
		Lines:         []reservations.CompletedLine{{ProductID: productID, Quantity: 3}},
	}}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", nil), "reservationId", id.String())
	resp := httptest.NewRecorder()

	ReservationComplete(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var envelope struct {
		Data reservations.Completion `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ReservationID != id || len(envelope.Data.Lines) != 1 || envelope.Data.Lines[0].Quantity != 3 {
		t.Fatalf("unexpected completion %+v", envelope.Data)
	}
}

func TestReservationSweepReportsPartialFailures(t *testing.T) {
	errs := multierr.Combine(errors.New("reservation a: boom"), errors.New("reservation b: boom"))
	sweeper := stubSweeper{
		result: reservations.SweepResult{Scanned: 5, Expired: 3, Failed: 2, UnitsRestored: 7, Errors: errs},
		err:    errs,
	}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()

	ReservationSweep(sweeper, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var envelope struct {
		Data admindto.SweepResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Expired != 3 || envelope.Data.UnitsRestored != 7 || len(envelope.Data.Errors) != 2 {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestReservationSweepFailsWhenScanFails(t *testing.T) {
	err := pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "find expired reservations")
	sweeper := stubSweeper{result: reservations.SweepResult{Errors: err}, err: err}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()

	ReservationSweep(sweeper, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestStockAuditHonoursRecentParam(t *testing.T) {
	productID := uuid.New()
	auditor := &stubAuditor{audit: &stock.Audit{ProductID: productID, StockTotal: 4, ReservedActive: 1, Ceiling: 5}}
	req := withParam(httptest.NewRequest(http.MethodGet, "/?recent=5", nil), "productId", productID.String())
	resp := httptest.NewRecorder()

	StockAudit(auditor, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if auditor.recent != 5 {
		t.Fatalf("expected recent=5, got %d", auditor.recent)
	}
}

func TestStockAuditDefaultsAndBounds(t *testing.T) {
	auditor := &stubAuditor{audit: &stock.Audit{}}
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", uuid.NewString())
	resp := httptest.NewRecorder()
	StockAudit(auditor, testLogger()).ServeHTTP(resp, req)
	if auditor.recent != auditWindow.Default {
		t.Fatalf("expected default %d, got %d", auditWindow.Default, auditor.recent)
	}

	req = withParam(httptest.NewRequest(http.MethodGet, "/?recent=1000", nil), "productId", uuid.NewString())
	resp = httptest.NewRecorder()
	StockAudit(auditor, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStockAuditNotFound(t *testing.T) {
	auditor := &stubAuditor{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", uuid.NewString())
	resp := httptest.NewRecorder()

	StockAudit(auditor, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
