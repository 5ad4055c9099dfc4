package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/glowcart/glowcart-backend/api/responses"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/glowcart/glowcart-backend/pkg/logger"
	pkgredis "github.com/glowcart/glowcart-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	defaultIdempotencyTTL = 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL       = time.Minute
	maxIdempotencyKey = 255
)

// idempotentRoutes maps "METHOD pattern" to how long a completed response is
// replayable. Only add-item is listed: a retried POST would reserve the units
// twice, while the other cart writes set absolute state.
var idempotentRoutes = map[string]time.Duration{
	http.MethodPost + " /api/v1/cart/items": defaultIdempotencyTTL,
}

// idempotencyRecord is stored under the key. While the first request runs it
// holds only the fingerprint with InFlight set.
type idempotencyRecord struct {
	Fingerprint string `json:"fingerprint"`
	InFlight    bool   `json:"in_flight,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
	next  http.Handler
}

// Idempotency replays the stored response when a client repeats a request
// with the same Idempotency-Key and body. A repeat that arrives while the
// first is still running is rejected rather than executed twice.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return &idempotencyGuard{store: store, logg: logg, next: next}
	}
}

func (g *idempotencyGuard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pattern := routePattern(r)
	ttl, ok := routeTTL(r.Method, pattern)
	if !ok {
		g.next.ServeHTTP(w, r)
		return
	}
	clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if clientKey == "" {
		g.next.ServeHTTP(w, r)
		return
	}
	ctx := r.Context()
	if len(clientKey) > maxIdempotencyKey {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key is too long").
			WithDetails(map[string]any{"maxLength": maxIdempotencyKey}))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	fingerprint := fingerprintRequest(r.Method, pattern, body)
	key := g.store.IdempotencyKey(ownerScope(ctx, pattern, body), clientKey)

	claimed, err := g.claim(ctx, key, fingerprint)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
		return
	}
	if !claimed {
		g.replay(w, r, key, fingerprint)
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	g.next.ServeHTTP(capture, r)
	g.complete(context.WithoutCancel(ctx), key, fingerprint, capture, ttl)
}

func (g *idempotencyGuard) claim(ctx context.Context, key, fingerprint string) (bool, error) {
	pending, err := json.Marshal(idempotencyRecord{Fingerprint: fingerprint, InFlight: true})
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, string(pending), inFlightTTL)
}

func (g *idempotencyGuard) replay(w http.ResponseWriter, r *http.Request, key, fingerprint string) {
	ctx := r.Context()
	stored, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// Expired between SETNX and GET; the first request is done or gone.
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "request with this Idempotency-Key is being processed"))
		return
	case err != nil:
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		if delErr := g.store.Del(ctx, key); delErr != nil {
			g.logError(ctx, "drop corrupt idempotency record", delErr)
		}
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.Fingerprint != fingerprint {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
		return
	}
	if record.InFlight {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "request with this Idempotency-Key is being processed"))
		return
	}

	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

// complete stores the response, or frees the key after a server error so the
// client's retry runs again.
func (g *idempotencyGuard) complete(ctx context.Context, key, fingerprint string, capture *responseCapture, ttl time.Duration) {
	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		if err := g.store.Del(ctx, key); err != nil {
			g.logError(ctx, "release idempotency key", err)
		}
		return
	}
	payload, err := json.Marshal(idempotencyRecord{
		Fingerprint: fingerprint,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err != nil {
		g.logError(ctx, "marshal idempotency record", err)
		return
	}
	if err := g.store.Set(ctx, key, string(payload), ttl); err != nil {
		g.logError(ctx, "persist idempotency record", err)
	}
}

func (g *idempotencyGuard) logError(ctx context.Context, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

// ownerScope keys replays by cart owner so two shoppers can reuse a key. The
// owner is resolved the way the cart handlers resolve it: bearer user, then
// header or query session, then the body's sessionId.
func ownerScope(ctx context.Context, pattern string, body []byte) string {
	if userID := UserIDFromContext(ctx); userID != "" {
		return "user:" + userID + "|" + pattern
	}
	session := SessionIDFromContext(ctx)
	if session == "" {
		session = bodySession(body)
	}
	return "session:" + session + "|" + pattern
}

func bodySession(body []byte) string {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.SessionID)
}

func fingerprintRequest(method, pattern string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + pattern + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	ttl, ok := idempotentRoutes[method+" "+pattern]
	return ttl, ok
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
