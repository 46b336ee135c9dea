package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayHeader      = "Idempotent-Replayed"

	cartMutationTTL = 24 * time.Hour
	checkoutTTL     = 7 * 24 * time.Hour
)

// cartCommand describes a replayable cart endpoint.
type cartCommand struct {
	name        string
	method      string
	path        string
	ttl         time.Duration
	keyRequired bool
}

var cartCommands = []cartCommand{
	{name: "add_line", method: http.MethodPost, path: "/api/v1/cart/lines", ttl: cartMutationTTL},
	{name: "apply_promo", method: http.MethodPost, path: "/api/v1/cart/promos", ttl: cartMutationTTL},
	{name: "checkout", method: http.MethodPost, path: "/api/v1/cart/checkout", ttl: checkoutTTL, keyRequired: true},
}

// storedResponse is the replay payload kept in redis.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotency replays the first response of a cart command when the client
// retries it with the same Idempotency-Key. Keys are scoped to the cart session.
// Server failures are not stored so a retry runs the command again.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cmd, ok := commandFor(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				if cmd.keyRequired {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required for "+cmd.name))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintBody(body)
			key := store.IdempotencyKey(commandScope(ctx, cmd), clientKey)

			previous, err := lookupResponse(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup failed"))
				return
			}
			if previous != nil {
				if previous.Fingerprint != fingerprint {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
					return
				}
				replay(w, previous)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				return
			}
			record := storedResponse{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				Fingerprint: fingerprint,
			}
			if err := saveResponse(ctx, store, key, record, cmd.ttl); err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "command", cmd.name), "idempotency.persist_failed", err)
			}
		})
	}
}

func commandFor(method, pattern string) (cartCommand, bool) {
	for _, cmd := range cartCommands {
		if cmd.method == method && cmd.path == pattern {
			return cmd, true
		}
	}
	return cartCommand{}, false
}

func commandScope(ctx context.Context, cmd cartCommand) string {
	return SessionIDFromContext(ctx) + "|" + cmd.name
}

func lookupResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record storedResponse
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func saveResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string, record storedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = store.SetNX(ctx, key, string(payload), ttl)
	return err
}

func replay(w http.ResponseWriter, record *storedResponse) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(record.Status)
	if body, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(body)
	}
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(bytes.TrimSpace(body))
	return hex.EncodeToString(sum[:])
}

// routePattern prefers the chi pattern. Inside a mounted sub-router the
// pattern still ends in a wildcard while middleware runs, so the raw path is
// used instead.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
