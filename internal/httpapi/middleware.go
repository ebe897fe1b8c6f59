package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const (
	ownerKey ctxKey = iota
	roleKey
)

// Owner identity and role are resolved by an upstream gateway and passed in
// trusted headers; authentication itself lives outside this service.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// RequireOwner rejects requests without a valid owner id header and stores
// the identity in the request context.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := uuid.Parse(r.Header.Get(headerUserID))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing or invalid user identity")
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey, ownerID)
		ctx = context.WithValue(ctx, roleKey, r.Header.Get(headerUserRole))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose resolved role differs from want.
func RequireRole(want string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(roleKey).(string)
			if role != want {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ownerFromContext(ctx context.Context) uuid.UUID {
	ownerID, _ := ctx.Value(ownerKey).(uuid.UUID)
	return ownerID
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
