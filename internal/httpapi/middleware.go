package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
	"github.com/DoyleJ11/trivia-hub/internal/types"
)

const (
	HostTokenHeader = "X-Host-Token"
	// hostTokenParam is the fallback for browser sockets, which cannot set
	// headers on the upgrade request.
	hostTokenParam = "token"
)

type ctxKey int

const hostKey ctxKey = iota

// HostFrom reports whether the request carried the host secret.
func HostFrom(ctx context.Context) bool {
	host, _ := ctx.Value(hostKey).(bool)
	return host
}

// HostToken returns the host secret presented by r, if any.
func HostToken(r *http.Request) string {
	if tok := r.Header.Get(HostTokenHeader); tok != "" {
		return tok
	}
	return r.URL.Query().Get(hostTokenParam)
}

// WithRole records the caller's role on the request context.
func WithRole(isHost func(string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := isHost(HostToken(r))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), hostKey, host)))
		})
	}
}

func RequireHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !HostFrom(r.Context()) {
			writeJSON(w, http.StatusUnauthorized, types.Error{Error: engine.ErrUnauthorized.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
