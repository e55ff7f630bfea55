package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"balanced-bowl/internal/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userIDKey contextKey = "user_id"

// authenticate accepts a Bearer token, or a token query parameter for
// clients that cannot set headers on a websocket handshake.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			var err error
			token, err = auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, err)
				return
			}
		}

		claims, err := s.jwt.Validate(token)
		if err != nil {
			slog.Debug("Rejected token", "error", err)
			writeError(w, auth.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated user of the request.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// logRequests logs each request and records it in Prometheus under its route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		attrs := []any{
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", chimiddleware.GetReqID(r.Context()),
		}
		switch {
		case status >= 500:
			slog.Error("Request failed", attrs...)
		case status >= 400:
			slog.Warn("Request rejected", attrs...)
		default:
			slog.Info("Request completed", attrs...)
		}

		if s.collectors != nil {
			s.collectors.ObserveHTTP(r.Method, route, status, elapsed)
		}
	})
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrMissingToken)
}
