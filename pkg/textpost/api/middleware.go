package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// PrivilegedHeader is set by the upstream editor proxy for admin sessions.
const PrivilegedHeader = "X-Editor-Privileged"

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// ResponseWriter wrapper that captures status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // Default status
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

type contextKey string

const privilegedKey contextKey = "privileged"

// WithPrivileged marks the context as belonging to a privileged editor.
func WithPrivileged(ctx context.Context, privileged bool) context.Context {
	return context.WithValue(ctx, privilegedKey, privileged)
}

// IsPrivileged reports whether the request was marked privileged.
func IsPrivileged(ctx context.Context) bool {
	v, _ := ctx.Value(privilegedKey).(bool)
	return v
}

// PrivilegedMiddleware trusts the PrivilegedHeader set upstream.
// Authentication happens before requests reach this service.
func PrivilegedMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		privileged, _ := strconv.ParseBool(r.Header.Get(PrivilegedHeader))
		next.ServeHTTP(w, r.WithContext(WithPrivileged(r.Context(), privileged)))
	})
}

// RequestIDHeaderMiddleware echoes the chi request ID in the response so
// clients can quote it. It must run after middleware.RequestID.
func RequestIDHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs HTTP requests and responses
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			logger.InfoContext(r.Context(), "request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"bytes", rw.bytesWritten,
				"duration", time.Since(start),
			)
		})
	}
}

// RecoveryMiddleware recovers from panics and returns 500 error
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := middleware.GetReqID(r.Context())
					logger.ErrorContext(r.Context(), "panic recovered", "request_id", requestID, "panic", err)

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, ErrorResponse{Error: ErrorBody{
						Code:    "internal_error",
						Message: "An internal server error occurred",
					}})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestSizeLimitMiddleware limits the size of request bodies
func RequestSizeLimitMiddleware(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePrivileged rejects requests that PrivilegedMiddleware did not mark
// privileged.
func RequirePrivileged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsPrivileged(r.Context()) {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, ErrorResponse{Error: ErrorBody{
				Code:    "forbidden",
				Message: "Privileged editor required",
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}
