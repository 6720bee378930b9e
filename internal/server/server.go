// Package server exposes the local engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/metrics"
	"github.com/sells-group/geoindex/internal/model"
)

// MaxLimit caps the limit query parameter.
const MaxLimit = 50

// Searcher answers free-form address queries.
type Searcher interface {
	Search(ctx context.Context, raw string, topK int) ([]model.Hit, error)
}

// GeocodeResponse is the body of a successful /v1/geocode request.
type GeocodeResponse struct {
	Query string      `json:"query"`
	Hits  []model.Hit `json:"hits"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New builds the router. allowedOrigins defaults to "*".
func New(s Searcher, allowedOrigins ...string) http.Handler {
	log := zap.L().With(zap.String("component", "server"))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(recoverer(log))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLog(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/geocode", geocodeHandler(s, log))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func geocodeHandler(s Searcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "q is required")
			return
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
				return
			}
			limit = min(n, MaxLimit)
		}

		hits, err := s.Search(r.Context(), q, limit)
		if err != nil {
			log.Error("geocode failed", zap.String("query", q), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
			return
		}
		if hits == nil {
			hits = []model.Hit{}
		}
		writeJSON(w, http.StatusOK, GeocodeResponse{Query: q, Hits: hits})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func recoverer(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					log.Error("panic recovered", zap.Any("panic", rvr), zap.Stack("stacktrace"))
					writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLog emits one line per request and echoes the request id.
func requestLog(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http_request",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
