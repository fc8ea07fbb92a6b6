package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/demandcast/internal/api/handlers"
	"github.com/wonny/demandcast/internal/metrics"
	"github.com/wonny/demandcast/pkg/database"
	"github.com/wonny/demandcast/pkg/logger"
	"github.com/wonny/demandcast/pkg/redis"
)

// Deps groups what the router serves
type Deps struct {
	Reports        *handlers.ReportHandler
	Qualifications *handlers.QualificationHandler
	Metrics        *metrics.Metrics // nil disables /metrics and request counting
	Limiter        *Limiter
	Database       *database.DB  // nil when serving from memory
	Redis          *redis.Client // nil or disabled without a cache
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps Deps, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(deps.Database, deps.Redis)).Methods("GET")
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Report endpoints ("latest" is registered first so it is not taken as a run id)
	api.HandleFunc("/reports/latest", deps.Reports.Latest).Methods("GET")
	api.HandleFunc("/reports/{run_id}", deps.Reports.ByRunID).Methods("GET")

	// Qualification endpoints
	api.HandleFunc("/qualifications", deps.Qualifications.List).Methods("GET")
	api.HandleFunc("/qualifications/{product_id}", deps.Qualifications.ByProduct).Methods("GET")

	if deps.Limiter != nil {
		api.Use(rateLimitMiddleware(deps.Limiter, deps.Metrics, log))
	}

	r.Use(recoveryMiddleware(log))
	r.Use(loggingMiddleware(log, deps.Metrics))

	return r
}

// healthCheckHandler returns server health status with the attached backends
func healthCheckHandler(db *database.DB, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "demandcast-api",
			"time":    time.Now().UTC(),
		}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			status, err := db.HealthCheck(ctx)
			body["database"] = status
			if err != nil {
				body["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		if cache != nil && cache.Enabled() {
			// 캐시 장애는 degraded이지만 서비스는 계속
			body["redis"] = "ok"
			if err := cache.Ping(ctx); err != nil {
				body["redis"] = err.Error()
				body["status"] = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
