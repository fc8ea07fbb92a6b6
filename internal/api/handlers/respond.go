package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/demandcast/pkg/logger"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// requestLogger prefers the request-scoped logger set by the API middleware
func requestLogger(r *http.Request, fallback *logger.Logger) *logger.Logger {
	if l, ok := logger.FromContext(r.Context()); ok {
		return l
	}
	return fallback
}
