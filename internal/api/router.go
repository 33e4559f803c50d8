// Package api описывает HTTP интерфейс сервиса постов.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// NewRouter регистрирует маршруты сервиса. metrics может быть nil.
func NewRouter(h *PostHandler, metrics http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger(h.logger()))

	router.HandleFunc("/submit", h.Submit).Methods("POST")
	router.HandleFunc("/posts", h.List).Methods("GET")
	router.HandleFunc("/healthz", h.Health).Methods("GET")
	if metrics != nil {
		router.Handle("/metrics", metrics).Methods("GET")
	}

	if h.StaticDir != "" {
		router.HandleFunc("/", h.Index).Methods("GET")
		router.PathPrefix("/static/").Handler(
			http.StripPrefix("/static/", http.FileServer(http.Dir(h.StaticDir)))).Methods("GET")
	}

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("HTTP request",
				"method", r.Method,
				"uri", r.RequestURI,
				"status", rec.status,
				"latency", time.Since(start))
		})
	}
}
