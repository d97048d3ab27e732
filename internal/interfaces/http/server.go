// Package http exposes the session API surface and per-stock passthrough
// endpoints over the screening core.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/yuhaojin/astock-screener/internal/config"
	"github.com/yuhaojin/astock-screener/internal/interfaces/http/handlers"
)

// Server is the JSON API server.
type Server struct {
	router *mux.Router
	server *http.Server
}

// NewServer wires routes and middleware around the handler set.
func NewServer(cfg config.HTTPConfig, h *handlers.Handlers) *Server {
	router := mux.NewRouter()
	s := &Server{router: router}

	router.Use(s.requestIDMiddleware)
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/screen/start", h.StartScreen).Methods(http.MethodPost)
	api.HandleFunc("/screen/progress", h.GetProgress).Methods(http.MethodGet)
	api.HandleFunc("/screen/results", h.GetResults).Methods(http.MethodGet)

	stock := api.PathPrefix("/stock/{code}").Subrouter()
	stock.HandleFunc("/info", h.StockQuote).Methods(http.MethodGet)
	stock.HandleFunc("/kline", h.StockKline).Methods(http.MethodGet)
	stock.HandleFunc("/financials", h.StockFinancials).Methods(http.MethodGet)
	stock.HandleFunc("/dividend", h.StockDividend).Methods(http.MethodGet)
	stock.HandleFunc("/shareholders", h.StockShareholders).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
