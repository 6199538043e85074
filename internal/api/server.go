// Package api exposes the availability engine and the reservation ledger over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tablebook/internal/availability"
	"tablebook/internal/interval"
	"tablebook/internal/ledger"
	"tablebook/internal/model"
	"tablebook/internal/report"
	"tablebook/internal/slots"

	"github.com/rs/zerolog"
)

// Engine answers availability questions.
type Engine interface {
	ListAvailableTables(ctx context.Context, date time.Time, start interval.Clock, duration, guests int, override bool) ([]model.Table, error)
	CheckTable(ctx context.Context, tableID int64, date time.Time, start interval.Clock, duration int) (*availability.Check, error)
}

// Ledger is the reservation write path.
type Ledger interface {
	Book(ctx context.Context, req ledger.BookRequest) (*model.Reservation, error)
	SetStatus(ctx context.Context, id int64, status string) (*model.Reservation, error)
	Get(ctx context.Context, id int64) (*model.Reservation, error)
}

// SlotFinder lists candidate starts for a table.
type SlotFinder interface {
	FreeStarts(ctx context.Context, tableID int64, date time.Time, duration, step int) ([]slots.Slot, error)
}

// Authorizer returns model.ErrForbidden when staffID may not override hours and blocks.
type Authorizer interface {
	AuthorizeOverride(ctx context.Context, staffID int64) error
}

// Pinger reports storage readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	Port            int
	APIKey          string
	RateLimitRPS    float64
	RateLimitBurst  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	DefaultDuration int
	SlotStep        int
}

// Deps are the services behind the handlers. Floor and Ready are optional.
type Deps struct {
	Engine Engine
	Ledger Ledger
	Slots  SlotFinder
	Access Authorizer
	Floor  report.FloorSource
	Ready  Pinger
}

// HTTPServer serves the JSON API.
type HTTPServer struct {
	opts    Options
	deps    Deps
	limiter *rateLimiter
	logger  zerolog.Logger
	server  *http.Server
}

// NewHTTPServer wires routes and middleware.
func NewHTTPServer(opts Options, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 60
	}
	if opts.SlotStep <= 0 {
		opts.SlotStep = slots.DefaultStep
	}

	s := &HTTPServer{
		opts:   opts,
		deps:   deps,
		logger: logger.With().Str("component", "api").Logger(),
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /api/tables/available", s.protected(s.handleAvailableTables))
	mux.Handle("GET /api/tables/{id}/availability", s.protected(s.handleTableAvailability))
	mux.Handle("GET /api/tables/{id}/slots", s.protected(s.handleTableSlots))
	mux.Handle("POST /api/reservations", s.protected(s.handleCreateReservation))
	mux.Handle("GET /api/reservations/{id}", s.protected(s.handleGetReservation))
	mux.Handle("POST /api/reservations/{id}/status", s.protected(s.handleSetStatus))
	mux.Handle("GET /api/reports/floor", s.protected(s.handleFloorReport))

	return s.requestIDMiddleware(s.loggingMiddleware(mux))
}

func (s *HTTPServer) protected(h http.HandlerFunc) http.Handler {
	return s.authMiddleware(s.rateLimitMiddleware(h))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http api: %w", err)
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready.PingContext(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, interval.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrSlotTaken),
		errors.Is(err, model.ErrUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal failures are logged and
// hidden from the caller.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return model.Invalidf("invalid JSON body: %v", err)
	}
	return nil
}
