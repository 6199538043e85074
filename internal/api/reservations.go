package api

import (
	"fmt"
	"net/http"
	"time"

	"tablebook/internal/booking"
	"tablebook/internal/interval"
	"tablebook/internal/ledger"
	"tablebook/internal/model"
)

// ReservationResponse is a reservation in API responses.
type ReservationResponse struct {
	ID            int64     `json:"id"`
	TableID       int64     `json:"table_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	End           string    `json:"end"`
	Duration      int       `json:"duration"`
	Guests        int       `json:"guests"`
	Status        string    `json:"status"`
	Final         bool      `json:"final"`
	Next          []string  `json:"next"`
	Override      bool      `json:"override"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateReservationRequest is the request body for POST /api/reservations.
type CreateReservationRequest struct {
	TableID       int64  `json:"table_id"`
	Date          string `json:"date"` // YYYY-MM-DD
	Time          string `json:"time"` // HH:MM
	Duration      int    `json:"duration,omitempty"`
	Guests        int    `json:"guests"`
	Override      bool   `json:"override,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// SetStatusRequest is the request body for POST /api/reservations/{id}/status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

var statusMachine = booking.NewFSM()

func toReservationResponse(r *model.Reservation) ReservationResponse {
	next := make([]string, 0, 3)
	for _, st := range statusMachine.Next(r.Status) {
		next = append(next, string(st))
	}
	return ReservationResponse{
		ID:            r.ID,
		TableID:       r.TableID,
		Date:          interval.FormatDate(r.Date),
		Time:          r.Time.String(),
		End:           r.End().String(),
		Duration:      r.Duration,
		Guests:        r.Guests,
		Status:        string(r.Status),
		Final:         statusMachine.IsTerminal(r.Status),
		Next:          next,
		Override:      r.Override,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (req *CreateReservationRequest) toBookRequest(defaultDuration int) (ledger.BookRequest, error) {
	if req.Date == "" {
		return ledger.BookRequest{}, model.Invalidf("date is required")
	}
	date, err := interval.ParseDate(req.Date)
	if err != nil {
		return ledger.BookRequest{}, model.Invalidf("date: %v", err)
	}
	if req.Time == "" {
		return ledger.BookRequest{}, model.Invalidf("time is required")
	}
	start, err := interval.ParseClock(req.Time)
	if err != nil {
		return ledger.BookRequest{}, model.Invalidf("time: %v", err)
	}
	duration := req.Duration
	if duration == 0 {
		duration = defaultDuration
	}
	if err := checkDuration(duration); err != nil {
		return ledger.BookRequest{}, err
	}
	return ledger.BookRequest{
		TableID:       req.TableID,
		Date:          date,
		Time:          start,
		Duration:      duration,
		Guests:        req.Guests,
		Override:      req.Override,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	}, nil
}

// handleCreateReservation books a table. Override requires a staff caller.
// POST /api/reservations
func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var body CreateReservationRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := body.toBookRequest(s.opts.DefaultDuration)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if req.Override {
		if s.deps.Access == nil {
			s.fail(w, r, fmt.Errorf("%w: override is disabled", model.ErrForbidden))
			return
		}
		if err := s.deps.Access.AuthorizeOverride(r.Context(), staffIDFrom(r.Context())); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	res, err := s.deps.Ledger.Book(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationResponse(res))
}

// handleGetReservation returns one reservation.
// GET /api/reservations/{id}
func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.Ledger.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

// handleSetStatus moves a reservation through its lifecycle.
// POST /api/reservations/{id}/status
func (s *HTTPServer) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body SetStatusRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Status == "" {
		s.fail(w, r, model.Invalidf("status is required"))
		return
	}

	res, err := s.deps.Ledger.SetStatus(r.Context(), id, body.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}
