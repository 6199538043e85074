package api

import (
	"net/http"

	"tablebook/internal/availability"
	"tablebook/internal/interval"
	"tablebook/internal/model"
	"tablebook/internal/slots"
)

// TableResponse is a table in API responses.
type TableResponse struct {
	ID       int64  `json:"id"`
	SaloonID int64  `json:"saloon_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// AvailableTablesResponse is the response for GET /api/tables/available.
type AvailableTablesResponse struct {
	Tables   []TableResponse `json:"tables"`
	Date     string          `json:"date"`
	Time     string          `json:"time"`
	Duration int             `json:"duration"`
	Guests   int             `json:"guests"`
	Override bool            `json:"override"`
}

// BlockResponse is a block in API responses.
type BlockResponse struct {
	ID        int64  `json:"id"`
	Scope     string `json:"scope"`
	RefID     int64  `json:"ref_id,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

// TableAvailabilityResponse is the response for GET /api/tables/{id}/availability.
type TableAvailabilityResponse struct {
	TableID           int64                 `json:"table_id"`
	Date              string                `json:"date"`
	Time              string                `json:"time"`
	Duration          int                   `json:"duration"`
	IsAvailable       bool                  `json:"is_available"`
	IsAvailableDay    bool                  `json:"is_available_day"`
	HasBlocks         bool                  `json:"has_blocks"`
	Blocks            []BlockResponse       `json:"blocks"`
	OtherReservations []ReservationResponse `json:"other_reservations"`
}

// SlotsResponse is the response for GET /api/tables/{id}/slots.
type SlotsResponse struct {
	TableID  int64            `json:"table_id"`
	Date     string           `json:"date"`
	Duration int              `json:"duration"`
	Step     int              `json:"step"`
	Slots    []slots.SlotInfo `json:"slots"`
}

func toTableResponse(t model.Table) TableResponse {
	return TableResponse{ID: t.ID, SaloonID: t.SaloonID, Name: t.Name, Capacity: t.Capacity}
}

func toBlockResponse(b model.Block) BlockResponse {
	return BlockResponse{
		ID:        b.ID,
		Scope:     string(b.Scope.Type),
		RefID:     b.Scope.RefID,
		StartDate: interval.FormatDate(b.Dates.Start),
		EndDate:   interval.FormatDate(b.Dates.End),
		StartTime: b.Range.Start.String(),
		EndTime:   b.Range.End.String(),
		Reason:    b.Reason,
	}
}

// handleAvailableTables lists tables free for a party.
// GET /api/tables/available?date=YYYY-MM-DD&time=HH:MM&guests=N&duration=M&override=bool
func (s *HTTPServer) handleAvailableTables(w http.ResponseWriter, r *http.Request) {
	date, err := requiredDate(r, "date")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	start, err := requiredClock(r, "time")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	guests, err := intParam(r, "guests", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	duration, err := durationParam(r, s.opts.DefaultDuration)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	override, err := boolParam(r, "override")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tables, err := s.deps.Engine.ListAvailableTables(r.Context(), date, start, duration, guests, override)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := AvailableTablesResponse{
		Tables:   make([]TableResponse, 0, len(tables)),
		Date:     interval.FormatDate(date),
		Time:     start.String(),
		Duration: duration,
		Guests:   guests,
		Override: override,
	}
	for _, t := range tables {
		resp.Tables = append(resp.Tables, toTableResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTableAvailability explains the verdict for one table.
// GET /api/tables/{id}/availability?date=YYYY-MM-DD&time=HH:MM&duration=M
func (s *HTTPServer) handleTableAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := requiredDate(r, "date")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	start, err := requiredClock(r, "time")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	duration, err := durationParam(r, s.opts.DefaultDuration)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	check, err := s.deps.Engine.CheckTable(r.Context(), id, date, start, duration)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(id, interval.FormatDate(date), start, duration, check))
}

func toAvailabilityResponse(id int64, date string, start interval.Clock, duration int, c *availability.Check) TableAvailabilityResponse {
	resp := TableAvailabilityResponse{
		TableID:           id,
		Date:              date,
		Time:              start.String(),
		Duration:          duration,
		IsAvailable:       c.IsAvailable,
		IsAvailableDay:    c.IsAvailableDay,
		HasBlocks:         c.HasBlocks,
		Blocks:            make([]BlockResponse, 0, len(c.Blocks)),
		OtherReservations: make([]ReservationResponse, 0, len(c.OtherReservations)),
	}
	for _, b := range c.Blocks {
		resp.Blocks = append(resp.Blocks, toBlockResponse(b))
	}
	for i := range c.OtherReservations {
		resp.OtherReservations = append(resp.OtherReservations, toReservationResponse(&c.OtherReservations[i]))
	}
	return resp
}

// handleTableSlots lists candidate starts inside opening hours.
// GET /api/tables/{id}/slots?date=YYYY-MM-DD&duration=M&step=S&available_only=bool
func (s *HTTPServer) handleTableSlots(w http.ResponseWriter, r *http.Request) {
	if s.deps.Slots == nil {
		writeError(w, http.StatusNotImplemented, "slot finder not configured")
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := requiredDate(r, "date")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	duration, err := durationParam(r, s.opts.DefaultDuration)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	step, err := intParam(r, "step", s.opts.SlotStep)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if step <= 0 {
		s.fail(w, r, model.Invalidf("step must be positive, got %d", step))
		return
	}
	onlyFree, err := boolParam(r, "available_only")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	found, err := s.deps.Slots.FreeStarts(r.Context(), id, date, duration, step)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if onlyFree {
		found = slots.AvailableOnly(found)
	}

	writeJSON(w, http.StatusOK, SlotsResponse{
		TableID:  id,
		Date:     interval.FormatDate(date),
		Duration: duration,
		Step:     step,
		Slots:    slots.ToSlotInfo(found),
	})
}
