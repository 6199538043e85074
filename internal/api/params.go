package api

import (
	"net/http"
	"strconv"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/model"
)

func requiredDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, model.Invalidf("%s is required", name)
	}
	d, err := interval.ParseDate(raw)
	if err != nil {
		return time.Time{}, model.Invalidf("%s: %v", name, err)
	}
	return d, nil
}

func requiredClock(r *http.Request, name string) (interval.Clock, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, model.Invalidf("%s is required", name)
	}
	c, err := interval.ParseClock(raw)
	if err != nil {
		return 0, model.Invalidf("%s: %v", name, err)
	}
	return c, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.Invalidf("%s must be an integer", name)
	}
	return v, nil
}

// checkDuration keeps durations inside what a single slot may occupy.
func checkDuration(minutes int) error {
	if minutes <= 0 || minutes > interval.MaxDurationMinutes {
		return model.Invalidf("duration must be between 1 and %d minutes, got %d", interval.MaxDurationMinutes, minutes)
	}
	return nil
}

func durationParam(r *http.Request, def int) (int, error) {
	d, err := intParam(r, "duration", def)
	if err != nil {
		return 0, err
	}
	return d, checkDuration(d)
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, model.Invalidf("%s must be true or false", name)
	}
	return v, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Invalidf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}
