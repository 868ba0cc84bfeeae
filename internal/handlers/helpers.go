package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/middleware"
	"carwash-backend/internal/models"
	"carwash-backend/internal/timeutil"

	"github.com/gorilla/mux"
)

// Clock is the time source for resolving "today"; tests replace it.
type Clock func() time.Time

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body exceeds %d bytes", tooLarge.Limit)
		}
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

func callerOf(r *http.Request) (*models.Caller, error) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		return nil, apperr.Unauthorized("authentication required")
	}
	return caller, nil
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// dateRange reads ?date=YYYY-MM-DD or ?from=&to=. Missing values mean today.
// from is local midnight and to the end of its day.
func dateRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	q := r.URL.Query()
	if date := q.Get("date"); date != "" || (q.Get("from") == "" && q.Get("to") == "") {
		day, err := timeutil.ParseDate(date, now)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("%v", err)
		}
		return day, timeutil.EndOfDay(day), nil
	}

	from, err := timeutil.ParseDate(q.Get("from"), now)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("%v", err)
	}
	to, err := timeutil.ParseDate(q.Get("to"), now)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation("%v", err)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, apperr.Validation("from must not be after to")
	}
	return from, timeutil.EndOfDay(to), nil
}
