package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"carwash-backend/internal/apperr"
)

func TestWriteError_StatusByKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.Reference("washers", []string{"Ghost"}), http.StatusUnprocessableEntity},
		{apperr.Policy("no credit target"), http.StatusUnprocessableEntity},
		{apperr.NotFound("job not found"), http.StatusNotFound},
		{apperr.Conflict("dup"), http.StatusConflict},
		{apperr.Unauthorized("login"), http.StatusUnauthorized},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, tt.err)
		if rec.Code != tt.status {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
	}
}

func TestWriteError_HidesStoreCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("password authentication failed for user postgres"))

	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Kind != apperr.KindStore || body.Error != "internal storage error" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestWriteError_CarriesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.Reference("service_items", []string{"Unicorn Wash"}))

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	details, ok := body["details"].(map[string]any)
	if !ok {
		t.Fatalf("expected details, got %v", body)
	}
	if _, ok := details["missing_service_items"]; !ok {
		t.Fatalf("expected missing_service_items in %v", details)
	}
}
