package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStore_KeepsClassifiedErrors(t *testing.T) {
	orig := NotFound("washer not found")
	wrapped := fmt.Errorf("lookup: %w", orig)
	if got := Store(wrapped); got != orig {
		t.Fatalf("expected classified error to pass through, got %v", got)
	}
}

func TestStore_HidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused on 10.0.0.3")
	err := Store(cause)
	if err.Kind != KindStore {
		t.Fatalf("expected store kind, got %s", err.Kind)
	}
	if err.Message != "internal storage error" {
		t.Fatalf("message must be generic, got %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause must stay reachable for logging")
	}
}

func TestReference_ListsNames(t *testing.T) {
	err := Reference("washers", []string{"Sam", "Tunde"})
	if err.Kind != KindReference {
		t.Fatalf("expected reference kind, got %s", err.Kind)
	}
	names, ok := err.Details["missing_washers"].([]string)
	if !ok || len(names) != 2 {
		t.Fatalf("expected missing names in details, got %#v", err.Details)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(errors.New("boom")) != KindStore {
		t.Fatalf("plain errors classify as store")
	}
	if !Is(fmt.Errorf("x: %w", Policy("no credit washer")), KindPolicy) {
		t.Fatalf("wrapped policy error lost its kind")
	}
	if Is(nil, KindValidation) {
		t.Fatalf("nil is never an error kind")
	}
}
