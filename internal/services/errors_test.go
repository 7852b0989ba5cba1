package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapCarriesMarkerAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrTransient, "research", "lookup", "upstream unavailable", cause)

	if !errors.Is(err, ErrTransient) {
		t.Fatalf("error should wrap marker: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error should wrap cause: %v", err)
	}
	for _, want := range []string{"research", "lookup", "upstream unavailable"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "op", "", nil)
	if !errors.Is(err, ErrExternal) {
		t.Fatalf("nil marker should default to ErrExternal: %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient marker", fmt.Errorf("x: %w", ErrTransient), true},
		{"deadline", context.DeadlineExceeded, true},
		{"validation", Wrap(ErrValidation, "", "", "bad", nil), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: IsTransient = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCategory(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Wrap(ErrValidation, "", "submit", "bad", nil), "validation"},
		{Wrap(ErrConfiguration, "", "", "no key", nil), "configuration"},
		{Wrap(ErrTimeout, "scrape", "", "too slow", nil), "timeout"},
		{context.DeadlineExceeded, "timeout"},
		{Wrap(ErrNotFound, "", "", "missing", nil), "not_found"},
		{Wrap(ErrTransient, "", "", "flaky", nil), "transient"},
		{errors.New("anything else"), "service"},
	}
	for _, tc := range cases {
		if got := Category(tc.err); got != tc.want {
			t.Errorf("Category(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
