package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"herald/internal/config"
	"herald/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.Profile{APIKey: "test", BaseURL: server.URL, TimeoutSeconds: 5})
}

func TestLookupParsesProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/linkedin" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("auth = %q", got)
		}
		if got := r.URL.Query().Get("url"); got != "https://linkedin.com/in/ada" {
			t.Errorf("url = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"full_name": "Ada Park",
			"occupation": "CTO at Looply",
			"headline": "Building developer platforms",
			"summary": "Two decades of infra work.",
			"country_full_name": "Netherlands",
			"city": "Amsterdam"
		}`))
	})

	got, err := client.Lookup(context.Background(), "https://linkedin.com/in/ada")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.FullName != "Ada Park" || got.Country != "Netherlands" {
		t.Fatalf("profile = %+v", got)
	}
}

func TestLookupNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := client.Lookup(context.Background(), "https://linkedin.com/in/ghost")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestLookupRateLimitIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := client.Lookup(context.Background(), "https://linkedin.com/in/ada")
	if !services.IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
}

func TestLookupRejectsEmptyURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := client.Lookup(context.Background(), "  ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}
