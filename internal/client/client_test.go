package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"herald/internal/api"
	"herald/internal/services"
	"herald/internal/testsupport"
)

func TestSubmitSendsBearerTokenAndDecodesJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/campaigns" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sekret" {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.SubmitResponse{Job: api.JobSummary{ID: "job-1", Status: "queued"}})
	}))
	defer server.Close()

	c := New(server.URL, "sekret")
	job, err := c.Submit(context.Background(), testsupport.Submission())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ID != "job-1" || job.Status != "queued" {
		t.Fatalf("job = %+v", job)
	}
}

func TestErrorBodyMapsToSentinels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "campaign not found"})
	}))
	defer server.Close()

	c := New(server.URL, "")
	_, err := c.Status(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestUnauthorizedMapsToConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	c := New(server.URL, "wrong")
	_, err := c.Health(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration", err)
	}
}

func TestUnreachableDaemonIsExternal(t *testing.T) {
	c := New("127.0.0.1:1", "")
	_, err := c.Health(context.Background())
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("err = %v, want external", err)
	}
}

func TestBareHostPortGetsScheme(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.HealthResponse{Running: true})
	}))
	defer server.Close()

	c := New(server.Listener.Addr().String(), "")
	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !health.Running {
		t.Fatal("health should report running")
	}
}
