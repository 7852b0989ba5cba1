package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"herald/internal/campaign"
	"herald/internal/logging"
	"herald/internal/services"
	"herald/internal/services/search"
	"herald/internal/stage"
	"herald/internal/testsupport"
)

type fakeSearcher struct {
	results map[string][]search.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func newStage(t *testing.T, searcher Searcher, fetcher PageFetcher) *Stage {
	t.Helper()
	return New(testsupport.NewConfig(t), searcher, fetcher, logging.NewNop())
}

func runOf(sub campaign.Submission) *stage.Run {
	return &stage.Run{Job: &campaign.Job{ID: "job-1", Submission: sub}}
}

func noProgress(float64, string) {}

func TestExecutePassThroughWithSuppliedParticipants(t *testing.T) {
	searcher := &fakeSearcher{}
	s := newStage(t, searcher, nil)

	run := runOf(testsupport.Submission(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
		campaign.Participant{Name: "Sam Ortiz", Company: "Widget Labs"},
	))
	if err := s.Execute(context.Background(), run, noProgress); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(run.Participants) != 2 {
		t.Fatalf("participants = %d", len(run.Participants))
	}
	if searcher.calls != 0 {
		t.Fatal("supplied participants must not trigger search")
	}
}

func TestExecuteDiscoversFromSearchTitles(t *testing.T) {
	domain := "devworld.example.com"
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"speakers participants " + domain: {
			{Title: "Ada Park - CTO at Looply", Link: "https://a", Snippet: "keynote on infra"},
			{Title: "Home - DevWorld", Link: "https://nav"},
			{Title: "Ada Park - CTO at Looply", Link: "https://a"},
		},
		domain + " conference speakers": {
			{Title: "Sam Ortiz | Widget Labs", Link: "https://b"},
			{Title: "Lena Fox: " + strings.Repeat("very long role ", 10), Link: "https://c"},
		},
	}}
	s := newStage(t, searcher, nil)

	run := runOf(testsupport.Submission())
	if err := s.Execute(context.Background(), run, noProgress); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(run.Participants) != 3 {
		t.Fatalf("participants = %+v", run.Participants)
	}
	first := run.Participants[0]
	if first.Name != "Ada Park" || first.Role != "CTO at Looply" || first.Company != domain {
		t.Fatalf("first = %+v", first)
	}
	// Overlong role text is treated as noise, the name still counts.
	if run.Participants[2].Name != "Lena Fox" || run.Participants[2].Role != "" {
		t.Fatalf("third = %+v", run.Participants[2])
	}
}

func TestExecuteCapsParticipants(t *testing.T) {
	domain := "devworld.example.com"
	var results []search.Result
	for i := 0; i < 30; i++ {
		results = append(results, search.Result{
			Title: fmt.Sprintf("Person %02d - Speaker", i),
			Link:  fmt.Sprintf("https://r/%d", i),
		})
	}
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"speakers participants " + domain: results,
	}}
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.MaxScrapedParticipants = 10
	s := New(cfg, searcher, nil, logging.NewNop())

	run := runOf(testsupport.Submission())
	if err := s.Execute(context.Background(), run, noProgress); err != nil {
		t.Fatal(err)
	}
	if len(run.Participants) != 10 {
		t.Fatalf("participants = %d, want cap 10", len(run.Participants))
	}
}

func TestExecuteFailsWhenNothingFound(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]search.Result{}}
	s := newStage(t, searcher, nil)

	run := runOf(testsupport.Submission())
	err := s.Execute(context.Background(), run, noProgress)
	if err == nil {
		t.Fatal("expected stage failure when no participants are found")
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("err = %v", err)
	}
}

func TestExecuteFailsWhenAllQueriesError(t *testing.T) {
	searcher := &fakeSearcher{err: services.Wrap(services.ErrTransient, "scrape", "search", "down", nil)}
	s := newStage(t, searcher, nil)

	run := runOf(testsupport.Submission())
	err := s.Execute(context.Background(), run, noProgress)
	if err == nil {
		t.Fatal("expected stage failure")
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("err = %v", err)
	}
}

func TestHTMLFetcherExtractsSpeakers(t *testing.T) {
	page := `<html><body>
		<div class="speaker">
			<h3>Ada Park</h3>
			<p class="role">CTO</p>
			<span class="company">Looply</span>
			<a href="https://linkedin.com/in/ada">profile</a>
		</div>
		<div class="speaker">
			<h3>Sam Ortiz</h3>
			<p class="role">Founder</p>
		</div>
	</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "attendee" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	fetcher := NewHTMLFetcher(0)
	got, err := fetcher.FetchParticipants(context.Background(), server.URL,
		&campaign.Credentials{Username: "attendee", Password: "secret"})
	if err != nil {
		t.Fatalf("FetchParticipants: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("participants = %+v", got)
	}
	if got[0].Name != "Ada Park" || got[0].Role != "CTO" || got[0].Company != "Looply" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[0].ProfileURL != "https://linkedin.com/in/ada" {
		t.Fatalf("profile url = %q", got[0].ProfileURL)
	}
}

func TestDomainFromURL(t *testing.T) {
	cases := map[string]string{
		"https://devworld.example.com/speakers": "devworld.example.com",
		"http://conf.io":                        "conf.io",
		"conf.io/agenda":                        "conf.io",
	}
	for input, want := range cases {
		if got := domainFromURL(input); got != want {
			t.Errorf("domainFromURL(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNameKeyCollapsesCaseAndAccents(t *testing.T) {
	if nameKey("JOSÉ García") != nameKey("josé garcía") {
		t.Error("composed and decomposed accents should share a key")
	}
	if nameKey("Ada Park") == nameKey("Sam Ortiz") {
		t.Error("distinct names must not collide")
	}
}
