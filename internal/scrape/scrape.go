// Package scrape implements the participant-collection stage. It discovers
// conference speakers two ways: direct extraction from the conference page
// and web-search discovery against the conference domain. Results are merged,
// deduplicated by name, and capped.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"herald/internal/campaign"
	"herald/internal/config"
	"herald/internal/logging"
	"herald/internal/services"
	"herald/internal/services/search"
	"herald/internal/stage"
)

// Searcher is the slice of the search client the stage depends on.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// PageFetcher loads a conference page for direct extraction. A nil fetcher
// disables direct extraction and the stage relies on search alone.
type PageFetcher interface {
	FetchParticipants(ctx context.Context, pageURL string, credentials *campaign.Credentials) ([]campaign.Participant, error)
}

// Stage collects participants for submissions that carry none.
type Stage struct {
	searcher Searcher
	fetcher  PageFetcher
	limit    int
	timeout  time.Duration
	keyIsSet bool
	logger   *slog.Logger
}

// New builds the scrape stage.
func New(cfg *config.Config, searcher Searcher, fetcher PageFetcher, logger *slog.Logger) *Stage {
	return &Stage{
		searcher: searcher,
		fetcher:  fetcher,
		limit:    cfg.Workflow.MaxScrapedParticipants,
		timeout:  cfg.ScrapeTimeout(),
		keyIsSet: strings.TrimSpace(cfg.Search.APIKey) != "",
		logger:   logging.NewComponentLogger(logger, "scrape"),
	}
}

// Name implements stage.Handler.
func (s *Stage) Name() campaign.Stage {
	return campaign.StageScrape
}

// HealthCheck implements stage.Handler.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if !s.keyIsSet {
		return stage.Unhealthy("scrape", "search API key is not configured")
	}
	return stage.Healthy("scrape")
}

// Execute implements stage.Handler. For submissions with a pre-supplied
// participant list it is a pass-through.
func (s *Stage) Execute(ctx context.Context, run *stage.Run, publish stage.Progress) error {
	submission := run.Job.Submission
	if !submission.NeedsScrape() {
		run.Participants = submission.Participants
		publish(1, fmt.Sprintf("using %d supplied participants", len(run.Participants)))
		return nil
	}

	// Scraping a conference site is minutes-scale work; it gets its own
	// deadline separate from the short per-item research/generate timeouts.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	publish(0, "collecting participants from "+submission.SourceURL)

	collected := make([]campaign.Participant, 0, s.limit)
	seenNames := make(map[string]struct{})

	if s.fetcher != nil {
		fromPage, err := s.fetcher.FetchParticipants(ctx, submission.SourceURL, submission.Credentials)
		if err != nil {
			// Direct extraction is best-effort; search discovery still runs.
			s.logger.Warn("page extraction failed",
				logging.String("url", submission.SourceURL),
				logging.Error(err))
		}
		collected = mergeParticipants(collected, fromPage, seenNames, s.limit)
		publish(0.3, fmt.Sprintf("page extraction found %d participants", len(collected)))
	}

	domain := domainFromURL(submission.SourceURL)
	queries := []string{
		"speakers participants " + domain,
		domain + " conference speakers",
		domain + " event presenters",
	}

	var (
		allResults []search.Result
		searchErrs []error
	)
	for i, query := range queries {
		if len(collected) >= s.limit {
			break
		}
		results, err := s.searcher.Search(ctx, query, 10)
		if err != nil {
			searchErrs = append(searchErrs, err)
			s.logger.Warn("search query failed", logging.String("query", query), logging.Error(err))
			continue
		}
		allResults = append(allResults, results...)
		publish(0.3+0.6*float64(i+1)/float64(len(queries)),
			fmt.Sprintf("searched %d of %d query variants", i+1, len(queries)))
	}

	fromSearch := participantsFromResults(dedupeByLink(allResults), domain, s.limit)
	collected = mergeParticipants(collected, fromSearch, seenNames, s.limit)

	if len(collected) == 0 {
		if len(searchErrs) == len(queries) && len(searchErrs) > 0 {
			return services.Wrap(services.ErrExternal, "scrape", "discover participants",
				"all search queries failed", searchErrs[0])
		}
		return services.Wrap(services.ErrExternal, "scrape", "discover participants",
			"no participants found for "+submission.SourceURL, nil)
	}

	run.Participants = collected
	publish(1, fmt.Sprintf("collected %d participants", len(collected)))
	return nil
}

func mergeParticipants(dst, src []campaign.Participant, seen map[string]struct{}, limit int) []campaign.Participant {
	for _, participant := range src {
		if len(dst) >= limit {
			break
		}
		key := nameKey(participant.Name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, participant)
	}
	return dst
}
