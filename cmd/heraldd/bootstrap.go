package main

import (
	"context"
	"strings"

	"log/slog"

	"herald/internal/config"
	"herald/internal/generate"
	"herald/internal/logging"
	"herald/internal/research"
	"herald/internal/scrape"
	"herald/internal/services/gemini"
	"herald/internal/services/llm"
	"herald/internal/services/profile"
	"herald/internal/services/search"
	"herald/internal/workflow"
)

// buildStages wires the concrete pipeline handlers. Collaborators with
// missing credentials stay unconfigured; the affected stage reports
// unhealthy and fails with a configuration error only when a job actually
// needs it.
func buildStages(ctx context.Context, cfg *config.Config, logger *slog.Logger) workflow.StageSet {
	var researcher research.Researcher
	if strings.TrimSpace(cfg.Research.APIKey) != "" {
		client, err := gemini.NewClient(ctx, cfg.Research)
		if err != nil {
			logger.Warn("research client unavailable", logging.Error(err))
		} else {
			researcher = client
		}
	}

	var profiles research.ProfileLookup
	if strings.TrimSpace(cfg.Profile.APIKey) != "" {
		profiles = profile.NewClient(cfg.Profile)
	}

	return workflow.StageSet{
		Scrape: scrape.New(cfg,
			search.NewClient(cfg.Search),
			scrape.NewHTMLFetcher(cfg.ScrapeTimeout()),
			logger),
		Research: research.New(cfg, researcher, profiles, logger),
		Generate: generate.New(cfg, llm.NewClient(cfg.LLM), logger),
	}
}
