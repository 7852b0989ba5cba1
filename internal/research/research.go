// Package research implements the enrichment stage: each participant is run
// through a search-grounded model, seeded with their professional profile
// when a profile URL is available. Failures are isolated per participant so
// one dead lookup never sinks the batch.
package research

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
	"herald/internal/services/gemini"
	"herald/internal/services/profile"
	"herald/internal/stage"
	"herald/internal/worker"
)

// Researcher is the slice of the grounded-research client the stage uses.
type Researcher interface {
	Research(ctx context.Context, prompt string) (*gemini.Synthesis, error)
}

// ProfileLookup resolves a professional-profile URL to structured facts.
type ProfileLookup interface {
	Lookup(ctx context.Context, profileURL string) (*profile.Profile, error)
}

// Stage enriches participants with background research.
type Stage struct {
	researcher Researcher
	profiles   ProfileLookup
	opts       worker.Options
	keyIsSet   bool
	logger     *slog.Logger
}

// New builds the research stage.
func New(cfg *config.Config, researcher Researcher, profiles ProfileLookup, logger *slog.Logger) *Stage {
	return &Stage{
		researcher: researcher,
		profiles:   profiles,
		opts: worker.Options{
			Workers:      cfg.Workflow.Workers,
			MaxRetries:   cfg.Workflow.ItemRetries,
			ItemTimeout:  time.Duration(cfg.Research.TimeoutSeconds) * time.Second,
			RateLimitRPS: cfg.Workflow.RateLimitRPS,
		},
		keyIsSet: strings.TrimSpace(cfg.Research.APIKey) != "",
		logger:   logging.NewComponentLogger(logger, "research"),
	}
}

// Name implements stage.Handler.
func (s *Stage) Name() campaign.Stage {
	return campaign.StageResearch
}

// HealthCheck implements stage.Handler.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if !s.keyIsSet {
		return stage.Unhealthy("research", "research API key is not configured")
	}
	return stage.Healthy("research")
}

// Execute implements stage.Handler. It always leaves run.Enriched with one
// slot per participant in input order. With skip_research set it only builds
// the empty slots; no collaborator is called.
func (s *Stage) Execute(ctx context.Context, run *stage.Run, publish stage.Progress) error {
	run.Enriched = make([]campaign.EnrichedParticipant, len(run.Participants))
	for i, participant := range run.Participants {
		run.Enriched[i] = campaign.EnrichedParticipant{Participant: participant}
	}

	if run.Job.Submission.SkipResearch {
		publish(1, "research skipped by request")
		return nil
	}
	if s.researcher == nil || !s.keyIsSet {
		return services.Wrap(services.ErrConfiguration, "research", "execute", "research.api_key is not set", nil)
	}

	total := len(run.Participants)
	publish(0, fmt.Sprintf("researching %d participants", total))

	results, err := worker.ProcessAllWithCallback(ctx, run.Participants,
		func(ctx context.Context, participant campaign.Participant) (*campaign.ResearchResult, error) {
			return s.researchOne(ctx, participant, run.Job.Submission.Sender)
		},
		func(completed int, _ worker.Result[*campaign.ResearchResult]) {
			publish(float64(completed)/float64(total),
				fmt.Sprintf("researched %d of %d participants", completed, total))
		},
		s.opts,
	)
	if err != nil {
		return err
	}

	itemErrors := make([]error, len(results))
	for i, res := range results {
		itemErrors[i] = res.Err
		if res.Err != nil {
			// The participant still flows to generation with raw fields only,
			// but the slot records that research came up empty.
			run.Enriched[i].ResearchNote = fmt.Sprintf("research failed (%s)", services.Category(res.Err))
			s.logger.Warn("participant research failed",
				logging.String(logging.FieldJobID, run.Job.ID),
				logging.String("participant", run.Participants[i].Name),
				logging.Error(res.Err))
			continue
		}
		run.Enriched[i].Research = res.Output
	}

	if systemic := stage.SystemicFailure(itemErrors); systemic != nil {
		return systemic
	}
	return nil
}

func (s *Stage) researchOne(ctx context.Context, participant campaign.Participant, sender campaign.Sender) (*campaign.ResearchResult, error) {
	var profileFacts string
	if s.profiles != nil && participant.ProfileURL != "" {
		found, err := s.profiles.Lookup(ctx, participant.ProfileURL)
		if err != nil {
			// Profile enrichment is a bonus signal; grounded search still
			// has the name and company to work with.
			s.logger.Debug("profile lookup failed",
				logging.String("participant", participant.Name),
				logging.Error(err))
		} else if found != nil {
			profileFacts = formatProfile(found)
		}
	}

	synthesis, err := s.researcher.Research(ctx, buildPrompt(participant, sender, profileFacts))
	if err != nil {
		return nil, err
	}
	return &campaign.ResearchResult{
		Summary: synthesis.Summary,
		Sources: synthesis.Sources,
	}, nil
}

func formatProfile(p *profile.Profile) string {
	var parts []string
	for _, pair := range []struct{ label, value string }{
		{"Full name", p.FullName},
		{"Occupation", p.Occupation},
		{"Headline", p.Headline},
		{"Summary", p.Summary},
		{"Location", strings.TrimSpace(strings.TrimPrefix(p.City+", "+p.Country, ", "))},
	} {
		if strings.TrimSpace(pair.value) != "" {
			parts = append(parts, pair.label+": "+pair.value)
		}
	}
	return strings.Join(parts, "\n")
}

func buildPrompt(participant campaign.Participant, sender campaign.Sender, profileFacts string) string {
	var b strings.Builder
	b.WriteString("Research the following professional for a business-development briefing.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", participant.Name)
	if participant.Role != "" {
		fmt.Fprintf(&b, "Role: %s\n", participant.Role)
	}
	fmt.Fprintf(&b, "Company: %s\n", participant.Company)
	if participant.Country != "" {
		fmt.Fprintf(&b, "Country: %s\n", participant.Country)
	}
	if participant.Notes != "" {
		fmt.Fprintf(&b, "Additional context: %s\n", participant.Notes)
	}
	if profileFacts != "" {
		b.WriteString("\nKnown profile facts:\n")
		b.WriteString(profileFacts)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nThe briefing is for %s, whose company is: %s\n", sender.Company, sender.CompanyDescription)
	b.WriteString("\nSummarize their career trajectory, notable work, and their company's ")
	b.WriteString("products and market position. Highlight anything relevant to a potential ")
	b.WriteString("collaboration with the requester's company. Keep it factual; say so when ")
	b.WriteString("information cannot be found.")
	return b.String()
}
