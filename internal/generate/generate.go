// Package generate implements the drafting stage: one personalized outreach
// message per participant, written by the chat-completion collaborator from
// the participant's fields, their research record when present, and the
// sender's context.
package generate

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
	"herald/internal/stage"
	"herald/internal/worker"
)

const systemPrompt = "You are an expert in business development and networking communications."

// Completer is the slice of the chat client the stage uses.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Stage drafts outreach messages.
type Stage struct {
	completer Completer
	opts      worker.Options
	keyIsSet  bool
	logger    *slog.Logger
}

// New builds the generate stage.
func New(cfg *config.Config, completer Completer, logger *slog.Logger) *Stage {
	return &Stage{
		completer: completer,
		opts: worker.Options{
			Workers:      cfg.Workflow.Workers,
			MaxRetries:   cfg.Workflow.ItemRetries,
			ItemTimeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			RateLimitRPS: cfg.Workflow.RateLimitRPS,
		},
		keyIsSet: strings.TrimSpace(cfg.LLM.APIKey) != "",
		logger:   logging.NewComponentLogger(logger, "generate"),
	}
}

// Name implements stage.Handler.
func (s *Stage) Name() campaign.Stage {
	return campaign.StageGenerate
}

// HealthCheck implements stage.Handler.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if !s.keyIsSet {
		return stage.Unhealthy("generate", "llm API key is not configured")
	}
	return stage.Healthy("generate")
}

// Execute implements stage.Handler. A failed draft annotates its slot and
// leaves the message empty; the job only fails when the collaborator is down
// for everyone.
func (s *Stage) Execute(ctx context.Context, run *stage.Run, publish stage.Progress) error {
	if len(run.Enriched) == 0 {
		return services.Wrap(services.ErrValidation, "generate", "draft messages",
			"no participants to draft for", nil)
	}

	total := len(run.Enriched)
	publish(0, fmt.Sprintf("drafting %d messages", total))

	indexes := make([]int, total)
	for i := range indexes {
		indexes[i] = i
	}

	results, err := worker.ProcessAllWithCallback(ctx, indexes,
		func(ctx context.Context, i int) (string, error) {
			item := run.Enriched[i]
			return s.completer.Complete(ctx, systemPrompt,
				buildPrompt(run.Job.Submission.EventName, item, run.Job.Submission.Sender))
		},
		func(completed int, _ worker.Result[string]) {
			publish(float64(completed)/float64(total),
				fmt.Sprintf("drafted %d of %d messages", completed, total))
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
			run.Enriched[i].Message = ""
			run.Enriched[i].FailureNote = fmt.Sprintf("message generation failed (%s)", services.Category(res.Err))
			s.logger.Warn("message generation failed",
				logging.String(logging.FieldJobID, run.Job.ID),
				logging.String("participant", run.Enriched[i].Name),
				logging.Error(res.Err))
			continue
		}
		run.Enriched[i].Message = res.Output
	}

	if systemic := stage.SystemicFailure(itemErrors); systemic != nil {
		return systemic
	}
	return nil
}

func buildPrompt(eventName string, item campaign.EnrichedParticipant, sender campaign.Sender) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a highly personalized networking message from %s (%s at %s) to %s",
		sender.Name, sender.Role, sender.Company, item.Name)
	if item.Role != "" || item.Company != "" {
		fmt.Fprintf(&b, " (%s at %s)", item.Role, item.Company)
	}
	fmt.Fprintf(&b, ". Both are attending %s.\n\n", eventName)

	if item.Research != nil && item.Research.Summary != "" {
		b.WriteString("RESEARCH SUMMARY:\n")
		b.WriteString(item.Research.Summary)
		b.WriteString("\n\n")
	} else {
		b.WriteString("No research is available; write from the participant's ")
		b.WriteString("name, role, and company alone, without inventing facts.\n\n")
	}
	if item.Notes != "" {
		fmt.Fprintf(&b, "ADDITIONAL CONTEXT:\n%s\n\n", item.Notes)
	}
	if sender.CompanyDescription != "" {
		fmt.Fprintf(&b, "SENDER'S COMPANY:\n%s\n\n", sender.CompanyDescription)
	}

	b.WriteString("Guidelines:\n")
	b.WriteString("1. Warm and professional, 150-250 words, emphasizing mutual benefit.\n")
	fmt.Fprintf(&b, "2. Mention %s by name as the connection point.\n", eventName)
	b.WriteString("3. Reference specific details from the research when available.\n")
	b.WriteString("4. Propose concrete collaboration value and ask for a meeting at the event.\n")
	fmt.Fprintf(&b, "5. Sign off as:\n%s\n%s, %s\n\n", sender.Name, sender.Role, sender.Company)
	b.WriteString("Return only the message text, no preamble and no JSON.")
	return b.String()
}
