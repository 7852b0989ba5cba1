package campaign

import (
	"fmt"
	"net/url"
	"strings"

	"herald/internal/services"
)

// Validate checks a submission before any background work starts. Violations
// wrap services.ErrValidation so callers can reject them synchronously.
func (s *Submission) Validate() error {
	var problems []string

	if strings.TrimSpace(s.EventName) == "" {
		problems = append(problems, "event_name is required")
	}
	if strings.TrimSpace(s.Sender.Name) == "" {
		problems = append(problems, "sender.name is required")
	}
	if strings.TrimSpace(s.Sender.Role) == "" {
		problems = append(problems, "sender.role is required")
	}
	if strings.TrimSpace(s.Sender.Company) == "" {
		problems = append(problems, "sender.company is required")
	}

	if len(s.Participants) == 0 {
		if strings.TrimSpace(s.SourceURL) == "" {
			problems = append(problems, "source_url is required when no participants are supplied")
		} else if parsed, err := url.Parse(s.SourceURL); err != nil || parsed.Host == "" {
			problems = append(problems, fmt.Sprintf("source_url %q is not a valid URL", s.SourceURL))
		}
	}

	for i, participant := range s.Participants {
		if strings.TrimSpace(participant.Name) == "" {
			problems = append(problems, fmt.Sprintf("participants[%d].name is required", i))
		}
		if strings.TrimSpace(participant.Company) == "" {
			problems = append(problems, fmt.Sprintf("participants[%d].company is required", i))
		}
	}

	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "", "submit", strings.Join(problems, "; "), nil)
	}
	return nil
}
