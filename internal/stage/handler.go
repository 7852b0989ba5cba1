// Package stage defines the contract between the workflow manager and the
// pipeline stages, plus the run state a job carries from stage to stage.
package stage

import (
	"context"

	"herald/internal/campaign"
)

// Run is the mutable state of one job execution. The workflow manager owns
// it; stages read what earlier stages produced and append their own output.
type Run struct {
	Job *campaign.Job

	// Participants is the working list: the submitted batch, or the scrape
	// stage's output when the submission carried none.
	Participants []campaign.Participant

	// Enriched is filled by the research and generate stages, one slot per
	// participant in input order.
	Enriched []campaign.EnrichedParticipant
}

// Progress publishes a within-stage completion fraction in [0,1] with a
// human-readable message. Implementations must be safe for concurrent use.
type Progress func(fraction float64, message string)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Name() campaign.Stage
	Execute(ctx context.Context, run *Run, publish Progress) error
	HealthCheck(ctx context.Context) Health
}
