package ashby

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/smart-intake/internal/types"
)

// PushResult counts what a push created in the ATS
type PushResult struct {
	StagesCreated  int      `json:"stagesCreated"`
	FormsLinked    int      `json:"formsLinked"`
	TotalStages    int      `json:"totalStages"`
	TotalTemplates int      `json:"totalTemplates"`
	Failures       []string `json:"failures,omitempty"`
}

// PushLoop creates one interview stage per loop stage and links every ATS form
// among the templates. Individual stage or form failures are recorded and the
// push continues; only a missing job aborts it.
func (c *Client) PushLoop(ctx context.Context, jobID string, plan types.LoopPlan, templates []types.TemplateHit) (*PushResult, error) {
	if _, err := c.GetJob(ctx, jobID); err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	forms := FormIDs(templates)
	result := &PushResult{TotalStages: len(plan.Stages), TotalTemplates: len(forms)}

	for _, stage := range plan.Stages {
		_, err := c.CreateInterviewStage(ctx, StageRequest{
			JobID:           jobID,
			Title:           stage.Name,
			Description:     stage.Intent,
			DurationMinutes: stage.DurationMins,
		})
		if err != nil {
			log.Printf("[ashby] failed to create stage %q: %v", stage.Name, err)
			result.Failures = append(result.Failures, fmt.Sprintf("stage %q: %v", stage.Name, err))
			continue
		}
		result.StagesCreated++
	}

	for _, formID := range forms {
		if err := c.LinkForm(ctx, jobID, formID); err != nil {
			log.Printf("[ashby] failed to link form %s: %v", formID, err)
			result.Failures = append(result.Failures, fmt.Sprintf("form %s: %v", formID, err))
			continue
		}
		result.FormsLinked++
	}

	log.Printf("[ashby] pushed job %s: %d/%d stages, %d/%d forms",
		jobID, result.StagesCreated, result.TotalStages, result.FormsLinked, result.TotalTemplates)
	return result, nil
}

// FormIDs returns the distinct ids of ATS form hits in order
func FormIDs(templates []types.TemplateHit) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range templates {
		if t.Source != types.SourceATSForm || t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		ids = append(ids, t.ID)
	}
	return ids
}
