// Package intake holds the editable intake draft and the service that
// persists intakes with their versions, activity, shares and comments.
package intake

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/loop"
	"github.com/jonathan/smart-intake/internal/types"
)

// UntitledTitle is the stored title of a draft without a job title
const UntitledTitle = "Untitled Intake"

// Draft is everything a user has produced while building an intake. It is a
// plain value: every Apply function returns a new Draft and leaves its input
// untouched.
type Draft struct {
	ID             *uuid.UUID                   `json:"id,omitempty"`
	JobTitle       string                       `json:"jobTitle"`
	Level          string                       `json:"level"`
	JobDescription string                       `json:"jobDescription"`
	AshbyJobID     string                       `json:"ashbyJobId"`
	Extracted      *types.ExtractedRequirements `json:"extracted"`
	Org            *types.OrgContext            `json:"org"`
	Templates      []types.TemplateHit          `json:"templates"`
	Loop           *types.LoopPlan              `json:"loop"`
}

// Clone returns a deep copy
func (d Draft) Clone() Draft {
	out := d
	if d.ID != nil {
		id := *d.ID
		out.ID = &id
	}
	if d.Extracted != nil {
		e := *d.Extracted
		e.MustHaves = cloneStrings(e.MustHaves)
		e.NiceToHaves = cloneStrings(e.NiceToHaves)
		e.Risks = cloneStrings(e.Risks)
		e.Competencies = append([]types.Competency(nil), e.Competencies...)
		out.Extracted = &e
	}
	if d.Org != nil {
		o := *d.Org
		o.Team = cloneStrings(o.Team)
		o.CrossFunc = cloneStrings(o.CrossFunc)
		out.Org = &o
	}
	if d.Templates != nil {
		out.Templates = append([]types.TemplateHit(nil), d.Templates...)
	}
	if d.Loop != nil {
		p := d.Loop.Clone()
		out.Loop = &p
	}
	return out
}

// Empty reports whether nothing worth saving has been entered yet
func (d Draft) Empty() bool {
	return d.JobTitle == "" && d.Level == "" && d.JobDescription == "" && d.AshbyJobID == "" &&
		d.Extracted == nil && d.Org == nil && len(d.Templates) == 0 && d.Loop == nil
}

// FromIntake rebuilds a draft from a stored intake
func FromIntake(in *db.Intake) Draft {
	id := in.ID
	d := Draft{
		ID:             &id,
		JobTitle:       in.JobTitle,
		Level:          in.Level,
		JobDescription: in.JobDescription,
		AshbyJobID:     in.AshbyJobID,
		Extracted:      in.ExtractedData,
		Org:            in.OrgContext,
		Templates:      in.Templates,
		Loop:           in.InterviewLoop,
	}
	return d.Clone()
}

// Patch returns the stored form of the draft. The hiring manager comes from the
// org context and the department falls back to the extracted job function.
func (d Draft) Patch() Patch {
	c := d.Clone()

	title := c.JobTitle
	if strings.TrimSpace(title) == "" {
		title = UntitledTitle
	}
	manager, department := "", ""
	if c.Org != nil {
		manager, department = c.Org.Manager, c.Org.Department
	}
	if department == "" && c.Extracted != nil {
		department = c.Extracted.Function
	}
	templates := c.Templates
	if templates == nil {
		templates = []types.TemplateHit{}
	}

	return Patch{
		Title:          &title,
		Level:          &c.Level,
		JobTitle:       &c.JobTitle,
		HiringManager:  &manager,
		Department:     &department,
		JobDescription: &c.JobDescription,
		AshbyJobID:     &c.AshbyJobID,
		ExtractedData:  Set(c.Extracted),
		OrgContext:     Set(c.Org),
		Templates:      Set(&templates),
		InterviewLoop:  Set(c.Loop),
	}
}

// -----------------------------------------------------------------------------
// Transitions
// -----------------------------------------------------------------------------

// JobDetails are the free-text fields of a draft. Nil fields are left alone.
type JobDetails struct {
	JobTitle       *string `json:"jobTitle,omitempty"`
	Level          *string `json:"level,omitempty"`
	JobDescription *string `json:"jobDescription,omitempty"`
	AshbyJobID     *string `json:"ashbyJobId,omitempty"`
}

// ApplyJobDetails sets the given free-text fields
func ApplyJobDetails(d Draft, details JobDetails) Draft {
	out := d.Clone()
	if details.JobTitle != nil {
		out.JobTitle = *details.JobTitle
	}
	if details.Level != nil {
		out.Level = *details.Level
	}
	if details.JobDescription != nil {
		out.JobDescription = *details.JobDescription
	}
	if details.AshbyJobID != nil {
		out.AshbyJobID = *details.AshbyJobID
	}
	return out
}

// ApplyExtraction stores extracted requirements. The extracted level fills in
// the draft level when the user has not chosen one.
func ApplyExtraction(d Draft, reqs types.ExtractedRequirements) Draft {
	out := d.Clone()
	out.Extracted = Draft{Extracted: &reqs}.Clone().Extracted
	if out.Level == "" {
		out.Level = reqs.Level
	}
	return out
}

// ApplyOrgContext stores the resolved organization
func ApplyOrgContext(d Draft, org types.OrgContext) Draft {
	out := d.Clone()
	out.Org = Draft{Org: &org}.Clone().Org
	return out
}

// ApplyTemplates replaces the matched templates
func ApplyTemplates(d Draft, hits []types.TemplateHit) Draft {
	out := d.Clone()
	out.Templates = append([]types.TemplateHit{}, hits...)
	return out
}

// ApplyLoop replaces the loop with a freshly synthesized or loaded plan
func ApplyLoop(d Draft, plan types.LoopPlan) Draft {
	out := d.Clone()
	p := loop.Normalize(plan)
	out.Loop = &p
	return out
}

// LoopEdit is one editor operation over a plan, such as loop.AddStage
type LoopEdit func(types.LoopPlan) (types.LoopPlan, bool)

// ApplyLoopEdit runs edit against the draft loop. It reports false, returning
// the draft unchanged, when there is no loop or the edit was rejected.
func ApplyLoopEdit(d Draft, edit LoopEdit) (Draft, bool) {
	if d.Loop == nil {
		return d, false
	}
	plan, ok := edit(*d.Loop)
	if !ok {
		return d, false
	}
	out := d.Clone()
	p := plan.Clone()
	out.Loop = &p
	return out, true
}

// ApplyEnrichment replaces one generated field of one stage. It reports false
// when the stage is gone.
func ApplyEnrichment(d Draft, stageID string, e loop.Enrichment) (Draft, bool) {
	return ApplyLoopEdit(d, func(p types.LoopPlan) (types.LoopPlan, bool) {
		return loop.ReplaceEnrichment(p, stageID, e)
	})
}

// AddStageEdit, DeleteStageEdit and friends adapt the loop editor to LoopEdit

func AddStageEdit() LoopEdit {
	return func(p types.LoopPlan) (types.LoopPlan, bool) { return loop.AddStage(p), true }
}

func DeleteStageEdit(i int) LoopEdit {
	return func(p types.LoopPlan) (types.LoopPlan, bool) { return loop.DeleteStage(p, i) }
}

func MoveStageEdit(i int, dir loop.Direction) LoopEdit {
	return func(p types.LoopPlan) (types.LoopPlan, bool) { return loop.MoveStage(p, i, dir) }
}

func RenameStageEdit(i int, name string) LoopEdit {
	return func(p types.LoopPlan) (types.LoopPlan, bool) { return loop.RenameStage(p, i, name) }
}

func UpdateStageEdit(i int, stage types.Stage) LoopEdit {
	return func(p types.LoopPlan) (types.LoopPlan, bool) { return loop.UpdateStage(p, i, stage) }
}

func SetDurationEdit(i, mins int) LoopEdit {
	return func(p types.LoopPlan) (types.LoopPlan, bool) { return loop.SetStageDuration(p, i, mins) }
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
