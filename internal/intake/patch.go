package intake

import (
	"encoding/json"
	"time"

	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/types"
)

// DefaultChangeSummary labels a version when the caller gives no summary
const DefaultChangeSummary = "Updated intake"

// Optional is a JSON field that distinguishes absent from null. Set is true
// whenever the key was present; Value is nil for an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Set wraps a value, nil included, as present
func Set[T any](v *T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// UnmarshalJSON implements json.Unmarshaler. It only runs for keys that are present.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON implements json.Marshaler
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

// Patch is a partial update of an intake. Nil string fields and unset
// Optionals are left alone.
type Patch struct {
	Title          *string                               `json:"title,omitempty"`
	Status         *string                               `json:"status,omitempty" validate:"omitempty,oneof=draft in_review approved published"`
	Level          *string                               `json:"level,omitempty"`
	JobTitle       *string                               `json:"job_title,omitempty"`
	HiringManager  *string                               `json:"hiring_manager,omitempty"`
	Department     *string                               `json:"department,omitempty"`
	JobDescription *string                               `json:"job_description,omitempty"`
	AshbyJobID     *string                               `json:"ashby_job_id,omitempty"`
	ConfluenceURL  *string                               `json:"confluence_url,omitempty"`
	ExtractedData  Optional[types.ExtractedRequirements] `json:"extracted_data"`
	OrgContext     Optional[types.OrgContext]            `json:"org_context"`
	Templates      Optional[[]types.TemplateHit]         `json:"templates"`
	InterviewLoop  Optional[types.LoopPlan]              `json:"interview_loop"`
	ChangeSummary  string                                `json:"change_summary,omitempty"`
}

// Validate rejects values the intake columns do not allow
func (p Patch) Validate() error {
	if p.Status != nil && !db.ValidStatus(*p.Status) {
		return &ValidationError{Field: "status", Message: "must be draft, in_review, approved, or published"}
	}
	return nil
}

// Fields returns the names of the columns the patch sets, in column order
func (p Patch) Fields() []string {
	fields := []string{}
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Title != nil, "title")
	add(p.Status != nil, "status")
	add(p.Level != nil, "level")
	add(p.JobTitle != nil, "job_title")
	add(p.HiringManager != nil, "hiring_manager")
	add(p.Department != nil, "department")
	add(p.JobDescription != nil, "job_description")
	add(p.AshbyJobID != nil, "ashby_job_id")
	add(p.ConfluenceURL != nil, "confluence_url")
	add(p.ExtractedData.Set, "extracted_data")
	add(p.OrgContext.Set, "org_context")
	add(p.Templates.Set, "templates")
	add(p.InterviewLoop.Set, "interview_loop")
	return fields
}

// Apply writes the patch onto in. Moving to the published status stamps
// published_at the first time.
func (p Patch) Apply(in *db.Intake, now time.Time) {
	setString(&in.Title, p.Title)
	setString(&in.Status, p.Status)
	setString(&in.Level, p.Level)
	setString(&in.JobTitle, p.JobTitle)
	setString(&in.HiringManager, p.HiringManager)
	setString(&in.Department, p.Department)
	setString(&in.JobDescription, p.JobDescription)
	setString(&in.AshbyJobID, p.AshbyJobID)
	setString(&in.ConfluenceURL, p.ConfluenceURL)

	if p.ExtractedData.Set {
		in.ExtractedData = p.ExtractedData.Value
	}
	if p.OrgContext.Set {
		in.OrgContext = p.OrgContext.Value
	}
	if p.Templates.Set {
		in.Templates = []types.TemplateHit{}
		if p.Templates.Value != nil {
			in.Templates = *p.Templates.Value
		}
	}
	if p.InterviewLoop.Set {
		in.InterviewLoop = p.InterviewLoop.Value
		if in.InterviewLoop != nil {
			in.InterviewLoop.TotalMins = in.InterviewLoop.SumDurations()
		}
	}

	if in.Status == db.StatusPublished && in.PublishedAt == nil {
		in.PublishedAt = &now
	}
}

// NewIntake builds the intake a create request describes
func (p Patch) NewIntake(createdBy string) *db.Intake {
	in := &db.Intake{CreatedBy: createdBy, Templates: []types.TemplateHit{}}
	p.Apply(in, time.Now())
	return in
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
