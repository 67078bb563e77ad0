// Package loop edits interview loop plans. Every operation returns a new plan,
// leaves its input untouched, and keeps TotalMins equal to the sum of stage
// durations.
package loop

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/types"
)

// Placeholder content for a newly added stage
const (
	NewStageName     = "New Stage"
	NewStageIntent   = "Define the purpose of this interview stage"
	NewStageDuration = 45
)

// Direction is the way MoveStage shifts a stage
type Direction int

const (
	// Up moves a stage one position earlier
	Up Direction = iota
	// Down moves a stage one position later
	Down
)

// ParseDirection reads "up" or "down"
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, true
	case "down":
		return Down, true
	}
	return 0, false
}

// Normalize assigns ids to stages that lack one and recomputes TotalMins
func Normalize(p types.LoopPlan) types.LoopPlan {
	out := p.Clone()
	for i := range out.Stages {
		if out.Stages[i].ID == "" {
			out.Stages[i].ID = uuid.New().String()
		}
	}
	if out.Risks == nil {
		out.Risks = []string{}
	}
	return withTotal(out)
}

// AddStage appends a placeholder stage
func AddStage(p types.LoopPlan) types.LoopPlan {
	out := p.Clone()
	out.Stages = append(out.Stages, types.Stage{
		ID:               uuid.New().String(),
		Name:             NewStageName,
		Intent:           NewStageIntent,
		DurationMins:     NewStageDuration,
		Signals:          []string{"Competency"},
		InterviewerHints: []string{"TBD"},
	})
	return withTotal(out)
}

// DeleteStage removes stage i. The last remaining stage cannot be deleted;
// in that case, or for an out-of-range index, the plan comes back unchanged
// with false.
func DeleteStage(p types.LoopPlan, i int) (types.LoopPlan, bool) {
	if len(p.Stages) <= 1 || !inRange(p, i) {
		return p, false
	}
	out := p.Clone()
	out.Stages = append(out.Stages[:i], out.Stages[i+1:]...)
	return withTotal(out), true
}

// MoveStage swaps stage i with its neighbour. Moving past either end is a no-op.
func MoveStage(p types.LoopPlan, i int, dir Direction) (types.LoopPlan, bool) {
	j := Target(i, dir)
	if !inRange(p, i) || !inRange(p, j) {
		return p, false
	}
	out := p.Clone()
	out.Stages[i], out.Stages[j] = out.Stages[j], out.Stages[i]
	return withTotal(out), true
}

// Target returns the index stage i moves to in direction dir
func Target(i int, dir Direction) int {
	if dir == Down {
		return i + 1
	}
	return i - 1
}

// RenameStage sets the name of stage i. Blank names are rejected.
func RenameStage(p types.LoopPlan, i int, name string) (types.LoopPlan, bool) {
	name = strings.TrimSpace(name)
	if name == "" || !inRange(p, i) {
		return p, false
	}
	out := p.Clone()
	out.Stages[i].Name = name
	return withTotal(out), true
}

// UpdateStage replaces stage i wholesale. The stage keeps its id and must
// carry a name and a positive duration.
func UpdateStage(p types.LoopPlan, i int, stage types.Stage) (types.LoopPlan, bool) {
	name := strings.TrimSpace(stage.Name)
	if !inRange(p, i) || name == "" || stage.DurationMins <= 0 {
		return p, false
	}
	out := p.Clone()
	stage = stage.Clone()
	stage.ID = out.Stages[i].ID
	stage.Name = name
	out.Stages[i] = stage
	return withTotal(out), true
}

// SetStageDuration changes the length of stage i. Durations must be positive.
func SetStageDuration(p types.LoopPlan, i, mins int) (types.LoopPlan, bool) {
	if !inRange(p, i) || mins <= 0 {
		return p, false
	}
	out := p.Clone()
	out.Stages[i].DurationMins = mins
	return withTotal(out), true
}

// IndexOf returns the position of the stage with id, or -1
func IndexOf(p types.LoopPlan, id string) int {
	if id == "" {
		return -1
	}
	for i, s := range p.Stages {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func inRange(p types.LoopPlan, i int) bool {
	return i >= 0 && i < len(p.Stages)
}

func withTotal(p types.LoopPlan) types.LoopPlan {
	p.TotalMins = p.SumDurations()
	return p
}
