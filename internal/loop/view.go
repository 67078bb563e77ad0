package loop

import (
	"sort"

	"github.com/jonathan/smart-intake/internal/types"
)

// ViewState tracks which stages are expanded and which one, if any, is being
// renamed. Indices follow the plan, so callers report deletes and moves.
type ViewState struct {
	expanded map[int]bool
	renaming int
	draft    string
}

// NewViewState starts with every stage collapsed and no rename in progress
func NewViewState() *ViewState {
	return &ViewState{expanded: make(map[int]bool), renaming: -1}
}

// ToggleExpand flips stage i between collapsed and expanded and returns the new state
func (v *ViewState) ToggleExpand(i int) bool {
	if v.expanded[i] {
		delete(v.expanded, i)
		return false
	}
	v.expanded[i] = true
	return true
}

// IsExpanded reports whether stage i is expanded
func (v *ViewState) IsExpanded(i int) bool {
	return v.expanded[i]
}

// Expanded returns the expanded indices in ascending order
func (v *ViewState) Expanded() []int {
	out := make([]int, 0, len(v.expanded))
	for i := range v.expanded {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// StartRename enters name editing for stage i with current as the initial text.
// Starting a rename on another stage abandons the previous one.
func (v *ViewState) StartRename(i int, current string) {
	v.renaming = i
	v.draft = current
}

// SetRenameText updates the in-progress name
func (v *ViewState) SetRenameText(text string) {
	if v.renaming >= 0 {
		v.draft = text
	}
}

// Renaming returns the stage being renamed and its draft name
func (v *ViewState) Renaming() (int, string, bool) {
	if v.renaming < 0 {
		return -1, "", false
	}
	return v.renaming, v.draft, true
}

// SaveRename applies the draft name to the plan and leaves editing mode.
// A blank draft leaves the plan unchanged but still ends editing.
func (v *ViewState) SaveRename(p types.LoopPlan) (types.LoopPlan, bool) {
	if v.renaming < 0 {
		return p, false
	}
	out, ok := RenameStage(p, v.renaming, v.draft)
	v.CancelRename()
	return out, ok
}

// CancelRename leaves editing mode without changing the plan
func (v *ViewState) CancelRename() {
	v.renaming = -1
	v.draft = ""
}

// OnDelete keeps the view consistent after stage i was removed: its own
// state is dropped and every later index shifts down by one
func (v *ViewState) OnDelete(i int) {
	shifted := make(map[int]bool, len(v.expanded))
	for idx := range v.expanded {
		switch {
		case idx < i:
			shifted[idx] = true
		case idx > i:
			shifted[idx-1] = true
		}
	}
	v.expanded = shifted

	switch {
	case v.renaming == i:
		v.CancelRename()
	case v.renaming > i:
		v.renaming--
	}
}

// OnMove keeps the view consistent after stages i and j swapped places
func (v *ViewState) OnMove(i, j int) {
	ei, ej := v.expanded[i], v.expanded[j]
	delete(v.expanded, i)
	delete(v.expanded, j)
	if ei {
		v.expanded[j] = true
	}
	if ej {
		v.expanded[i] = true
	}

	switch v.renaming {
	case i:
		v.renaming = j
	case j:
		v.renaming = i
	}
}

// Snapshot is the serializable form of a ViewState
type Snapshot struct {
	Expanded   []int  `json:"expanded"`
	Renaming   *int   `json:"renaming,omitempty"`
	RenameText string `json:"renameText,omitempty"`
}

// Snapshot captures the current view
func (v *ViewState) Snapshot() Snapshot {
	s := Snapshot{Expanded: v.Expanded()}
	if i, text, ok := v.Renaming(); ok {
		s.Renaming = &i
		s.RenameText = text
	}
	return s
}
