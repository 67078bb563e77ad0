package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/autosave"
	"github.com/jonathan/smart-intake/internal/intake"
	"github.com/jonathan/smart-intake/internal/loop"
)

// AutosaveChangeSummary labels versions written by draft autosave
const AutosaveChangeSummary = "Autosaved draft"

// intakePersister stores draft snapshots through the intake service on
// behalf of the actor who opened the draft
type intakePersister struct {
	svc   *intake.Service
	actor intake.Actor
}

func (p intakePersister) Create(ctx context.Context, patch intake.Patch) (uuid.UUID, error) {
	created, err := p.svc.Create(ctx, p.actor, patch)
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

func (p intakePersister) Update(ctx context.Context, id uuid.UUID, patch intake.Patch) error {
	_, err := p.svc.Update(ctx, p.actor, id, patch)
	return err
}

// DraftSession is one user's in-progress intake. Every change goes through
// Apply, which schedules an autosave of the new draft.
type DraftSession struct {
	Key string

	mu      sync.Mutex
	draft   intake.Draft
	view    *loop.ViewState
	tracker *loop.EnrichmentTracker
	saver   *autosave.Controller[intake.Patch]
}

// DraftView is the client-facing state of a session
type DraftView struct {
	Key                string        `json:"key"`
	Draft              intake.Draft  `json:"draft"`
	View               loop.Snapshot `json:"view"`
	PendingEnrichments int           `json:"pendingEnrichments"`
}

// View returns a copy of the session state
func (d *DraftSession) View() DraftView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

func (d *DraftSession) viewLocked() DraftView {
	draft := d.draft.Clone()
	if id, ok := d.saver.ID(); ok {
		draft.ID = &id
	}
	return DraftView{
		Key:                d.Key,
		Draft:              draft,
		View:               d.view.Snapshot(),
		PendingEnrichments: d.tracker.Pending(),
	}
}

// Draft returns a copy of the current draft
func (d *DraftSession) Draft() intake.Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft.Clone()
}

// Apply runs a transition against the draft. When it reports a change the
// new draft replaces the old one and is scheduled for saving.
func (d *DraftSession) Apply(fn func(intake.Draft, *loop.ViewState) (intake.Draft, bool)) (DraftView, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, changed := fn(d.draft, d.view)
	if changed {
		d.draft = next
		if !next.Empty() {
			patch := next.Patch()
			patch.ChangeSummary = AutosaveChangeSummary
			d.saver.Schedule(patch)
		}
	}
	return d.viewLocked(), changed
}

// Subscribe streams autosave events of the session
func (d *DraftSession) Subscribe() (<-chan autosave.Event, func()) {
	return d.saver.Subscribe()
}

// Flush writes any pending snapshot and waits for it
func (d *DraftSession) Flush(ctx context.Context) error {
	return d.saver.Flush(ctx)
}

// DraftRegistry holds the open draft sessions
type DraftRegistry struct {
	svc   *intake.Service
	delay time.Duration

	mu       sync.Mutex
	sessions map[string]*DraftSession
}

// NewDraftRegistry creates a registry whose sessions save through svc
// after delay of inactivity
func NewDraftRegistry(svc *intake.Service, delay time.Duration) *DraftRegistry {
	return &DraftRegistry{
		svc:      svc,
		delay:    delay,
		sessions: make(map[string]*DraftSession),
	}
}

// Open starts a session. With a non-nil from the session edits that stored
// intake; otherwise the first save creates a new one.
func (r *DraftRegistry) Open(ctx context.Context, actor intake.Actor, from *uuid.UUID) (*DraftSession, error) {
	var (
		draft intake.Draft
		id    *uuid.UUID
	)
	if from != nil {
		in, err := r.svc.Get(ctx, *from)
		if err != nil {
			return nil, err
		}
		draft = intake.FromIntake(in)
		id = &in.ID
	}

	session := &DraftSession{
		Key:     uuid.NewString(),
		draft:   draft,
		view:    loop.NewViewState(),
		tracker: loop.NewEnrichmentTracker(),
		saver: autosave.New[intake.Patch](intakePersister{svc: r.svc, actor: actor}, id, autosave.Options{
			Delay: r.delay,
		}),
	}

	r.mu.Lock()
	r.sessions[session.Key] = session
	r.mu.Unlock()
	return session, nil
}

// Get returns an open session
func (r *DraftRegistry) Get(key string) (*DraftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[key]
	if !ok {
		return nil, &intake.NotFoundError{What: "draft", ID: key}
	}
	return session, nil
}

// Close flushes a session's pending save, cancels its generation requests
// and forgets it. The session is removed even when the final save fails.
func (r *DraftRegistry) Close(ctx context.Context, key string) (DraftView, error) {
	r.mu.Lock()
	session, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()
	if !ok {
		return DraftView{}, &intake.NotFoundError{What: "draft", ID: key}
	}

	session.tracker.CancelAll()
	err := session.saver.Flush(ctx)
	session.saver.Close()
	return session.View(), err
}

// CloseAll closes every session, used on shutdown
func (r *DraftRegistry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	keys := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		keys = append(keys, key)
	}
	r.mu.Unlock()

	for _, key := range keys {
		if _, err := r.Close(ctx, key); err != nil {
			log.Printf("[server] final save of draft %s failed: %v", key, err)
		}
	}
}

// Len returns the number of open sessions
func (r *DraftRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
