// Package autosave debounces document edits into at most one in-flight write.
//
// A Controller holds a single pending snapshot. Every Schedule replaces it and
// restarts the debounce timer. When the timer fires the snapshot is written:
// created the first time, after which the returned id is adopted, and updated
// from then on. An edit that arrives while a write is running waits in the
// slot and is written once the running write completes and its own timer has
// fired. Snapshots identical to the last one written are skipped.
package autosave

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// DefaultDelay is the debounce window
const DefaultDelay = 2 * time.Second

// DefaultWriteTimeout bounds one create or update
const DefaultWriteTimeout = 30 * time.Second

// Persister stores snapshots of one document
type Persister[T any] interface {
	Create(ctx context.Context, doc T) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, doc T) error
}

// Status is the kind of an Event
type Status string

// Event statuses
const (
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// Event reports progress of a write
type Event struct {
	Status Status     `json:"status"`
	ID     *uuid.UUID `json:"id,omitempty"`
	Error  string     `json:"error,omitempty"`
	At     time.Time  `json:"at"`
}

// Options tune a Controller. Zero values take the defaults.
type Options struct {
	Delay        time.Duration
	WriteTimeout time.Duration
}

// Controller serializes saves of one document
type Controller[T any] struct {
	persister    Persister[T]
	delay        time.Duration
	writeTimeout time.Duration

	mu         sync.Mutex
	id         *uuid.UUID
	pending    *T
	due        bool
	inFlight   bool
	closed     bool
	timer      *time.Timer
	gen        uint64
	written    *[blake2b.Size256]byte
	lastErr    error
	idle       chan struct{}
	idleClosed bool
	subs       map[chan Event]struct{}
}

// New creates a controller. id is the identity of an already stored
// document, or nil if the first write must create it.
func New[T any](p Persister[T], id *uuid.UUID, opts Options) *Controller[T] {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	c := &Controller[T]{
		persister:    p,
		delay:        opts.Delay,
		writeTimeout: opts.WriteTimeout,
		idle:         make(chan struct{}),
		subs:         make(map[chan Event]struct{}),
	}
	if id != nil {
		own := *id
		c.id = &own
	}
	close(c.idle)
	c.idleClosed = true
	return c
}

// ID returns the document identity once it is known
func (c *Controller[T]) ID() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id == nil {
		return uuid.Nil, false
	}
	return *c.id, true
}

// Schedule queues doc for saving after the debounce window, replacing any
// snapshot still waiting
func (c *Controller[T]) Schedule(doc T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.pending = &doc
	c.due = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
	}
	gen := c.gen
	c.timer = time.AfterFunc(c.delay, func() { c.fire(gen) })
	c.updateIdle()
}

// Flush writes the waiting snapshot now and waits until nothing is pending
// or in flight. It returns the error of the last write, if any.
func (c *Controller[T]) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.pending != nil {
		c.due = true
	}
	idle := c.idle
	c.mu.Unlock()

	go c.drain()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close drops any waiting snapshot, waits for a running write, and closes
// subscriber channels. Call Flush first to keep pending edits.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
	}
	c.updateIdle()
	idle := c.idle
	c.mu.Unlock()

	<-idle

	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		close(ch)
		delete(c.subs, ch)
	}
}

// Subscribe returns a channel of save events and a function that ends the
// subscription. Events are dropped for a subscriber that falls behind.
func (c *Controller[T]) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
}

func (c *Controller[T]) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.pending == nil {
		c.mu.Unlock()
		return
	}
	c.due = true
	c.mu.Unlock()

	c.drain()
}

// drain writes due snapshots until the slot is empty or holds one whose
// timer has not fired. Only one drain writes at a time.
func (c *Controller[T]) drain() {
	for {
		c.mu.Lock()
		if c.inFlight || c.closed || c.pending == nil || !c.due {
			c.updateIdle()
			c.mu.Unlock()
			return
		}
		doc := *c.pending
		c.pending = nil
		c.due = false
		c.inFlight = true
		id := c.id
		c.mu.Unlock()

		c.write(id, doc)
	}
}

func (c *Controller[T]) write(id *uuid.UUID, doc T) {
	fp, fpOK := fingerprint(doc)

	c.mu.Lock()
	skip := id != nil && fpOK && c.written != nil && *c.written == fp
	c.mu.Unlock()

	var err error
	var newID uuid.UUID
	if !skip {
		c.publish(Event{Status: StatusSaving, ID: id, At: time.Now()})

		ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		if id == nil {
			newID, err = c.persister.Create(ctx, doc)
		} else {
			err = c.persister.Update(ctx, *id, doc)
		}
		cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	switch {
	case skip:
	case err != nil:
		c.lastErr = err
		log.Printf("[autosave] save failed: %v", err)
		c.publishLocked(Event{Status: StatusError, ID: c.id, Error: err.Error(), At: time.Now()})
	default:
		c.lastErr = nil
		if id == nil {
			c.id = &newID
		}
		if fpOK {
			c.written = &fp
		} else {
			c.written = nil
		}
		c.publishLocked(Event{Status: StatusSaved, ID: c.id, At: time.Now()})
	}
	c.updateIdle()
}

func (c *Controller[T]) publish(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked(e)
}

// publishLocked fans e out to subscribers. Callers hold mu.
func (c *Controller[T]) publishLocked(e Event) {
	if e.ID != nil {
		id := *e.ID
		e.ID = &id
	}
	for ch := range c.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// updateIdle opens or closes the idle channel to match the state. Callers hold mu.
func (c *Controller[T]) updateIdle() {
	busy := c.inFlight || (!c.closed && c.pending != nil)
	switch {
	case busy && c.idleClosed:
		c.idle = make(chan struct{})
		c.idleClosed = false
	case !busy && !c.idleClosed:
		close(c.idle)
		c.idleClosed = true
	}
}

// fingerprint hashes the JSON form of doc
func fingerprint(doc any) ([blake2b.Size256]byte, bool) {
	data, err := json.Marshal(doc)
	if err != nil {
		return [blake2b.Size256]byte{}, false
	}
	return blake2b.Sum256(data), true
}
