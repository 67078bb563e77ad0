package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Title string `json:"title"`
}

type call struct {
	op  string
	id  uuid.UUID
	doc doc
}

// fakePersister records calls. When gate is set each write blocks until a
// value is received on it.
type fakePersister struct {
	mu       sync.Mutex
	calls    []call
	active   int
	overlaps int
	gate     chan struct{}
	started  chan struct{}
	fail     error
	newID    uuid.UUID
}

func newFake() *fakePersister {
	return &fakePersister{newID: uuid.New(), started: make(chan struct{}, 16)}
}

func (f *fakePersister) enter(op string, id uuid.UUID, d doc) error {
	f.mu.Lock()
	f.active++
	if f.active > 1 {
		f.overlaps++
	}
	f.calls = append(f.calls, call{op: op, id: id, doc: d})
	gate := f.gate
	fail := f.fail
	f.mu.Unlock()

	f.started <- struct{}{}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	return fail
}

func (f *fakePersister) Create(_ context.Context, d doc) (uuid.UUID, error) {
	if err := f.enter("create", uuid.Nil, d); err != nil {
		return uuid.Nil, err
	}
	return f.newID, nil
}

func (f *fakePersister) Update(_ context.Context, id uuid.UUID, d doc) error {
	return f.enter("update", id, d)
}

func (f *fakePersister) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

const testDelay = 20 * time.Millisecond

func flush(t *testing.T, c *Controller[doc]) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Flush(ctx)
}

func TestController_DebouncedCreateCarriesLatestEdit(t *testing.T) {
	f := newFake()
	c := New[doc](f, nil, Options{Delay: testDelay})
	defer c.Close()

	c.Schedule(doc{Title: "first"})
	c.Schedule(doc{Title: "second"})

	<-f.started
	require.NoError(t, flush(t, c))

	calls := f.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "create", calls[0].op)
	assert.Equal(t, "second", calls[0].doc.Title)

	id, ok := c.ID()
	require.True(t, ok)
	assert.Equal(t, f.newID, id)
}

func TestController_UpdatesAfterCreate(t *testing.T) {
	f := newFake()
	c := New[doc](f, nil, Options{Delay: testDelay})
	defer c.Close()

	c.Schedule(doc{Title: "v1"})
	require.NoError(t, flush(t, c))
	c.Schedule(doc{Title: "v2"})
	require.NoError(t, flush(t, c))

	calls := f.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "create", calls[0].op)
	assert.Equal(t, "update", calls[1].op)
	assert.Equal(t, f.newID, calls[1].id)
}

func TestController_ExistingIDUpdates(t *testing.T) {
	f := newFake()
	existing := uuid.New()
	c := New[doc](f, &existing, Options{Delay: testDelay})
	defer c.Close()

	c.Schedule(doc{Title: "edit"})
	require.NoError(t, flush(t, c))

	calls := f.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "update", calls[0].op)
	assert.Equal(t, existing, calls[0].id)
}

func TestController_NoOverlappingWrites(t *testing.T) {
	f := newFake()
	f.gate = make(chan struct{})
	c := New[doc](f, nil, Options{Delay: testDelay})
	defer c.Close()

	c.Schedule(doc{Title: "a"})
	<-f.started

	// edits made while the create is in flight collapse into one queued write
	c.Schedule(doc{Title: "b"})
	c.Schedule(doc{Title: "c"})
	time.Sleep(3 * testDelay)
	assert.Len(t, f.snapshot(), 1, "no second write while the first is in flight")

	f.gate <- struct{}{}
	<-f.started
	f.gate <- struct{}{}
	require.NoError(t, flush(t, c))

	calls := f.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "create", calls[0].op)
	assert.Equal(t, "update", calls[1].op)
	assert.Equal(t, "c", calls[1].doc.Title)
	assert.Equal(t, f.newID, calls[1].id)
	assert.Zero(t, f.overlaps)
}

func TestController_SkipsIdenticalSnapshot(t *testing.T) {
	f := newFake()
	c := New[doc](f, nil, Options{Delay: testDelay})
	defer c.Close()

	c.Schedule(doc{Title: "same"})
	require.NoError(t, flush(t, c))
	c.Schedule(doc{Title: "same"})
	require.NoError(t, flush(t, c))

	assert.Len(t, f.snapshot(), 1)
}

func TestController_ErrorEventAndRecovery(t *testing.T) {
	f := newFake()
	f.fail = errors.New("db down")
	c := New[doc](f, nil, Options{Delay: testDelay})
	defer c.Close()

	events, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.Schedule(doc{Title: "x"})
	err := flush(t, c)
	require.EqualError(t, err, "db down")
	_, ok := c.ID()
	assert.False(t, ok)

	assert.Equal(t, StatusSaving, (<-events).Status)
	failed := <-events
	assert.Equal(t, StatusError, failed.Status)
	assert.Equal(t, "db down", failed.Error)

	f.mu.Lock()
	f.fail = nil
	f.mu.Unlock()

	c.Schedule(doc{Title: "x"})
	require.NoError(t, flush(t, c))
	assert.Equal(t, StatusSaving, (<-events).Status)
	saved := <-events
	assert.Equal(t, StatusSaved, saved.Status)
	require.NotNil(t, saved.ID)
	assert.Equal(t, f.newID, *saved.ID)

	calls := f.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "create", calls[1].op, "a failed create is retried as a create")
}

func TestController_CloseDropsPending(t *testing.T) {
	f := newFake()
	c := New[doc](f, nil, Options{Delay: time.Hour})

	events, _ := c.Subscribe()
	c.Schedule(doc{Title: "never"})
	c.Close()

	_, open := <-events
	assert.False(t, open)
	assert.Empty(t, f.snapshot())

	// scheduling after close is ignored
	c.Schedule(doc{Title: "late"})
	require.NoError(t, flush(t, c))
	assert.Empty(t, f.snapshot())
}

func TestController_FlushRespectsContext(t *testing.T) {
	f := newFake()
	f.gate = make(chan struct{})
	c := New[doc](f, nil, Options{Delay: testDelay})

	c.Schedule(doc{Title: "slow"})
	<-f.started

	ctx, cancel := context.WithTimeout(context.Background(), testDelay)
	defer cancel()
	assert.ErrorIs(t, c.Flush(ctx), context.DeadlineExceeded)

	f.gate <- struct{}{}
	c.Close()
}
