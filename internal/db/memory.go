package db

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/types"
)

// MemoryStore is an IntakeStore held in process memory. It backs the server
// when no database is configured and stands in for Postgres in tests.
// Transactions run on a copy of the data that replaces the original on success.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

var _ IntakeStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), now: time.Now}
}

type memState struct {
	now      func() time.Time
	intakes  map[uuid.UUID]Intake
	versions []IntakeVersion
	activity []IntakeActivity
	shares   []Share
	comments []Comment
	uploads  []UploadedFile
}

func newMemState() *memState {
	return &memState{intakes: make(map[uuid.UUID]Intake)}
}

// clone copies the top-level collections. Records are values, so mutating a
// copied record never reaches the original.
func (s *memState) clone() *memState {
	out := &memState{
		now:      s.now,
		intakes:  make(map[uuid.UUID]Intake, len(s.intakes)),
		versions: append([]IntakeVersion(nil), s.versions...),
		activity: append([]IntakeActivity(nil), s.activity...),
		shares:   append([]Share(nil), s.shares...),
		comments: append([]Comment(nil), s.comments...),
		uploads:  append([]UploadedFile(nil), s.uploads...),
	}
	for k, v := range s.intakes {
		out.intakes[k] = v
	}
	return out
}

// InTx implements IntakeStore
func (m *MemoryStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	work.now = m.now
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) run(fn func(s *memState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.now = m.now
	fn(m.state)
}

// deepCopy round-trips a record through JSON so callers cannot alias nested
// pointers held by the store
func deepCopy[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// -----------------------------------------------------------------------------
// MemoryStore delegates every query to its state under the lock
// -----------------------------------------------------------------------------

func (m *MemoryStore) CreateIntake(ctx context.Context, in *Intake) (out *Intake, err error) {
	m.run(func(s *memState) { out, err = s.CreateIntake(ctx, in) })
	return
}

func (m *MemoryStore) GetIntake(ctx context.Context, id uuid.UUID) (out *Intake, err error) {
	m.run(func(s *memState) { out, err = s.GetIntake(ctx, id) })
	return
}

func (m *MemoryStore) LockIntake(ctx context.Context, id uuid.UUID) (out *Intake, err error) {
	m.run(func(s *memState) { out, err = s.LockIntake(ctx, id) })
	return
}

func (m *MemoryStore) ListIntakes(ctx context.Context, f IntakeFilter) (out []Intake, err error) {
	m.run(func(s *memState) { out, err = s.ListIntakes(ctx, f) })
	return
}

func (m *MemoryStore) SaveIntake(ctx context.Context, in *Intake) (out *Intake, err error) {
	m.run(func(s *memState) { out, err = s.SaveIntake(ctx, in) })
	return
}

func (m *MemoryStore) SoftDeleteIntake(ctx context.Context, id uuid.UUID) (ok bool, err error) {
	m.run(func(s *memState) { ok, err = s.SoftDeleteIntake(ctx, id) })
	return
}

func (m *MemoryStore) NextVersionNumber(ctx context.Context, intakeID uuid.UUID) (n int, err error) {
	m.run(func(s *memState) { n, err = s.NextVersionNumber(ctx, intakeID) })
	return
}

func (m *MemoryStore) CreateVersion(ctx context.Context, v *IntakeVersion) (out *IntakeVersion, err error) {
	m.run(func(s *memState) { out, err = s.CreateVersion(ctx, v) })
	return
}

func (m *MemoryStore) ListVersions(ctx context.Context, intakeID uuid.UUID) (out []IntakeVersion, err error) {
	m.run(func(s *memState) { out, err = s.ListVersions(ctx, intakeID) })
	return
}

func (m *MemoryStore) LogActivity(ctx context.Context, a *IntakeActivity) (err error) {
	m.run(func(s *memState) { err = s.LogActivity(ctx, a) })
	return
}

func (m *MemoryStore) ListActivity(ctx context.Context, intakeID uuid.UUID, limit int) (out []IntakeActivity, err error) {
	m.run(func(s *memState) { out, err = s.ListActivity(ctx, intakeID, limit) })
	return
}

func (m *MemoryStore) UpsertShare(ctx context.Context, sh *Share) (out *Share, created bool, err error) {
	m.run(func(s *memState) { out, created, err = s.UpsertShare(ctx, sh) })
	return
}

func (m *MemoryStore) ListShares(ctx context.Context, intakeID uuid.UUID) (out []Share, err error) {
	m.run(func(s *memState) { out, err = s.ListShares(ctx, intakeID) })
	return
}

func (m *MemoryStore) DeleteShare(ctx context.Context, intakeID, shareID uuid.UUID) (out *Share, err error) {
	m.run(func(s *memState) { out, err = s.DeleteShare(ctx, intakeID, shareID) })
	return
}

func (m *MemoryStore) CreateComment(ctx context.Context, c *Comment) (out *Comment, err error) {
	m.run(func(s *memState) { out, err = s.CreateComment(ctx, c) })
	return
}

func (m *MemoryStore) GetComment(ctx context.Context, intakeID, commentID uuid.UUID) (out *Comment, err error) {
	m.run(func(s *memState) { out, err = s.GetComment(ctx, intakeID, commentID) })
	return
}

func (m *MemoryStore) ListComments(ctx context.Context, f CommentFilter) (out []Comment, err error) {
	m.run(func(s *memState) { out, err = s.ListComments(ctx, f) })
	return
}

func (m *MemoryStore) SetCommentResolved(ctx context.Context, intakeID, commentID uuid.UUID, resolved bool, resolvedBy string) (out *Comment, err error) {
	m.run(func(s *memState) { out, err = s.SetCommentResolved(ctx, intakeID, commentID, resolved, resolvedBy) })
	return
}

func (m *MemoryStore) DeleteComment(ctx context.Context, intakeID, commentID uuid.UUID) (ok bool, err error) {
	m.run(func(s *memState) { ok, err = s.DeleteComment(ctx, intakeID, commentID) })
	return
}

func (m *MemoryStore) CreateUpload(ctx context.Context, f *UploadedFile) (out *UploadedFile, err error) {
	m.run(func(s *memState) { out, err = s.CreateUpload(ctx, f) })
	return
}

func (m *MemoryStore) ListUploads(ctx context.Context, f UploadFilter) (out []UploadedFile, err error) {
	m.run(func(s *memState) { out, err = s.ListUploads(ctx, f) })
	return
}

// -----------------------------------------------------------------------------
// memState implements Queries without locking
// -----------------------------------------------------------------------------

func (s *memState) CreateIntake(_ context.Context, in *Intake) (*Intake, error) {
	rec := deepCopy(*in)
	rec.ID = uuid.New()
	if rec.Status == "" {
		rec.Status = StatusDraft
	}
	if rec.Templates == nil {
		rec.Templates = []types.TemplateHit{}
	}
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt, rec.DeletedAt = now, now, nil
	s.intakes[rec.ID] = rec

	out := deepCopy(rec)
	return &out, nil
}

func (s *memState) GetIntake(_ context.Context, id uuid.UUID) (*Intake, error) {
	rec, ok := s.intakes[id]
	if !ok || rec.DeletedAt != nil {
		return nil, nil
	}
	out := deepCopy(rec)
	return &out, nil
}

func (s *memState) LockIntake(ctx context.Context, id uuid.UUID) (*Intake, error) {
	return s.GetIntake(ctx, id)
}

func (s *memState) ListIntakes(_ context.Context, f IntakeFilter) ([]Intake, error) {
	out := []Intake{}
	for _, rec := range s.intakes {
		if rec.DeletedAt != nil {
			continue
		}
		if f.CreatedBy != "" && rec.CreatedBy != f.CreatedBy {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		out = append(out, deepCopy(rec))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memState) SaveIntake(_ context.Context, in *Intake) (*Intake, error) {
	cur, ok := s.intakes[in.ID]
	if !ok || cur.DeletedAt != nil {
		return nil, nil
	}
	rec := deepCopy(*in)
	rec.CreatedBy, rec.CreatedAt, rec.DeletedAt = cur.CreatedBy, cur.CreatedAt, nil
	rec.UpdatedAt = s.now()
	if !rec.UpdatedAt.After(cur.UpdatedAt) {
		rec.UpdatedAt = cur.UpdatedAt.Add(time.Microsecond)
	}
	s.intakes[rec.ID] = rec

	out := deepCopy(rec)
	return &out, nil
}

func (s *memState) SoftDeleteIntake(_ context.Context, id uuid.UUID) (bool, error) {
	rec, ok := s.intakes[id]
	if !ok || rec.DeletedAt != nil {
		return false, nil
	}
	now := s.now()
	rec.DeletedAt = &now
	s.intakes[id] = rec
	return true, nil
}

func (s *memState) NextVersionNumber(_ context.Context, intakeID uuid.UUID) (int, error) {
	highest := 0
	for _, v := range s.versions {
		if v.IntakeID == intakeID && v.VersionNumber > highest {
			highest = v.VersionNumber
		}
	}
	return highest + 1, nil
}

func (s *memState) CreateVersion(_ context.Context, v *IntakeVersion) (*IntakeVersion, error) {
	for _, existing := range s.versions {
		if existing.IntakeID == v.IntakeID && existing.VersionNumber == v.VersionNumber {
			return nil, &DuplicateError{What: "intake version"}
		}
	}
	rec := *v
	rec.ID = uuid.New()
	rec.Data = append(json.RawMessage(nil), v.Data...)
	rec.ChangedAt = s.now()
	s.versions = append(s.versions, rec)
	return &rec, nil
}

func (s *memState) ListVersions(_ context.Context, intakeID uuid.UUID) ([]IntakeVersion, error) {
	out := []IntakeVersion{}
	for _, v := range s.versions {
		if v.IntakeID == intakeID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (s *memState) LogActivity(_ context.Context, a *IntakeActivity) error {
	rec := deepCopy(*a)
	rec.ID = uuid.New()
	if rec.Details == nil {
		rec.Details = map[string]any{}
	}
	rec.CreatedAt = s.now()
	s.activity = append(s.activity, rec)
	return nil
}

func (s *memState) ListActivity(_ context.Context, intakeID uuid.UUID, limit int) ([]IntakeActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []IntakeActivity{}
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		if s.activity[i].IntakeID == intakeID {
			out = append(out, deepCopy(s.activity[i]))
		}
	}
	return out, nil
}

func (s *memState) UpsertShare(_ context.Context, sh *Share) (*Share, bool, error) {
	now := s.now()
	for i, existing := range s.shares {
		if existing.IntakeID == sh.IntakeID && existing.SharedWith == sh.SharedWith {
			existing.Permission = sh.Permission
			existing.SharedBy = sh.SharedBy
			existing.UpdatedAt = now
			s.shares[i] = existing
			return &existing, false, nil
		}
	}
	rec := *sh
	rec.ID = uuid.New()
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.shares = append(s.shares, rec)
	return &rec, true, nil
}

func (s *memState) ListShares(_ context.Context, intakeID uuid.UUID) ([]Share, error) {
	out := []Share{}
	for i := len(s.shares) - 1; i >= 0; i-- {
		if s.shares[i].IntakeID == intakeID {
			out = append(out, s.shares[i])
		}
	}
	return out, nil
}

func (s *memState) DeleteShare(_ context.Context, intakeID, shareID uuid.UUID) (*Share, error) {
	for i, existing := range s.shares {
		if existing.ID == shareID && existing.IntakeID == intakeID {
			s.shares = append(s.shares[:i:i], s.shares[i+1:]...)
			return &existing, nil
		}
	}
	return nil, nil
}

func (s *memState) CreateComment(_ context.Context, c *Comment) (*Comment, error) {
	rec := *c
	rec.ID = uuid.New()
	rec.Resolved, rec.ResolvedBy, rec.ResolvedAt = false, nil, nil
	rec.CreatedAt = s.now()
	s.comments = append(s.comments, rec)
	return &rec, nil
}

func (s *memState) GetComment(_ context.Context, intakeID, commentID uuid.UUID) (*Comment, error) {
	for _, c := range s.comments {
		if c.ID == commentID && c.IntakeID == intakeID {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memState) ListComments(_ context.Context, f CommentFilter) ([]Comment, error) {
	out := []Comment{}
	for i := len(s.comments) - 1; i >= 0; i-- {
		c := s.comments[i]
		if c.IntakeID != f.IntakeID {
			continue
		}
		if f.Section != "" && c.Section != f.Section {
			continue
		}
		if !f.IncludeResolved && c.Resolved {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *memState) SetCommentResolved(_ context.Context, intakeID, commentID uuid.UUID, resolved bool, resolvedBy string) (*Comment, error) {
	for i, c := range s.comments {
		if c.ID != commentID || c.IntakeID != intakeID {
			continue
		}
		c.Resolved = resolved
		c.ResolvedBy, c.ResolvedAt = nil, nil
		if resolved {
			now := s.now()
			c.ResolvedBy = nullIfEmpty(resolvedBy)
			c.ResolvedAt = &now
		}
		s.comments[i] = c
		return &c, nil
	}
	return nil, nil
}

func (s *memState) DeleteComment(_ context.Context, intakeID, commentID uuid.UUID) (bool, error) {
	for i, c := range s.comments {
		if c.ID == commentID && c.IntakeID == intakeID {
			s.comments = append(s.comments[:i:i], s.comments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *memState) CreateUpload(_ context.Context, f *UploadedFile) (*UploadedFile, error) {
	rec := *f
	rec.ID = uuid.New()
	rec.CreatedAt = s.now()
	s.uploads = append(s.uploads, rec)

	out := rec
	out.FileContent = nil
	return &out, nil
}

func (s *memState) ListUploads(_ context.Context, f UploadFilter) ([]UploadedFile, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultUploadListLimit
	}
	out := []UploadedFile{}
	for i := len(s.uploads) - 1; i >= 0 && len(out) < limit; i-- {
		u := s.uploads[i]
		if f.UserID != "" && u.UserID != f.UserID {
			continue
		}
		u.FileContent = nil
		out = append(out, u)
	}
	return out, nil
}
