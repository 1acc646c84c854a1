package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
	"github.com/m-ahsan-nazer/cacophony-api/filter"
	"github.com/m-ahsan-nazer/cacophony-api/pkg/objectstore"
	"github.com/m-ahsan-nazer/cacophony-api/repository"
)

// memStore is an in-memory RecordingStore for tests. A single mutex plays
// the role of the database: InTransaction holds it for the whole callback,
// so a claim's select-and-stamp is atomic exactly as SKIP LOCKED makes it
// against Postgres. Loads hand out copies and Save writes them back, which
// gives failed transactions rollback semantics for the fields under test.
type memStore struct {
	mu sync.Mutex

	recordings  map[uuid.UUID]*entities.Recording
	tags        map[uuid.UUID][]*entities.Tag
	tracks      map[uuid.UUID][]*entities.Track
	trackTags   map[uuid.UUID][]*entities.TrackTag
	users       map[uuid.UUID]*entities.User
	groupUsers  map[uuid.UUID][]uuid.UUID
	deviceUsers map[uuid.UUID][]uuid.UUID

	searchCalls int
}

func newMemStore() *memStore {
	return &memStore{
		recordings:  make(map[uuid.UUID]*entities.Recording),
		tags:        make(map[uuid.UUID][]*entities.Tag),
		tracks:      make(map[uuid.UUID][]*entities.Track),
		trackTags:   make(map[uuid.UUID][]*entities.TrackTag),
		users:       make(map[uuid.UUID]*entities.User),
		groupUsers:  make(map[uuid.UUID][]uuid.UUID),
		deviceUsers: make(map[uuid.UUID][]uuid.UUID),
	}
}

// memTx shares the maps without locking; it only exists inside a held lock.
type memTx struct {
	s *memStore
}

func (m *memStore) InTransaction(ctx context.Context, fn func(tx repository.RecordingStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{s: m})
}

func (m *memStore) locked(fn func(tx *memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{s: m})
}

func (m *memStore) Create(ctx context.Context, rec *entities.Recording) error {
	return m.locked(func(tx *memTx) error { return tx.Create(ctx, rec) })
}

func (m *memStore) Load(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	var rec *entities.Recording
	err := m.locked(func(tx *memTx) (err error) {
		rec, err = tx.Load(ctx, id)
		return
	})
	return rec, err
}

func (m *memStore) LoadForUpdate(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	return m.Load(ctx, id)
}

func (m *memStore) Save(ctx context.Context, rec *entities.Recording) error {
	return m.locked(func(tx *memTx) error { return tx.Save(ctx, rec) })
}

func (m *memStore) FindClaimable(ctx context.Context, typ constant.RecordingType, stage constant.ProcessingState) (*entities.Recording, error) {
	var rec *entities.Recording
	err := m.locked(func(tx *memTx) (err error) {
		rec, err = tx.FindClaimable(ctx, typ, stage)
		return
	})
	return rec, err
}

func (m *memStore) ListTags(ctx context.Context, recordingID uuid.UUID) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	err := m.locked(func(tx *memTx) (err error) {
		tags, err = tx.ListTags(ctx, recordingID)
		return
	})
	return tags, err
}

func (m *memStore) DeleteTagsForRecording(ctx context.Context, recordingID uuid.UUID) error {
	return m.locked(func(tx *memTx) error { return tx.DeleteTagsForRecording(ctx, recordingID) })
}

func (m *memStore) ListTracks(ctx context.Context, recordingID uuid.UUID, activeOnly bool) ([]*entities.Track, error) {
	var tracks []*entities.Track
	err := m.locked(func(tx *memTx) (err error) {
		tracks, err = tx.ListTracks(ctx, recordingID, activeOnly)
		return
	})
	return tracks, err
}

func (m *memStore) ArchiveTracks(ctx context.Context, recordingID uuid.UUID) error {
	return m.locked(func(tx *memTx) error { return tx.ArchiveTracks(ctx, recordingID) })
}

func (m *memStore) LoadUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var user *entities.User
	err := m.locked(func(tx *memTx) (err error) {
		user, err = tx.LoadUser(ctx, id)
		return
	})
	return user, err
}

func (m *memStore) GroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := m.locked(func(tx *memTx) (err error) {
		ids, err = tx.GroupIDsForUser(ctx, userID)
		return
	})
	return ids, err
}

func (m *memStore) DeviceIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := m.locked(func(tx *memTx) (err error) {
		ids, err = tx.DeviceIDsForUser(ctx, userID)
		return
	})
	return ids, err
}

func (m *memStore) Search(ctx context.Context, plan *repository.QueryPlan) ([]*entities.Recording, int64, error) {
	var rows []*entities.Recording
	var total int64
	err := m.locked(func(tx *memTx) (err error) {
		rows, total, err = tx.Search(ctx, plan)
		return
	})
	return rows, total, err
}

func (t *memTx) InTransaction(ctx context.Context, fn func(tx repository.RecordingStore) error) error {
	return fn(t)
}

func (t *memTx) Create(ctx context.Context, rec *entities.Recording) error {
	t.s.recordings[rec.ID] = copyRecording(rec)
	return nil
}

func (t *memTx) Load(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	rec, ok := t.s.recordings[id]
	if !ok {
		return nil, entities.ErrRecordingNotFound
	}
	return copyRecording(rec), nil
}

func (t *memTx) LoadForUpdate(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	return t.Load(ctx, id)
}

func (t *memTx) Save(ctx context.Context, rec *entities.Recording) error {
	if _, ok := t.s.recordings[rec.ID]; !ok {
		return entities.ErrRecordingNotFound
	}
	t.s.recordings[rec.ID] = copyRecording(rec)
	return nil
}

func (t *memTx) FindClaimable(ctx context.Context, typ constant.RecordingType, stage constant.ProcessingState) (*entities.Recording, error) {
	var candidates []*entities.Recording
	for _, rec := range t.s.recordings {
		if rec.Type == typ && rec.ProcessingState == stage && rec.ProcessingStartTime == nil {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sortNewestFirst(candidates)
	return copyRecording(candidates[0]), nil
}

func (t *memTx) ListTags(ctx context.Context, recordingID uuid.UUID) ([]*entities.Tag, error) {
	return append([]*entities.Tag(nil), t.s.tags[recordingID]...), nil
}

func (t *memTx) DeleteTagsForRecording(ctx context.Context, recordingID uuid.UUID) error {
	delete(t.s.tags, recordingID)
	return nil
}

func (t *memTx) ListTracks(ctx context.Context, recordingID uuid.UUID, activeOnly bool) ([]*entities.Track, error) {
	var tracks []*entities.Track
	for _, track := range t.s.tracks[recordingID] {
		if activeOnly && !track.Active() {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (t *memTx) ArchiveTracks(ctx context.Context, recordingID uuid.UUID) error {
	now := time.Now().UTC()
	for _, track := range t.s.tracks[recordingID] {
		if track.ArchivedAt == nil {
			archived := now
			track.ArchivedAt = &archived
		}
	}
	return nil
}

func (t *memTx) LoadUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	user, ok := t.s.users[id]
	if !ok {
		return nil, entities.ErrRecordingNotFound
	}
	return user, nil
}

func (t *memTx) GroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), t.s.groupUsers[userID]...), nil
}

func (t *memTx) DeviceIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), t.s.deviceUsers[userID]...), nil
}

func (t *memTx) Search(ctx context.Context, plan *repository.QueryPlan) ([]*entities.Recording, int64, error) {
	t.s.searchCalls++

	var matched []*entities.Recording
	for _, rec := range t.s.recordings {
		if t.eval(plan.Where, rec) {
			matched = append(matched, rec)
		}
	}
	total := int64(len(matched))

	if plan.OldestFirst {
		sortOldestFirst(matched)
	} else {
		sortNewestFirst(matched)
	}

	if plan.Offset > len(matched) {
		matched = nil
	} else {
		matched = matched[plan.Offset:]
	}
	if plan.Limit > 0 && plan.Limit < len(matched) {
		matched = matched[:plan.Limit]
	}

	rows := make([]*entities.Recording, 0, len(matched))
	for _, rec := range matched {
		rows = append(rows, copyRecording(rec))
	}
	return rows, total, nil
}

// eval mirrors the SQL the repository renders: recording columns at the top
// level, tag columns inside TagExists, NULL never matching = or !=.
func (t *memTx) eval(e filter.Expr, rec *entities.Recording) bool {
	switch v := e.(type) {
	case nil:
		return true
	case filter.True:
		return true
	case filter.Not:
		return !t.eval(v.Expr, rec)
	case filter.And:
		for _, sub := range v {
			if !t.eval(sub, rec) {
				return false
			}
		}
		return true
	case filter.Or:
		for _, sub := range v {
			if t.eval(sub, rec) {
				return true
			}
		}
		return false
	case filter.Cond:
		return evalRecordingCond(v, rec)
	case filter.TagExists:
		if v.Track {
			for _, track := range t.s.tracks[rec.ID] {
				if !track.Active() {
					continue
				}
				for _, tag := range t.s.trackTags[track.ID] {
					if evalTagExpr(v.Where, tag.What, tag.Detail, tag.Automatic) {
						return true
					}
				}
			}
			return false
		}
		for _, tag := range t.s.tags[rec.ID] {
			if evalTagExpr(v.Where, tag.What, tag.Detail, tag.Automatic) {
				return true
			}
		}
		return false
	}
	return false
}

func evalTagExpr(e filter.Expr, what, detail *string, automatic bool) bool {
	switch v := e.(type) {
	case nil:
		return true
	case filter.True:
		return true
	case filter.Not:
		return !evalTagExpr(v.Expr, what, detail, automatic)
	case filter.And:
		for _, sub := range v {
			if !evalTagExpr(sub, what, detail, automatic) {
				return false
			}
		}
		return true
	case filter.Or:
		for _, sub := range v {
			if evalTagExpr(sub, what, detail, automatic) {
				return true
			}
		}
		return false
	case filter.Cond:
		switch v.Column {
		case "automatic":
			want, _ := v.Value.(bool)
			if v.Op == "!=" {
				return automatic != want
			}
			return automatic == want
		case "what":
			return evalNullableString(v, what)
		case "detail":
			return evalNullableString(v, detail)
		}
	}
	return false
}

func evalNullableString(c filter.Cond, value *string) bool {
	if value == nil {
		return false
	}
	want, _ := c.Value.(string)
	if c.Op == "!=" {
		return *value != want
	}
	return *value == want
}

func evalRecordingCond(c filter.Cond, rec *entities.Recording) bool {
	switch c.Column {
	case "public":
		want, _ := c.Value.(bool)
		return rec.Public == want
	case "type":
		return string(rec.Type) == asString(c.Value)
	case "processing_state":
		return string(rec.ProcessingState) == asString(c.Value)
	case "group_id":
		return evalUUIDCond(c, rec.GroupID)
	case "device_id":
		return evalUUIDCond(c, rec.DeviceID)
	case "duration":
		if rec.Duration == nil {
			return false
		}
		want, _ := c.Value.(float64)
		return compareFloat(c.Op, *rec.Duration, want)
	}
	return false
}

func evalUUIDCond(c filter.Cond, id uuid.UUID) bool {
	if c.Op == "IN" {
		ids, _ := c.Value.([]uuid.UUID)
		for _, candidate := range ids {
			if candidate == id {
				return true
			}
		}
		return false
	}
	return asString(c.Value) == id.String()
}

func compareFloat(op string, have, want float64) bool {
	switch op {
	case "=":
		return have == want
	case "!=":
		return have != want
	case "<":
		return have < want
	case "<=":
		return have <= want
	case ">":
		return have > want
	case ">=":
		return have >= want
	}
	return false
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case constant.RecordingType:
		return string(s)
	case constant.ProcessingState:
		return string(s)
	case uuid.UUID:
		return s.String()
	}
	return ""
}

func sortNewestFirst(recs []*entities.Recording) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i].RecordingDateTime, recs[j].RecordingDateTime
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
}

func sortOldestFirst(recs []*entities.Recording) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i].RecordingDateTime, recs[j].RecordingDateTime
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
}

func copyRecording(rec *entities.Recording) *entities.Recording {
	copied := *rec
	if rec.AdditionalMetadata != nil {
		copied.AdditionalMetadata = MergeMetadata(rec.AdditionalMetadata, nil)
	}
	return &copied
}

// fakeObjects records Remove calls and can fail Stat.
type fakeObjects struct {
	mu      sync.Mutex
	removed []string
	statErr error
}

func (f *fakeObjects) Stat(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	return objectstore.ObjectInfo{}, f.statErr
}

func (f *fakeObjects) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	return nil
}
