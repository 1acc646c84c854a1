package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
	"github.com/m-ahsan-nazer/cacophony-api/filter"
)

// QueryPlan is an executable recording query: composed predicate tree plus
// ordering and pagination. Built by the query service, run by Search.
type QueryPlan struct {
	Where       filter.Expr
	OldestFirst bool
	Limit       int
	Offset      int
}

// RecordingStore is the persistence boundary for recordings and their tags,
// tracks and memberships. Implementations must make FindClaimable skip rows
// locked by concurrent transactions instead of blocking on them.
type RecordingStore interface {
	InTransaction(ctx context.Context, fn func(tx RecordingStore) error) error

	Create(ctx context.Context, rec *entities.Recording) error
	Load(ctx context.Context, id uuid.UUID) (*entities.Recording, error)
	LoadForUpdate(ctx context.Context, id uuid.UUID) (*entities.Recording, error)
	Save(ctx context.Context, rec *entities.Recording) error

	// FindClaimable returns the newest unclaimed recording matching type and
	// stage under a non-blocking row lock, or nil when none is available.
	FindClaimable(ctx context.Context, typ constant.RecordingType, stage constant.ProcessingState) (*entities.Recording, error)

	ListTags(ctx context.Context, recordingID uuid.UUID) ([]*entities.Tag, error)
	DeleteTagsForRecording(ctx context.Context, recordingID uuid.UUID) error
	ListTracks(ctx context.Context, recordingID uuid.UUID, activeOnly bool) ([]*entities.Track, error)
	ArchiveTracks(ctx context.Context, recordingID uuid.UUID) error

	LoadUser(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	DeviceIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	Search(ctx context.Context, plan *QueryPlan) ([]*entities.Recording, int64, error)
}

type store struct {
	db *gorm.DB
}

func NewStore(db *sql.DB) (RecordingStore, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	if err != nil {
		return nil, err
	}
	return &store{db: gormDB}, nil
}

func (s *store) InTransaction(ctx context.Context, fn func(tx RecordingStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

func (s *store) Create(ctx context.Context, rec *entities.Recording) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *store) Load(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	rec := &entities.Recording{}
	err := s.db.WithContext(ctx).First(rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrRecordingNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *store) LoadForUpdate(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	rec := &entities.Recording{}
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrRecordingNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *store) Save(ctx context.Context, rec *entities.Recording) error {
	return s.db.WithContext(ctx).Save(rec).Error
}

func (s *store) FindClaimable(ctx context.Context, typ constant.RecordingType, stage constant.ProcessingState) (*entities.Recording, error) {
	var recs []*entities.Recording
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("type = ? AND processing_state = ? AND processing_start_time IS NULL", typ, stage).
		Order("recording_date_time DESC NULLS LAST").
		Limit(1).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (s *store) ListTags(ctx context.Context, recordingID uuid.UUID) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	err := s.db.WithContext(ctx).Where("recording_id = ?", recordingID).Order("created_at ASC").Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *store) DeleteTagsForRecording(ctx context.Context, recordingID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("recording_id = ?", recordingID).Delete(&entities.Tag{}).Error
}

func (s *store) ListTracks(ctx context.Context, recordingID uuid.UUID, activeOnly bool) ([]*entities.Track, error) {
	q := s.db.WithContext(ctx).Where("recording_id = ?", recordingID)
	if activeOnly {
		q = q.Where("archived_at IS NULL")
	}
	var tracks []*entities.Track
	if err := q.Order("created_at ASC").Find(&tracks).Error; err != nil {
		return nil, err
	}
	return tracks, nil
}

func (s *store) ArchiveTracks(ctx context.Context, recordingID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&entities.Track{}).
		Where("recording_id = ? AND archived_at IS NULL", recordingID).
		Update("archived_at", time.Now().UTC()).Error
}

func (s *store) LoadUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	user := &entities.User{}
	if err := s.db.WithContext(ctx).First(user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *store) GroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&entities.GroupUser{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *store) DeviceIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&entities.DeviceUser{}).
		Where("user_id = ?", userID).
		Pluck("device_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// searchColumns is the projection returned to query callers. Claim internals
// (job key, start time) and the raw payload stay out of query results.
var searchColumns = []string{
	"id", "type", "device_id", "group_id", "public",
	"recording_date_time", "duration", "latitude", "longitude", "comment",
	"file_key", "file_mime_type", "processing_state", "additional_metadata",
	"created_at", "updated_at",
}

func (s *store) Search(ctx context.Context, plan *QueryPlan) ([]*entities.Recording, int64, error) {
	where, args, err := RenderExpr(plan.Where)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = s.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Where(where, args...).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	order := "recording_date_time DESC NULLS LAST"
	if plan.OldestFirst {
		order = "recording_date_time ASC NULLS LAST"
	}

	var recs []*entities.Recording
	err = s.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Select(searchColumns).
		Where(where, args...).
		Order(order).
		Limit(plan.Limit).
		Offset(plan.Offset).
		Preload("Tags").
		Preload("Tracks", "archived_at IS NULL").
		Preload("Tracks.TrackTags").
		Find(&recs).Error
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}
