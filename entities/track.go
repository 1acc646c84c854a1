package entities

import (
	"time"

	"github.com/google/uuid"
)

// Track is a detected object path within a recording. Archiving excludes a
// track from active views without deleting it.
type Track struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID uuid.UUID  `json:"recording_id" gorm:"type:uuid;not null;index:idx_tracks_recording_id"`
	ArchivedAt  *time.Time `json:"archived_at" gorm:"type:timestamptz"`
	CreatedAt   time.Time  `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`

	TrackTags []TrackTag `json:"track_tags,omitempty" gorm:"foreignKey:TrackID"`
}

func (Track) TableName() string {
	return "tracks"
}

func (t *Track) Active() bool {
	return t.ArchivedAt == nil
}

type TrackTag struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TrackID   uuid.UUID `json:"track_id" gorm:"type:uuid;not null;index:idx_track_tags_track_id"`
	What      *string   `json:"what" gorm:"type:varchar(255)"`
	Detail    *string   `json:"detail" gorm:"type:varchar(255)"`
	Automatic bool      `json:"automatic" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (TrackTag) TableName() string {
	return "track_tags"
}
