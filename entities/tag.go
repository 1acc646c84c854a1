package entities

import (
	"time"

	"github.com/google/uuid"
)

// Tag labels a whole recording. What and Detail are free text; Detail is only
// consulted for the synthetic "interesting" name filter.
type Tag struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID uuid.UUID  `json:"recording_id" gorm:"type:uuid;not null;index:idx_tags_recording_id"`
	What        *string    `json:"what" gorm:"type:varchar(255)"`
	Detail      *string    `json:"detail" gorm:"type:varchar(255)"`
	Automatic   bool       `json:"automatic" gorm:"not null;default:false"`
	TaggerID    *uuid.UUID `json:"tagger_id" gorm:"type:uuid"`
	CreatedAt   time.Time  `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Tag) TableName() string {
	return "tags"
}
