package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
)

// Recording is a single upload from a field device, advanced through its
// type's processing pipeline by external workers.
type Recording struct {
	ID       uuid.UUID              `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Type     constant.RecordingType `json:"type" gorm:"type:varchar(32);not null;index:idx_recordings_type_state"`
	DeviceID uuid.UUID              `json:"device_id" gorm:"type:uuid;not null;index:idx_recordings_device_id"`
	GroupID  uuid.UUID              `json:"group_id" gorm:"type:uuid;not null;index:idx_recordings_group_id"`
	Public   bool                   `json:"public" gorm:"not null;default:false"`

	RecordingDateTime *time.Time `json:"recording_date_time" gorm:"type:timestamptz"`
	Duration          *float64   `json:"duration"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	Comment           *string    `json:"comment" gorm:"type:text"`

	// Raw payload, immutable once the upload sets it.
	RawFileKey  string `json:"raw_file_key" gorm:"type:varchar(500);not null"`
	RawMimeType string `json:"raw_mime_type" gorm:"type:varchar(100);not null"`

	// Processed payload, rewritten as pipeline stages progress.
	FileKey      *string `json:"file_key" gorm:"type:varchar(500)"`
	FileMimeType *string `json:"file_mime_type" gorm:"type:varchar(100)"`

	// JobKey and ProcessingStartTime are both null or both non-null: a claim
	// and its token are set and cleared together.
	ProcessingState     constant.ProcessingState `json:"processing_state" gorm:"type:varchar(32);not null;index:idx_recordings_type_state"`
	ProcessingStartTime *time.Time               `json:"processing_start_time" gorm:"type:timestamptz"`
	JobKey              *string                  `json:"job_key" gorm:"type:varchar(64)"`

	AdditionalMetadata datatypes.JSONMap `json:"additional_metadata" gorm:"type:jsonb"`

	Tags   []Tag   `json:"tags,omitempty" gorm:"foreignKey:RecordingID"`
	Tracks []Track `json:"tracks,omitempty" gorm:"foreignKey:RecordingID"`

	CreatedAt time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Recording) TableName() string {
	return "recordings"
}

func (r *Recording) Claimed() bool {
	return r.JobKey != nil
}

func (r *Recording) SetClaim(jobKey string, startedAt time.Time) {
	r.JobKey = &jobKey
	r.ProcessingStartTime = &startedAt
}

func (r *Recording) ClearClaim() {
	r.JobKey = nil
	r.ProcessingStartTime = nil
}

// Location returns the stored coordinates, or nil when the recording has none.
func (r *Recording) Location() *Location {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

func (r *Recording) SetLocation(loc Location) {
	lat, lon := loc.Latitude, loc.Longitude
	r.Latitude = &lat
	r.Longitude = &lon
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
