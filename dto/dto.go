package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
)

// UploadMessage is the validated payload published by the storage boundary
// once a raw file has landed in the object store.
type UploadMessage struct {
	Type               constant.RecordingType `json:"type"`
	DeviceID           uuid.UUID              `json:"deviceId"`
	GroupID            uuid.UUID              `json:"groupId"`
	RawFileKey         string                 `json:"rawFileKey"`
	RawMimeType        string                 `json:"rawMimeType"`
	RecordingDateTime  *time.Time             `json:"recordingDateTime,omitempty"`
	Duration           *float64               `json:"duration,omitempty"`
	Location           *entities.Location     `json:"location,omitempty"`
	AdditionalMetadata map[string]any         `json:"additionalMetadata,omitempty"`
}

// JobReport is a worker's result for a claimed recording. JobKey must echo
// the exact token issued by the claim.
type JobReport struct {
	JobKey       string         `json:"jobKey"`
	Success      bool           `json:"success"`
	Complete     bool           `json:"complete"`
	NewFileKey   *string        `json:"newFileKey,omitempty"`
	FileMimeType *string        `json:"fileMimeType,omitempty"`
	FieldUpdates map[string]any `json:"fieldUpdates,omitempty"`
}

// RecordingQuery carries validated query parameters from the boundary.
// Where keys are API field names checked against a whitelist before any
// predicate is built.
type RecordingQuery struct {
	Where           map[string]any   `json:"where,omitempty"`
	TagMode         constant.TagMode `json:"tagMode,omitempty"`
	TagNames        []string         `json:"tags,omitempty"`
	Offset          int              `json:"offset"`
	Limit           int              `json:"limit"`
	OldestFirst     bool             `json:"oldestFirst"`
	PrecisionMeters float64          `json:"precisionMeters,omitempty"`
}

type QueryResult struct {
	Rows  []*entities.Recording `json:"rows"`
	Count int64                 `json:"count"`
}

// RecordingUpdate is the set of fields a user may change on a recording.
// AdditionalMetadata is merged key-wise, never replaced.
type RecordingUpdate struct {
	Location           *entities.Location `json:"location,omitempty"`
	Comment            *string            `json:"comment,omitempty"`
	AdditionalMetadata map[string]any     `json:"additionalMetadata,omitempty"`
}
