package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/m-ahsan-nazer/cacophony-api/dto"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
	"github.com/m-ahsan-nazer/cacophony-api/pkg/objectstore"
	"github.com/m-ahsan-nazer/cacophony-api/repository"
)

// IngestService turns validated upload events into recording rows at the
// first stage of their type's pipeline, and applies user field updates.
type IngestService struct {
	store   repository.RecordingStore
	machine *StateMachine
	access  *AccessResolver
	objects objectstore.Store
}

func NewIngestService(store repository.RecordingStore, machine *StateMachine, access *AccessResolver, objects objectstore.Store) *IngestService {
	return &IngestService{
		store:   store,
		machine: machine,
		access:  access,
		objects: objects,
	}
}

// Ingest creates a recording for an uploaded raw file. The row starts at the
// type's initial stage with no claim. When an object store is configured the
// raw object must exist, guarding against events for lost uploads.
func (s *IngestService) Ingest(ctx context.Context, msg dto.UploadMessage) (*entities.Recording, error) {
	initial, err := s.machine.InitialStage(msg.Type)
	if err != nil {
		return nil, err
	}

	if s.objects != nil {
		if _, err := s.objects.Stat(ctx, msg.RawFileKey); err != nil {
			return nil, fmt.Errorf("raw object %q not found: %w", msg.RawFileKey, err)
		}
	}

	rec := &entities.Recording{
		ID:                uuid.New(),
		Type:              msg.Type,
		DeviceID:          msg.DeviceID,
		GroupID:           msg.GroupID,
		RawFileKey:        msg.RawFileKey,
		RawMimeType:       msg.RawMimeType,
		RecordingDateTime: msg.RecordingDateTime,
		Duration:          msg.Duration,
		ProcessingState:   initial,
	}
	if msg.Location != nil {
		rec.SetLocation(*msg.Location)
	}
	if msg.AdditionalMetadata != nil {
		rec.AdditionalMetadata = MergeMetadata(nil, msg.AdditionalMetadata)
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("recording_id", rec.ID.String()).
		Str("type", string(rec.Type)).
		Str("stage", string(rec.ProcessingState)).
		Msg("recording ingested")
	return rec, nil
}

// UpdateRecording applies user-permitted field updates: location, comment
// and an additionalMetadata merge. Anything else on the row is off limits to
// users, and a principal without write access is rejected outright.
func (s *IngestService) UpdateRecording(ctx context.Context, user *entities.User, id uuid.UUID, update dto.RecordingUpdate) (*entities.Recording, error) {
	scope, err := s.access.ScopeFor(ctx, user)
	if err != nil {
		return nil, err
	}

	var updated *entities.Recording
	err = s.store.InTransaction(ctx, func(tx repository.RecordingStore) error {
		rec, err := tx.LoadForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !scope.CanModify(rec) {
			return fmt.Errorf("%w: recording %s", entities.ErrAuthorizationDenied, id)
		}
		if update.Location != nil {
			rec.SetLocation(*update.Location)
		}
		if update.Comment != nil {
			rec.Comment = update.Comment
		}
		if update.AdditionalMetadata != nil {
			rec.AdditionalMetadata = MergeMetadata(rec.AdditionalMetadata, update.AdditionalMetadata)
		}
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
