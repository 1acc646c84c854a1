package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
	"github.com/m-ahsan-nazer/cacophony-api/dto"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
	"github.com/m-ahsan-nazer/cacophony-api/pkg/objectstore"
	"github.com/m-ahsan-nazer/cacophony-api/repository"
)

// Coordinator hands out exactly one in-flight processing claim per recording
// and applies worker reports to the per-type state machine. Claim selection,
// locking and the token write happen in one transaction, so two concurrent
// claims never receive the same row and never block on each other.
type Coordinator struct {
	store   repository.RecordingStore
	machine *StateMachine
	objects objectstore.Store
}

// NewCoordinator builds a claim coordinator. objects may be nil; when set,
// processed files replaced by a report are removed from object storage
// best-effort after commit.
func NewCoordinator(store repository.RecordingStore, machine *StateMachine, objects objectstore.Store) *Coordinator {
	return &Coordinator{
		store:   store,
		machine: machine,
		objects: objects,
	}
}

// Claim leases the newest unclaimed recording matching type and stage to the
// caller, stamping a fresh job token and start time. Both an empty candidate
// set and transaction failure (lock contention included) surface as
// ErrNoClaimableRecording; workers retry on their next poll.
func (c *Coordinator) Claim(ctx context.Context, typ constant.RecordingType, stage constant.ProcessingState) (*entities.Recording, error) {
	var claimed *entities.Recording
	err := c.store.InTransaction(ctx, func(tx repository.RecordingStore) error {
		rec, err := tx.FindClaimable(ctx, typ, stage)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		rec.SetClaim(uuid.NewString(), time.Now().UTC())
		if err := tx.Save(ctx, rec); err != nil {
			return err
		}
		claimed = rec
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).
			Str("type", string(typ)).
			Str("stage", string(stage)).
			Msg("claim transaction failed")
		return nil, entities.ErrNoClaimableRecording
	}
	if claimed == nil {
		return nil, entities.ErrNoClaimableRecording
	}
	zerolog.Ctx(ctx).Info().
		Str("recording_id", claimed.ID.String()).
		Str("stage", string(stage)).
		Msg("recording claimed")
	return claimed, nil
}

// Report applies a worker's result for a claimed recording. The report's job
// key must equal the stored token; otherwise nothing is mutated. On success
// the state machine advances and the claim is released iff the worker marked
// the stage complete. On failure the claim is released and the state left
// unchanged, so the recording becomes claimable again.
func (c *Coordinator) Report(ctx context.Context, id uuid.UUID, report dto.JobReport) error {
	var replacedFileKey *string
	err := c.store.InTransaction(ctx, func(tx repository.RecordingStore) error {
		rec, err := tx.LoadForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if rec.JobKey == nil || *rec.JobKey != report.JobKey {
			return fmt.Errorf("%w: recording %s", entities.ErrJobKeyMismatch, id)
		}

		if !report.Success {
			rec.ClearClaim()
			return tx.Save(ctx, rec)
		}

		next, err := c.machine.NextStage(rec.Type, rec.ProcessingState)
		if err != nil {
			return err
		}
		rec.ProcessingState = next

		if report.NewFileKey != nil {
			if rec.FileKey != nil && *rec.FileKey != *report.NewFileKey {
				replaced := *rec.FileKey
				replacedFileKey = &replaced
			}
			rec.FileKey = report.NewFileKey
			if report.FileMimeType != nil {
				rec.FileMimeType = report.FileMimeType
			}
		}
		if report.FieldUpdates != nil {
			rec.AdditionalMetadata = MergeMetadata(rec.AdditionalMetadata, report.FieldUpdates)
		}
		if report.Complete {
			rec.ClearClaim()
		}
		return tx.Save(ctx, rec)
	})
	if err != nil {
		return err
	}

	if !report.Success {
		zerolog.Ctx(ctx).Warn().
			Str("recording_id", id.String()).
			Msg("job failed, claim released")
		return nil
	}
	if replacedFileKey != nil && c.objects != nil {
		if err := c.objects.Remove(ctx, *replacedFileKey); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).
				Str("file_key", *replacedFileKey).
				Msg("failed to remove replaced processed file")
		}
	}
	zerolog.Ctx(ctx).Info().
		Str("recording_id", id.String()).
		Bool("complete", report.Complete).
		Msg("job report applied")
	return nil
}

// Reprocess re-admits a recording to the front of its pipeline: existing
// tags are snapshotted into additionalMetadata under "oldTags" and deleted,
// active tracks are archived, and the state resets with the claim cleared.
func (c *Coordinator) Reprocess(ctx context.Context, id uuid.UUID) error {
	err := c.store.InTransaction(ctx, func(tx repository.RecordingStore) error {
		rec, err := tx.LoadForUpdate(ctx, id)
		if err != nil {
			return err
		}

		tags, err := tx.ListTags(ctx, id)
		if err != nil {
			return err
		}
		if len(tags) > 0 {
			rec.AdditionalMetadata = MergeMetadata(rec.AdditionalMetadata, map[string]any{"oldTags": tags})
			if err := tx.DeleteTagsForRecording(ctx, id); err != nil {
				return err
			}
		}

		if err := tx.ArchiveTracks(ctx, id); err != nil {
			return err
		}

		initial, err := c.machine.InitialStage(rec.Type)
		if err != nil {
			return err
		}
		rec.ProcessingState = initial
		rec.ClearClaim()
		return tx.Save(ctx, rec)
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("recording_id", id.String()).Msg("recording queued for reprocessing")
	return nil
}
