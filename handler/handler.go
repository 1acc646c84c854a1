package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/m-ahsan-nazer/cacophony-api/dto"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
)

type Ingestor interface {
	Ingest(ctx context.Context, msg dto.UploadMessage) (*entities.Recording, error)
}

type ServiceDependencies struct {
	Ingest Ingestor
}

// UploadHandler consumes validated upload events from the storage boundary
// and creates the recording row at its pipeline's initial stage.
func UploadHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var upload dto.UploadMessage
	if err := json.Unmarshal(msg.Body, &upload); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal upload message")
		return err
	}

	rec, err := deps.Ingest.Ingest(ctx, upload)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("recording_id", rec.ID.String()).
		Str("device_id", upload.DeviceID.String()).
		Msg("upload event processed")
	return nil
}
