package handler

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/tilnancy/pod-mod/asset"
	"github.com/tilnancy/pod-mod/dto"
	"github.com/tilnancy/pod-mod/pipeline"
)

type ServiceDependencies struct {
	Registry *asset.Registry
	Intake   *asset.Intake
	Pipeline *pipeline.Pipeline
}

// ModerationJobHandler runs the full pipeline for one queued asset:
// transcribe when no transcript is attached yet, then analyze. Assets evicted
// from the registry are rebuilt from the object store.
func ModerationJobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.ModerationJobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal moderation job")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("asset_id", job.AssetID.String()).
		Str("file", job.FileName).
		Msg("received moderation job")

	a, ok := deps.Registry.Get(job.AssetID)
	if !ok {
		var err error
		a, err = deps.Intake.FromStored(ctx, job.AssetID, job.FileName, job.ObjectPath)
		if err != nil {
			return err
		}
	}

	if a.Transcript == nil {
		var err error
		a, err = deps.Pipeline.Transcribe(ctx, job.UserID, a)
		if err != nil {
			return err
		}
	}

	deps.Pipeline.ProcessAudio(ctx, job.UserID, a)
	return nil
}
