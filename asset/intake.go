package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrRead            = errors.New("failed to read audio content")
	ErrMetadata        = errors.New("could not decode audio metadata")
)

// Prober derives the playable duration in seconds from raw audio bytes.
type Prober interface {
	Duration(ctx context.Context, name string, data []byte) (float64, error)
}

// Store keeps a durable copy of the uploaded bytes. The returned object path
// doubles as the asset's playable-resource handle and can be revoked by
// removal.
type Store interface {
	Put(ctx context.Context, objectPath string, contentType string, data []byte) error
	Fetch(ctx context.Context, objectPath string) ([]byte, error)
}

// Intake turns an uploaded file into an immutable AudioAsset.
type Intake struct {
	prober Prober
	store  Store
}

func NewIntake(prober Prober, store Store) *Intake {
	return &Intake{prober: prober, store: store}
}

// Ingest validates the declared media type, reads the full content, stores a
// durable copy and probes the duration. It does not deduplicate by content.
func (i *Intake) Ingest(ctx context.Context, name, contentType string, r io.Reader) (*AudioAsset, error) {
	if !strings.Contains(contentType, "audio") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrRead, err)
	}

	id := uuid.New()
	objectPath := fmt.Sprintf("uploads/%s/%s", id, name)
	if err := i.store.Put(ctx, objectPath, contentType, data); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("object_path", objectPath).Msg("failed to store audio object")
		return nil, err
	}

	duration, err := i.prober.Duration(ctx, name, data)
	if err != nil {
		return nil, errors.Join(ErrMetadata, err)
	}

	return &AudioAsset{
		ID:         id,
		Name:       name,
		Data:       data,
		ObjectPath: objectPath,
		Duration:   duration,
		UploadedAt: time.Now(),
	}, nil
}

// FromStored rebuilds a minimal asset from the durable copy, for assets
// already evicted from the registry. No metadata probe is re-run.
func (i *Intake) FromStored(ctx context.Context, id uuid.UUID, name, objectPath string) (*AudioAsset, error) {
	data, err := i.store.Fetch(ctx, objectPath)
	if err != nil {
		return nil, errors.Join(ErrRead, err)
	}

	return &AudioAsset{
		ID:         id,
		Name:       name,
		Data:       data,
		ObjectPath: objectPath,
		UploadedAt: time.Now(),
	}, nil
}
