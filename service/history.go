package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tilnancy/pod-mod/entities"
	"github.com/tilnancy/pod-mod/repository"
)

var (
	ErrAuthMissing = errors.New("no authenticated identity")
	ErrPersistence = errors.New("history write failed")
)

// History wraps the audio_history repository with the identity gating the
// pipeline relies on. Failures here are reported, never fatal to the caller:
// the pipeline forwards them to its error channel and moves on.
type History interface {
	Add(ctx context.Context, userID uuid.UUID, entry *entities.HistoryEntry) error
	Update(ctx context.Context, userID, id uuid.UUID, patch map[string]interface{}) error
	List(ctx context.Context, userID uuid.UUID) ([]*entities.HistoryEntry, error)
}

type history struct {
	repo repository.HistoryRepository
}

func NewHistory(repo repository.HistoryRepository) History {
	return &history{repo: repo}
}

func (h *history) Add(ctx context.Context, userID uuid.UUID, entry *entities.HistoryEntry) error {
	if userID == uuid.Nil {
		zerolog.Ctx(ctx).Warn().Str("file", entry.FileName).Msg("skipping history entry, no authenticated user")
		return ErrAuthMissing
	}
	entry.UserID = userID
	if err := h.repo.AddEntry(ctx, entry); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	return nil
}

func (h *history) Update(ctx context.Context, userID, id uuid.UUID, patch map[string]interface{}) error {
	if userID == uuid.Nil {
		zerolog.Ctx(ctx).Warn().Str("entry_id", id.String()).Msg("skipping history update, no authenticated user")
		return ErrAuthMissing
	}
	if err := h.repo.UpdateEntry(ctx, userID, id, patch); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	return nil
}

func (h *history) List(ctx context.Context, userID uuid.UUID) ([]*entities.HistoryEntry, error) {
	if userID == uuid.Nil {
		return nil, ErrAuthMissing
	}
	entries, err := h.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return entries, nil
}
