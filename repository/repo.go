package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tilnancy/pod-mod/entities"
)

var ErrAPIKeyNotFound = errors.New("api key not configured")

type HistoryRepository interface {
	GetDB() *gorm.DB
	AddEntry(ctx context.Context, entry *entities.HistoryEntry) error
	UpdateEntry(ctx context.Context, userID, id uuid.UUID, patch map[string]interface{}) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.HistoryEntry, error)
	GetAPIKey(ctx context.Context, name string) (string, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) HistoryRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) AddEntry(ctx context.Context, entry *entities.HistoryEntry) error {
	return r.GetDB().WithContext(ctx).Create(entry).Error
}

// UpdateEntry applies a partial merge scoped to the entry's own id and the
// caller's identity. Rows owned by someone else match nothing, so a foreign
// id is a silent no-op rather than a lookup failure.
func (r *repo) UpdateEntry(ctx context.Context, userID, id uuid.UUID, patch map[string]interface{}) error {
	entry := &entities.HistoryEntry{}
	return r.GetDB().WithContext(ctx).Model(entry).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(patch).Error
}

func (r *repo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.HistoryEntry, error) {
	var entries []*entities.HistoryEntry
	err := r.GetDB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) GetAPIKey(ctx context.Context, name string) (string, error) {
	key := &entities.APIKey{}
	err := r.GetDB().WithContext(ctx).First(key, "key_name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrAPIKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return key.KeyValue, nil
}
