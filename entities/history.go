package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/tilnancy/pod-mod/constant"
)

// HistoryEntry is one row per uploaded asset. The row is created on upload
// and advanced in place as the pipeline moves the asset forward; a re-run of
// analysis overwrites the analysis payload rather than appending a new row.
type HistoryEntry struct {
	ID         uuid.UUID              `json:"id" gorm:"type:uuid;primary_key"`
	UserID     uuid.UUID              `json:"user_id" gorm:"type:uuid;not null;index:idx_audio_history_user_id"`
	FileName   string                 `json:"file_name" gorm:"type:varchar(255);not null"`
	Duration   float64                `json:"duration"`
	Transcript *string                `json:"transcript" gorm:"type:text"`
	Analysis   *string                `json:"analysis" gorm:"type:jsonb"`
	Status     constant.HistoryStatus `json:"status" gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time              `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time              `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (HistoryEntry) TableName() string {
	return "audio_history"
}
