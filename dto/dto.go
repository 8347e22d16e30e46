package dto

import (
	"github.com/google/uuid"
	"github.com/tilnancy/pod-mod/constant"
)

// ModerationJobMessage asks the worker to run the full pipeline for an
// already uploaded asset. ObjectPath lets the worker refetch the audio bytes
// when the asset has been evicted from the in-memory registry.
type ModerationJobMessage struct {
	AssetID    uuid.UUID `json:"assetId"`
	UserID     uuid.UUID `json:"userId"`
	ObjectPath string    `json:"objectPath"`
	FileName   string    `json:"fileName"`
}

// ContentAnalysis is the canonical analysis shape produced by the live
// moderation path. Unpopulated fields hold constant.SentinelNoneDetected.
type ContentAnalysis struct {
	SwearWords           string `json:"swear_words"`
	RacialSlurs          string `json:"racial_slurs"`
	SensitiveContent     string `json:"sensitive_content"`
	ViolenceAndExtremism string `json:"violence_and_extremism"`
	SexualContent        string `json:"sexual_content"`
	Timestamp            string `json:"timestamp"`
}

// ContentInstance is a single pattern hit found by the local scan.
type ContentInstance struct {
	Text     string            `json:"text"`
	Position int               `json:"position"`
	Severity constant.Severity `json:"severity"`
	Category string            `json:"category"`
}

type InstanceGroup struct {
	Found     bool              `json:"found"`
	Count     int               `json:"count"`
	Instances []ContentInstance `json:"instances"`
}

// ModerationResult is the output of the local pattern scan. It is
// deliberately separate from ContentAnalysis and never feeds the pipeline.
type ModerationResult struct {
	Summary          string            `json:"summary"`
	SensitiveContent InstanceGroup     `json:"sensitiveContent"`
	SwearWords       InstanceGroup     `json:"swearWords"`
	Slurs            InstanceGroup     `json:"slurs"`
	OverallSeverity  constant.Severity `json:"overallSeverity"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type AnalyzeRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

// AssetSummary is the wire view of an uploaded asset, without the byte
// buffer.
type AssetSummary struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	ObjectPath  string                 `json:"object_path"`
	Duration    float64                `json:"duration"`
	UploadedAt  string                 `json:"uploaded_at"`
	Transcribed bool                   `json:"transcribed"`
	Status      constant.HistoryStatus `json:"status"`
}
