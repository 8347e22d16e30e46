package asset

import (
	"time"

	"github.com/google/uuid"
)

// Segment is a timestamped span of transcript text.
type Segment struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is created once per successful transcription call and never
// mutated afterwards. Upstream segments are accepted as-is, no reordering.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// AudioAsset is one uploaded audio file and its derived metadata. Instances
// are immutable once built; attaching a transcript produces a replacement
// copy via WithTranscript, never an in-place patch.
type AudioAsset struct {
	ID         uuid.UUID
	Name       string
	Data       []byte
	ObjectPath string
	Duration   float64
	UploadedAt time.Time
	Transcript *Transcript
}

// WithTranscript returns a copy of the asset carrying the given transcript.
func (a *AudioAsset) WithTranscript(t *Transcript) *AudioAsset {
	c := *a
	c.Transcript = t
	return &c
}
