package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tilnancy/pod-mod/asset"
	"github.com/tilnancy/pod-mod/constant"
	"github.com/tilnancy/pod-mod/dto"
	"github.com/tilnancy/pod-mod/service"
)

// StageError is a non-fatal pipeline failure surfaced on the error channel.
// The interface layer may display or ignore it; the pipeline itself has no
// error state and degrades to the pre-call state.
type StageError struct {
	Stage string
	Err   error
	Time  time.Time
}

// Snapshot is a point-in-time view of the single current slot.
type Snapshot struct {
	State      constant.PipelineState `json:"state"`
	Busy       bool                   `json:"busy"`
	Stage      string                 `json:"stage"`
	AssetID    *uuid.UUID             `json:"asset_id,omitempty"`
	AssetName  string                 `json:"asset_name,omitempty"`
	Transcript *asset.Transcript      `json:"transcript,omitempty"`
	Analysis   *dto.ContentAnalysis   `json:"analysis,omitempty"`
}

// Pipeline owns the single live "current" slot. Writes are serialized by the
// mutex but overlapping network calls keep last-writer-wins semantics: each
// call's transcript write precedes that same call's analysis write, nothing
// more is guaranteed.
type Pipeline struct {
	mu         sync.Mutex
	current    *asset.AudioAsset
	transcript *asset.Transcript
	analysis   *dto.ContentAnalysis
	state      constant.PipelineState
	busy       bool
	stage      string

	transcriber service.Transcriber
	analyzer    service.Analyzer
	history     service.History
	errs        chan StageError
}

func New(transcriber service.Transcriber, analyzer service.Analyzer, history service.History) *Pipeline {
	return &Pipeline{
		state:       constant.PipelineStateIdle,
		transcriber: transcriber,
		analyzer:    analyzer,
		history:     history,
		errs:        make(chan StageError, 16),
	}
}

// Errors exposes the observable failure channel.
func (p *Pipeline) Errors() <-chan StageError {
	return p.errs
}

func (p *Pipeline) report(ctx context.Context, stage string, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Str("stage", stage).Msg("pipeline stage failed")
	select {
	case p.errs <- StageError{Stage: stage, Err: err, Time: time.Now()}:
	default:
		zerolog.Ctx(ctx).Warn().Str("stage", stage).Msg("error channel full, dropping")
	}
}

// SetCurrentAudio replaces the current asset and clears any prior analysis.
// An asset that already carries a transcript is adopted as transcribed.
func (p *Pipeline) SetCurrentAudio(a *asset.AudioAsset) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replaceLocked(a)
}

func (p *Pipeline) replaceLocked(a *asset.AudioAsset) {
	p.current = a
	p.analysis = nil
	if a == nil {
		p.transcript = nil
		p.state = constant.PipelineStateIdle
		return
	}
	if a.Transcript != nil {
		p.transcript = a.Transcript
		p.state = constant.PipelineStateTranscribed
	} else {
		p.transcript = nil
		p.state = constant.PipelineStateHasAudio
	}
}

// Transcribe runs the speech-to-text client for the given asset, installs
// the transcribed copy as current and advances the history row. The returned
// asset carries the transcript.
func (p *Pipeline) Transcribe(ctx context.Context, userID uuid.UUID, a *asset.AudioAsset) (*asset.AudioAsset, error) {
	p.setBusy("Extracting transcript")

	transcript, err := p.transcriber.Transcribe(ctx, a)
	if err != nil {
		p.clearBusy()
		p.report(ctx, "transcription", err)
		return nil, err
	}

	transcribed := a.WithTranscript(transcript)

	p.mu.Lock()
	p.replaceLocked(transcribed)
	p.busy = false
	p.stage = ""
	p.mu.Unlock()

	if err := p.history.Update(ctx, userID, a.ID, map[string]interface{}{
		"transcript": transcript.Text,
		"status":     constant.HistoryStatusTranscribed,
	}); err != nil {
		p.report(ctx, "history", err)
	}

	return transcribed, nil
}

// ProcessAudio replaces the current asset and, when a transcript is already
// attached, immediately runs content analysis. An analysis failure keeps the
// transcript and degrades to the transcribed state.
func (p *Pipeline) ProcessAudio(ctx context.Context, userID uuid.UUID, a *asset.AudioAsset) {
	p.mu.Lock()
	p.replaceLocked(a)
	if a == nil || a.Transcript == nil {
		p.mu.Unlock()
		return
	}
	p.state = constant.PipelineStateAnalyzing
	p.busy = true
	p.stage = "Analyzing content"
	p.mu.Unlock()

	analysis, err := p.analyzer.Analyze(ctx, a.Transcript.Text)

	p.mu.Lock()
	p.busy = false
	p.stage = ""
	if analysis != nil {
		p.analysis = analysis
		p.state = constant.PipelineStateAnalyzed
	} else {
		p.state = constant.PipelineStateTranscribed
	}
	p.mu.Unlock()

	if err != nil {
		p.report(ctx, "moderation", err)
	}
	if analysis == nil {
		return
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		p.report(ctx, "history", err)
		return
	}
	if err := p.history.Update(ctx, userID, a.ID, map[string]interface{}{
		"analysis": string(payload),
		"status":   constant.HistoryStatusAnalyzed,
	}); err != nil {
		p.report(ctx, "history", err)
	}
}

func (p *Pipeline) setBusy(stage string) {
	p.mu.Lock()
	p.busy = true
	p.stage = stage
	p.mu.Unlock()
}

func (p *Pipeline) clearBusy() {
	p.mu.Lock()
	p.busy = false
	p.stage = ""
	p.mu.Unlock()
}

// Current returns the asset occupying the slot, nil when idle.
func (p *Pipeline) Current() *asset.AudioAsset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		State:      p.state,
		Busy:       p.busy,
		Stage:      p.stage,
		Transcript: p.transcript,
		Analysis:   p.analysis,
	}
	if p.current != nil {
		id := p.current.ID
		snap.AssetID = &id
		snap.AssetName = p.current.Name
	}
	return snap
}
