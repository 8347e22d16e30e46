package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tilnancy/pod-mod/asset"
)

const openAIKeyName = "openai"

// transcriptionTimeout is the hard cap on one speech-to-text round trip.
const transcriptionTimeout = 300 * time.Second

var (
	ErrTimeout = errors.New("speech-to-text request timed out")
	ErrService = errors.New("upstream service error")
	ErrFormat  = errors.New("speech-to-text reply carries no text")
)

// KeyStore resolves provider credentials by logical name.
type KeyStore interface {
	GetAPIKey(ctx context.Context, name string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, a *asset.AudioAsset) (*asset.Transcript, error)
}

type transcriber struct {
	endpoint string
	model    string
	keys     KeyStore
	client   *http.Client
	timeout  time.Duration
}

func NewTranscriber(endpoint, model string, keys KeyStore) Transcriber {
	return &transcriber{
		endpoint: endpoint,
		model:    model,
		keys:     keys,
		client:   &http.Client{},
		timeout:  transcriptionTimeout,
	}
}

type sttSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type sttResponse struct {
	Text     string       `json:"text"`
	Duration float64      `json:"duration"`
	Segments []sttSegment `json:"segments"`
}

// Transcribe sends the asset's bytes to the speech-to-text endpoint and maps
// the reply into a Transcript. Concurrent calls for the same asset are not
// deduplicated; each user action issues exactly one upstream request.
func (t *transcriber) Transcribe(ctx context.Context, a *asset.AudioAsset) (*asset.Transcript, error) {
	zerolog.Ctx(ctx).Info().Str("asset_id", a.ID.String()).Str("file", a.Name).Msg("extracting transcript")

	key, err := t.keys.GetAPIKey(ctx, openAIKeyName)
	if err != nil {
		return nil, errors.Join(ErrService, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"model":           t.model,
		"language":        "en",
		"response_format": "verbose_json",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	for _, granularity := range []string{"segment", "word"} {
		if err := mw.WriteField("timestamp_granularities[]", granularity); err != nil {
			return nil, err
		}
	}
	fw, err := mw.CreateFormFile("file", a.Name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(a.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, errors.Join(ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: speech-to-text http %d: %s", ErrService, resp.StatusCode, string(b))
	}

	var stt sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&stt); err != nil {
		return nil, errors.Join(ErrFormat, err)
	}
	if stt.Text == "" {
		return nil, ErrFormat
	}

	return mapTranscript(a, &stt), nil
}

// mapTranscript synthesizes sequential segment ids; a reply without segments
// collapses into a single segment spanning the whole duration.
func mapTranscript(a *asset.AudioAsset, stt *sttResponse) *asset.Transcript {
	if len(stt.Segments) == 0 {
		end := stt.Duration
		if end == 0 {
			end = a.Duration
		}
		return &asset.Transcript{
			Text: stt.Text,
			Segments: []asset.Segment{{
				ID:    "segment-0",
				Start: 0,
				End:   end,
				Text:  stt.Text,
			}},
		}
	}

	segments := make([]asset.Segment, 0, len(stt.Segments))
	for i, s := range stt.Segments {
		segments = append(segments, asset.Segment{
			ID:    fmt.Sprintf("segment-%d", i),
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
	}
	return &asset.Transcript{Text: stt.Text, Segments: segments}
}
