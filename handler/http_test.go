package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tilnancy/pod-mod/asset"
	"github.com/tilnancy/pod-mod/constant"
	"github.com/tilnancy/pod-mod/dto"
	"github.com/tilnancy/pod-mod/entities"
	"github.com/tilnancy/pod-mod/pipeline"
	"github.com/tilnancy/pod-mod/service"
)

type stubProber struct{ duration float64 }

func (p stubProber) Duration(ctx context.Context, name string, data []byte) (float64, error) {
	return p.duration, nil
}

type stubStore struct{ objects map[string][]byte }

func newStubStore() *stubStore { return &stubStore{objects: map[string][]byte{}} }

func (s *stubStore) Put(ctx context.Context, objectPath string, contentType string, data []byte) error {
	s.objects[objectPath] = data
	return nil
}

func (s *stubStore) Fetch(ctx context.Context, objectPath string) ([]byte, error) {
	data, ok := s.objects[objectPath]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

type stubTranscriber struct {
	transcript *asset.Transcript
	err        error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, a *asset.AudioAsset) (*asset.Transcript, error) {
	return s.transcript, s.err
}

type stubAnalyzer struct {
	analysis *dto.ContentAnalysis
	err      error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, transcript string) (*dto.ContentAnalysis, error) {
	return s.analysis, s.err
}

type stubHistory struct{}

func (stubHistory) Add(ctx context.Context, userID uuid.UUID, entry *entities.HistoryEntry) error {
	return nil
}

func (stubHistory) Update(ctx context.Context, userID, id uuid.UUID, patch map[string]interface{}) error {
	return nil
}

func (stubHistory) List(ctx context.Context, userID uuid.UUID) ([]*entities.HistoryEntry, error) {
	return []*entities.HistoryEntry{}, nil
}

type stubPublisher struct {
	published []dto.ModerationJobMessage
	err       error
}

func (s *stubPublisher) PublishModerationJob(ctx context.Context, msg dto.ModerationJobMessage) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, msg)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *HTTP) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	transcriber := &stubTranscriber{transcript: &asset.Transcript{
		Text:     "hello",
		Segments: []asset.Segment{{ID: "segment-0", End: 2, Text: "hello"}},
	}}
	analyzer := &stubAnalyzer{analysis: &dto.ContentAnalysis{
		SwearWords:           "damn",
		RacialSlurs:          constant.SentinelNoneDetected,
		SensitiveContent:     constant.SentinelNoneDetected,
		ViolenceAndExtremism: constant.SentinelNoneDetected,
		SexualContent:        constant.SentinelNoneDetected,
		Timestamp:            "2026-01-01T00:00:00Z",
	}}
	history := stubHistory{}

	h := &HTTP{
		Registry:    asset.NewRegistry(),
		Intake:      asset.NewIntake(stubProber{duration: 30}, newStubStore()),
		Pipeline:    pipeline.New(transcriber, analyzer, history),
		Transcriber: transcriber,
		Analyzer:    analyzer,
		Scanner:     service.NewScanner(),
		History:     history,
		Publisher:   &stubPublisher{},
	}

	r := gin.New()
	h.Register(r)
	return r, h
}

func audioForm(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodOptions, "/functions/v1/analyze-content", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected wildcard origin")
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected allowed methods header")
	}
}

func TestProxyRoutesRequireBearer(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(dto.AnalyzeRequest{Transcript: "t"})
	req, _ := http.NewRequest(http.MethodPost, "/functions/v1/analyze-content", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAnalyzeContent(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(dto.AnalyzeRequest{Transcript: "the transcript"})
	req, _ := http.NewRequest(http.MethodPost, "/functions/v1/analyze-content", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer anon-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var got dto.ContentAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if got.SwearWords != "damn" || got.RacialSlurs != constant.SentinelNoneDetected {
		t.Errorf("unexpected analysis %+v", got)
	}
}

func TestAnalyzeContentRequiresTranscript(t *testing.T) {
	r, _ := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/functions/v1/analyze-content", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer anon-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExtractTranscript(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := audioForm(t, "audio", "episode.mp3", "audio/mpeg", []byte("bytes"))
	req, _ := http.NewRequest(http.MethodPost, "/functions/v1/extract-transcript", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer anon-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var got asset.Transcript
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if got.Text != "hello" || len(got.Segments) != 1 {
		t.Errorf("unexpected transcript %+v", got)
	}
}

func TestExtractTranscriptTimeout(t *testing.T) {
	r, h := newTestRouter(t)
	h.Transcriber = &stubTranscriber{err: service.ErrTimeout}

	body, contentType := audioForm(t, "audio", "episode.mp3", "audio/mpeg", []byte("bytes"))
	req, _ := http.NewRequest(http.MethodPost, "/functions/v1/extract-transcript", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer anon-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}
	var envelope dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad error envelope: %v", err)
	}
	if envelope.Error == "" {
		t.Error("expected an error message in the envelope")
	}
}

func TestUploadRejectsNonAudio(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := audioForm(t, "audio", "notes.pdf", "application/pdf", []byte("x"))
	req, _ := http.NewRequest(http.MethodPost, "/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", w.Code)
	}
}

func TestUploadAndListUploads(t *testing.T) {
	r, h := newTestRouter(t)

	body, contentType := audioForm(t, "audio", "episode.mp3", "audio/mpeg", []byte("bytes"))
	req, _ := http.NewRequest(http.MethodPost, "/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(userIDHeader, uuid.NewString())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var created dto.AssetSummary
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if created.Duration != 30 || created.Name != "episode.mp3" {
		t.Errorf("unexpected summary %+v", created)
	}

	if snap := h.Pipeline.Snapshot(); snap.State != constant.PipelineStateHasAudio {
		t.Errorf("pipeline state = %s, want has_audio", snap.State)
	}

	listReq, _ := http.NewRequest(http.MethodGet, "/v1/uploads", nil)
	listW := httptest.NewRecorder()
	r.ServeHTTP(listW, listReq)

	if listW.Code != http.StatusOK {
		t.Fatalf("status = %d", listW.Code)
	}
	var listed []dto.AssetSummary
	if err := json.Unmarshal(listW.Body.Bytes(), &listed); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("unexpected recent uploads %+v", listed)
	}
}

func TestProcessAssetPublishesJob(t *testing.T) {
	r, h := newTestRouter(t)
	pub := &stubPublisher{}
	h.Publisher = pub

	a := &asset.AudioAsset{ID: uuid.New(), Name: "episode.mp3", ObjectPath: "uploads/x/episode.mp3", Data: []byte("b")}
	h.Registry.Add(a)

	req, _ := http.NewRequest(http.MethodPost, "/v1/assets/"+a.ID.String()+"/process", nil)
	req.Header.Set(userIDHeader, uuid.NewString())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected one published job, got %d", len(pub.published))
	}
	if pub.published[0].AssetID != a.ID || pub.published[0].ObjectPath != a.ObjectPath {
		t.Errorf("unexpected job message %+v", pub.published[0])
	}
}

func TestProcessAssetUnknownID(t *testing.T) {
	r, _ := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/v1/assets/"+uuid.NewString()+"/process", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestScanEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(dto.AnalyzeRequest{Transcript: "Damn, what a show"})
	req, _ := http.NewRequest(http.MethodPost, "/v1/scan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got dto.ModerationResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if got.SwearWords.Count != 1 {
		t.Errorf("expected one swear hit, got %+v", got.SwearWords)
	}
}

func TestPipelineSnapshotEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/v1/pipeline", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var snap pipeline.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if snap.State != constant.PipelineStateIdle {
		t.Errorf("state = %s, want idle", snap.State)
	}
}
