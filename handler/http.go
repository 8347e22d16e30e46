package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tilnancy/pod-mod/asset"
	"github.com/tilnancy/pod-mod/constant"
	"github.com/tilnancy/pod-mod/dto"
	"github.com/tilnancy/pod-mod/entities"
	"github.com/tilnancy/pod-mod/pipeline"
	"github.com/tilnancy/pod-mod/pkg/rabbitmq"
	"github.com/tilnancy/pod-mod/repository"
	"github.com/tilnancy/pod-mod/service"
)

const userIDHeader = "X-User-ID"

// HTTP wires the moderation pipeline to its REST surface.
type HTTP struct {
	Registry    *asset.Registry
	Intake      *asset.Intake
	Pipeline    *pipeline.Pipeline
	Transcriber service.Transcriber
	Analyzer    service.Analyzer
	Scanner     service.Scanner
	History     service.History
	Publisher   rabbitmq.JobPublisher
}

func (h *HTTP) Register(r *gin.Engine) {
	r.Use(corsMiddleware())

	fn := r.Group("/functions/v1", requireBearer())
	fn.POST("/extract-transcript", h.ExtractTranscript)
	fn.POST("/analyze-content", h.AnalyzeContent)

	v1 := r.Group("/v1")
	v1.POST("/uploads", h.Upload)
	v1.GET("/uploads", h.ListUploads)
	v1.POST("/assets/:id/transcribe", h.TranscribeAsset)
	v1.POST("/assets/:id/process", h.ProcessAsset)
	v1.GET("/pipeline", h.PipelineState)
	v1.GET("/history", h.HistoryList)
	v1.POST("/scan", h.Scan)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, x-user-id")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing bearer credential"})
			return
		}
		c.Next()
	}
}

// userID resolves the caller identity. A missing or malformed header yields
// uuid.Nil, which downstream treats as the unauthenticated silent path.
func userID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetHeader(userIDHeader))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ExtractTranscript is the thin proxy contract: multipart field "audio" in,
// `{text, segments}` out.
func (h *HTTP) ExtractTranscript(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no audio file provided"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable audio file", Details: err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable audio file", Details: err.Error()})
		return
	}

	transient := &asset.AudioAsset{ID: uuid.New(), Name: file.Filename, Data: data}
	transcript, err := h.Transcriber.Transcribe(c.Request.Context(), transient)
	if err != nil {
		c.JSON(transcriptionStatus(err), dto.ErrorResponse{Error: "failed to extract transcript", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, transcript)
}

func transcriptionStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrAPIKeyNotFound):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrService), errors.Is(err, service.ErrFormat):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AnalyzeContent proxies a transcript to the moderation model. A parse
// mismatch still yields the sentinel-filled analysis.
func (h *HTTP) AnalyzeContent(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no transcript provided"})
		return
	}

	analysis, err := h.Analyzer.Analyze(c.Request.Context(), req.Transcript)
	if err != nil && !errors.Is(err, service.ErrParseMismatch) {
		status := http.StatusBadGateway
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, dto.ErrorResponse{Error: "failed to analyze content", Details: err.Error()})
		return
	}
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("analysis parse mismatch")
	}

	c.JSON(http.StatusOK, analysis)
}

// Upload ingests an audio file, registers it as current and opens its
// history row.
func (h *HTTP) Upload(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no audio file provided"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable audio file", Details: err.Error()})
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	a, err := h.Intake.Ingest(ctx, file.Filename, file.Header.Get("Content-Type"), f)
	if err != nil {
		c.JSON(intakeStatus(err), dto.ErrorResponse{Error: "upload failed", Details: err.Error()})
		return
	}

	h.Registry.Add(a)
	h.Pipeline.SetCurrentAudio(a)

	if err := h.History.Add(ctx, userID(c), &entities.HistoryEntry{
		ID:       a.ID,
		FileName: a.Name,
		Duration: a.Duration,
		Status:   constant.HistoryStatusUploaded,
	}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("history entry not recorded")
	}

	c.JSON(http.StatusCreated, summarize(a))
}

func intakeStatus(err error) int {
	switch {
	case errors.Is(err, asset.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, asset.ErrRead):
		return http.StatusBadRequest
	case errors.Is(err, asset.ErrMetadata):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTP) ListUploads(c *gin.Context) {
	recent := h.Registry.Recent()
	out := make([]dto.AssetSummary, 0, len(recent))
	for _, a := range recent {
		out = append(out, summarize(a))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTP) TranscribeAsset(c *gin.Context) {
	a, ok := h.lookupAsset(c)
	if !ok {
		return
	}

	transcribed, err := h.Pipeline.Transcribe(c.Request.Context(), userID(c), a)
	if err != nil {
		c.JSON(transcriptionStatus(err), dto.ErrorResponse{Error: "failed to extract transcript", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, transcribed.Transcript)
}

// ProcessAsset queues the full transcribe-and-analyze run for the asset.
func (h *HTTP) ProcessAsset(c *gin.Context) {
	a, ok := h.lookupAsset(c)
	if !ok {
		return
	}

	if h.Publisher == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "moderation queue unavailable"})
		return
	}

	msg := dto.ModerationJobMessage{
		AssetID:    a.ID,
		UserID:     userID(c),
		ObjectPath: a.ObjectPath,
		FileName:   a.Name,
	}
	if err := h.Publisher.PublishModerationJob(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to queue moderation job", Details: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "asset_id": a.ID})
}

func (h *HTTP) lookupAsset(c *gin.Context) (*asset.AudioAsset, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid asset id"})
		return nil, false
	}
	a, ok := h.Registry.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "asset not found in recent uploads"})
		return nil, false
	}
	return a, true
}

func (h *HTTP) PipelineState(c *gin.Context) {
	c.JSON(http.StatusOK, h.Pipeline.Snapshot())
}

func (h *HTTP) HistoryList(c *gin.Context) {
	entries, err := h.History.List(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, service.ErrAuthMissing) {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "no authenticated user"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to load history", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *HTTP) Scan(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no transcript provided"})
		return
	}
	c.JSON(http.StatusOK, h.Scanner.Scan(req.Transcript))
}

func summarize(a *asset.AudioAsset) dto.AssetSummary {
	status := constant.HistoryStatusUploaded
	if a.Transcript != nil {
		status = constant.HistoryStatusTranscribed
	}
	return dto.AssetSummary{
		ID:          a.ID,
		Name:        a.Name,
		ObjectPath:  a.ObjectPath,
		Duration:    a.Duration,
		UploadedAt:  a.UploadedAt.UTC().Format(time.RFC3339),
		Transcribed: a.Transcript != nil,
		Status:      status,
	}
}
