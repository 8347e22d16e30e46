package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tilnancy/pod-mod/asset"
	"github.com/tilnancy/pod-mod/config"
	"github.com/tilnancy/pod-mod/constant"
	jobHandler "github.com/tilnancy/pod-mod/handler"
	"github.com/tilnancy/pod-mod/media"
	"github.com/tilnancy/pod-mod/pipeline"
	"github.com/tilnancy/pod-mod/pkg/rabbitmq"
	"github.com/tilnancy/pod-mod/repository"
	"github.com/tilnancy/pod-mod/service"
	"github.com/tilnancy/pod-mod/storage"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	}

	repo := repository.NewRepo(cfg.DB)
	store := storage.NewObjectStore(cfg.Storage, cfg.MinIOBucket)
	intake := asset.NewIntake(media.NewFFProbe(), store)
	registry := asset.NewRegistry()

	transcriber := service.NewTranscriber(cfg.OpenAI.TranscriptionURL, cfg.OpenAI.TranscriptionModel, repo)
	analyzer := service.NewAnalyzer(cfg.OpenAI.CompletionURL, cfg.OpenAI.CompletionModel, repo)
	history := service.NewHistory(repo)
	pipe := pipeline.New(transcriber, analyzer, history)

	// The interface layer chooses what to do with pipeline failures; here we
	// log them.
	go func() {
		for {
			select {
			case stageErr := <-pipe.Errors():
				zerolog.Ctx(ctx).Warn().Err(stageErr.Err).Str("stage", stageErr.Stage).Msg("pipeline error observed")
			case <-ctx.Done():
				return
			}
		}
	}()

	serviceDeps := jobHandler.ServiceDependencies{
		Registry: registry,
		Intake:   intake,
		Pipeline: pipe,
	}

	var publisher rabbitmq.JobPublisher
	if conn != nil {
		publisher = rabbitmq.NewPublisher(conn, cfg.Queue)

		moderationConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.ModerationJobHandler)
		go func() {
			if err := moderationConsumer.Consume(ctx, serviceDeps); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("moderation consumer error")
			}
		}()
	}

	r := gin.Default()
	addHealth(r)

	httpDeps := &jobHandler.HTTP{
		Registry:    registry,
		Intake:      intake,
		Pipeline:    pipe,
		Transcriber: transcriber,
		Analyzer:    analyzer,
		Scanner:     service.NewScanner(),
		History:     history,
		Publisher:   publisher,
	}
	httpDeps.Register(r)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
