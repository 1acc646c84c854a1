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

	"github.com/m-ahsan-nazer/cacophony-api/config"
	"github.com/m-ahsan-nazer/cacophony-api/constant"
	uploadHandler "github.com/m-ahsan-nazer/cacophony-api/handler"
	"github.com/m-ahsan-nazer/cacophony-api/pkg/objectstore"
	"github.com/m-ahsan-nazer/cacophony-api/pkg/rabbitmq"
	"github.com/m-ahsan-nazer/cacophony-api/repository"
	"github.com/m-ahsan-nazer/cacophony-api/service"
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

	store, err := repository.NewStore(cfg.DB)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to open recording store")
	}
	objects := objectstore.New(cfg.Storage, cfg.MinIOBucket)

	machine := service.NewStateMachine(service.DefaultPipelines())
	access := service.NewAccessResolver(store)
	coordinator := service.NewCoordinator(store, machine, objects)
	tagModes := service.NewTagModeCompiler(constant.DefaultNamedTagModes())
	querySvc := service.NewQueryService(store, tagModes, access, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	ingestSvc := service.NewIngestService(store, machine, access, objects)

	serviceDeps := uploadHandler.ServiceDependencies{
		Ingest: ingestSvc,
	}

	uploadConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, uploadHandler.UploadHandler)
	go func() {
		err := uploadConsumer.Consume(ctx, serviceDeps)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Upload consumer error")
		}
	}()

	r := gin.Default()
	addHealth(r)
	registerRoutes(r, &routeDeps{
		store:       store,
		coordinator: coordinator,
		query:       querySvc,
		ingest:      ingestSvc,
	})

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

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
