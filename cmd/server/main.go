package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plate-intake-service/internal/config"
	"plate-intake-service/internal/db"
	httphandler "plate-intake-service/internal/http"
	"plate-intake-service/internal/logging"
	"plate-intake-service/internal/plate"
	"plate-intake-service/internal/repository"
	"plate-intake-service/internal/service"
	"plate-intake-service/internal/upload"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	gdb, err := db.Open(cfg.Database.DSN, log)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	uploader, err := newUploader(context.Background(), cfg, log)
	if err != nil {
		return err
	}

	interpreter := plate.NewInterpreter(plate.NewJurisdictions(cfg.Plate.Jurisdictions...), cfg.Plate.CountryToken)
	orchestrator := service.NewOrchestrator(
		uploader,
		plate.NewClassifier(interpreter),
		cfg.Upload.Timeout,
		cfg.Upload.Concurrency,
		log.With().Str("component", "orchestrator").Logger(),
	)
	vehicleRepo := repository.NewVehicleRepository(gdb)
	vehicleService := service.NewVehicleService(
		vehicleRepo,
		orchestrator,
		log.With().Str("component", "vehicle_service").Logger(),
	)
	requestService := service.NewRequestService(
		repository.NewRequestRepository(gdb),
		vehicleRepo,
		log.With().Str("component", "request_service").Logger(),
	)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Origin", "Accept"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))
	router.Use(requestLogger(log))

	handler := httphandler.NewHandler(vehicleService, requestService, log.With().Str("component", "http").Logger())
	handler.Register(router, httphandler.NewAuthMiddleware(cfg.Auth.JWTSecret))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func newUploader(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*upload.S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Storage.Region)}
	if cfg.Storage.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	rekClient := rekognition.NewFromConfig(awsCfg, func(o *rekognition.Options) {
		o.Region = cfg.OCR.Region
	})

	publicBaseURL := cfg.Storage.PublicBaseURL
	if publicBaseURL == "" && cfg.Storage.Endpoint != "" {
		publicBaseURL = strings.TrimRight(cfg.Storage.Endpoint, "/") + "/" + cfg.Storage.Bucket
	}

	return upload.NewS3Uploader(
		s3Client,
		rekClient,
		cfg.Storage.Bucket,
		cfg.Storage.Region,
		publicBaseURL,
		log.With().Str("component", "uploader").Logger(),
	), nil
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
