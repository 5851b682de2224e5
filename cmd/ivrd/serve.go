package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"aicc-ivr-backend/config"
	"aicc-ivr-backend/internal/api"
	"aicc-ivr-backend/internal/calllog"
	"aicc-ivr-backend/internal/customer"
	"aicc-ivr-backend/internal/db"
	"aicc-ivr-backend/internal/hours"
	"aicc-ivr-backend/internal/logging"
	"aicc-ivr-backend/internal/metrics"
	"aicc-ivr-backend/internal/notification"
	"aicc-ivr-backend/internal/refresh"
	"aicc-ivr-backend/internal/response"
	"aicc-ivr-backend/internal/store"
	"aicc-ivr-backend/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if err := logging.Setup(cfg.Logging); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("configuration loaded")
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, tracing, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")
	appStore := store.NewGormStore(gormDB)

	var sess *session.Session
	awsSession := func() (*session.Session, error) {
		if sess != nil {
			return sess, nil
		}
		awsCfg := aws.NewConfig().WithRegion(cfg.AWS.Region)
		if cfg.AWS.Endpoint != "" {
			awsCfg = awsCfg.WithEndpoint(cfg.AWS.Endpoint)
		}
		s, err := session.NewSession(awsCfg)
		if err != nil {
			return nil, fmt.Errorf("create aws session: %w", err)
		}
		sess = s
		return sess, nil
	}

	var callStore store.CallStore = appStore
	if cfg.Calls.Backend == "dynamodb" {
		s, err := awsSession()
		if err != nil {
			return err
		}
		callStore = store.NewDynamoCallStore(dynamodb.New(s), cfg.Calls.Table)
		log.Info().Str("table", cfg.Calls.Table).Msg("call logs stored in DynamoDB")
	}

	var sink metrics.Sink = metrics.LogSink{}
	if cfg.Metrics.Sink == "cloudwatch" {
		s, err := awsSession()
		if err != nil {
			return err
		}
		sink = metrics.NewCloudWatchSink(cloudwatch.New(s), cfg.Metrics.Namespace)
		log.Info().Str("namespace", cfg.Metrics.Namespace).Msg("metrics sent to CloudWatch")
	}
	recorder := metrics.NewRecorder(sink)

	static, err := hours.NewStaticCalendar(cfg.Hours.Holidays)
	if err != nil {
		return err
	}
	calendar := hours.NewReloadableCalendar(static)
	refresher := refresh.NewService(cfg.Refresh, cfg.Hours.Holidays, appStore, callStore, calendar)
	if err := refresher.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("using configured holidays only")
	}
	go refresher.Run(ctx)

	hoursSvc, window, err := buildHours(cfg.Hours, cfg.Cache, calendar)
	if err != nil {
		return err
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	var alerts calllog.Dispatcher
	if cfg.Push.Enabled() {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions)
		pool.Start(ctx)
		alerts = pool
	} else {
		log.Warn().Msg("VAPID keys are not configured, engineer alerts are disabled")
	}

	handler := api.NewHandler(api.Deps{
		Hours:         hoursSvc,
		BusinessHours: window,
		Calendar:      calendar,
		Customers:     customer.NewService(appStore),
		Calls:         calllog.NewService(callStore, recorder, alerts, time.Duration(cfg.Calls.RetentionDays)*24*time.Hour),
		Subscriptions: appStore,
		Responses:     response.New(cfg.Responses),
		Metrics:       recorder,
		WebPush:       &webpushOptions,
	})

	gin.SetMode(gin.ReleaseMode)
	opts := api.RouterOptions{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	}
	if tracing {
		opts.TracerName = cfg.Telemetry.ServiceName
	}
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, opts),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("business_hours", window).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutdown signal received, stopping services")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("server gracefully stopped")
	return nil
}
