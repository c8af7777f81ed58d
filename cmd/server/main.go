// Command server runs the delivery event pipeline: the webhook receiver,
// tracking endpoints, unsubscribe pages, suppression API and the optional
// send path.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/ses-pipeline/internal/api"
	"github.com/ignite/ses-pipeline/internal/config"
	"github.com/ignite/ses-pipeline/internal/mailing"
	"github.com/ignite/ses-pipeline/internal/pkg/logger"
	"github.com/ignite/ses-pipeline/internal/repository/postgres"
	"github.com/ignite/ses-pipeline/internal/service/message"
	"github.com/ignite/ses-pipeline/internal/service/suppression"
	"github.com/ignite/ses-pipeline/internal/service/tracking"
	"github.com/ignite/ses-pipeline/internal/service/unsubscribe"
	"github.com/ignite/ses-pipeline/internal/sns"
	"github.com/ignite/ses-pipeline/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		return err
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	messageRepo := postgres.NewMessageRepo(db)
	suppressionRepo := postgres.NewSuppressionRepo(db)

	var cache *suppression.Cache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unavailable, suppression cache disabled", "error", err.Error())
		} else {
			cache = suppression.NewCache(rdb, time.Duration(cfg.Redis.CacheTTLSeconds)*time.Second)
			logger.Info("suppression cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	suppressionSvc := suppression.NewService(suppressionRepo, cache)
	messageSvc := message.NewService(messageRepo, suppressionSvc)
	trackingSvc := tracking.NewService(messageRepo)
	unsubscribeSvc := unsubscribe.NewService(
		cfg.Unsubscribe.Secret,
		time.Duration(cfg.Unsubscribe.TokenTTLDays)*24*time.Hour,
		suppressionSvc,
	)

	var hostPattern *regexp.Regexp
	if cfg.SNS.CertHostPattern != "" {
		hostPattern, err = regexp.Compile(cfg.SNS.CertHostPattern)
		if err != nil {
			return fmt.Errorf("compile cert host pattern: %w", err)
		}
	}
	verifier := sns.NewVerifier(nil, hostPattern,
		time.Duration(cfg.SNS.CertCacheTTLMinutes)*time.Minute,
		cfg.SNS.CertCacheMaxEntries)
	processor := webhook.NewProcessor(verifier, messageSvc, nil)
	webhookHandler := webhook.NewHandler(processor)

	var sender *mailing.Sender
	if cfg.Mailing.Enabled {
		sesClient, err := newSESClient(cfg)
		if err != nil {
			return err
		}
		sender = mailing.NewSender(sesClient, suppressionSvc, unsubscribeSvc, messageRepo, mailing.Options{
			FromEmail:        cfg.Mailing.FromEmail,
			FromName:         cfg.Mailing.FromName,
			ConfigurationSet: cfg.Mailing.ConfigurationSet,
			BaseURL:          cfg.Tracking.BaseURL,
		})
	}

	handlers := &api.Handlers{
		Tracking:    trackingSvc,
		Suppression: suppressionSvc,
		Unsubscribe: unsubscribeSvc,
		Webhook:     webhookHandler.ServeHTTP,
		FallbackURL: cfg.Tracking.FallbackRedirectURL,
	}
	if sender != nil {
		handlers.Sender = sender
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newSESClient(cfg *config.Config) (*sesv2.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKey != "" && cfg.AWS.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKey, cfg.AWS.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sesv2.NewFromConfig(awsCfg), nil
}
