// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"broker-backoffice/internal/api"
	"broker-backoffice/internal/attachments"
	"broker-backoffice/internal/backoffice"
	"broker-backoffice/internal/common/auth"
	awsclient "broker-backoffice/internal/common/aws"
	"broker-backoffice/internal/common/camunda"
	"broker-backoffice/internal/common/config"
	"broker-backoffice/internal/common/google"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/common/observability"
	"broker-backoffice/internal/common/zoho"
	"broker-backoffice/internal/session"
	"broker-backoffice/internal/vault"

	sn "broker-backoffice/internal/workers/communication/send-notification"
	sl "broker-backoffice/internal/workers/crm/sync-leads"
	srl "broker-backoffice/internal/workers/data-access/search-leads"
	cl "broker-backoffice/internal/workers/leads/capture-lead"
	ci "broker-backoffice/internal/workers/leads/classify-intent"
	al "broker-backoffice/internal/workers/pipeline/advance-lead"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting broker back-office...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()
	deps := backoffice.Dependencies{Config: cfg, Logger: log}

	// --- Storage: Postgres, Redis and Elasticsearch ---
	conns := wireStorage(ctx, cfg, &deps, obs, zapLog, log)
	defer conns.Close()

	// --- AWS: attachments, mail and SMS ---
	var (
		sesClient *awsclient.SESClient
		snsClient *awsclient.SNSClient
	)
	awsCfg := cfg.Integrations.AWS
	if awsCfg.S3.Bucket != "" {
		s3Client, err := awsclient.NewS3Client(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Error("S3 client init failed, attachments stay in memory", zap.Error(err))
		} else {
			deps.Attachments = attachments.NewS3Store(s3Client, awsCfg.S3.Bucket, awsCfg.Region, awsCfg.S3.PublicBaseURL, cfg.Contact.MaxAttachmentBytes)
		}
	}
	if awsCfg.SES.Enabled {
		if sesClient, err = awsclient.NewSESClient(ctx, awsCfg.Region); err != nil {
			zapLog.Error("SES client init failed", zap.Error(err))
			sesClient = nil
		}
	}
	if awsCfg.SNS.Enabled {
		if snsClient, err = awsclient.NewSNSClient(ctx, awsCfg.Region); err != nil {
			zapLog.Error("SNS client init failed", zap.Error(err))
			snsClient = nil
		}
	}

	// --- Identity provider ---
	if cfg.Auth.KeycloakConfigured() {
		deps.Auth = session.NewKeycloakProvider(auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		))
	} else {
		zapLog.Warn("Keycloak not configured, dashboard runs in demo mode")
	}

	// --- Google Drive vault ---
	if cfg.Integrations.GoogleDrive.Configured() {
		driveService, err := google.NewDriveService(ctx, cfg.Integrations.GoogleDrive)
		if err != nil {
			zapLog.Error("drive init failed, vault uses seed data", zap.Error(err))
		} else {
			var source vault.Source = vault.NewDriveSource(driveService)
			if conns.rdb != nil && cfg.Integrations.GoogleDrive.CacheTTL > 0 {
				source = vault.NewCachedSource(source, conns.rdb.Client, config.GetDuration(cfg.Integrations.GoogleDrive.CacheTTL), log)
			}
			deps.Vault = source
		}
	}

	// --- Zoho CRM ---
	if zc := cfg.Integrations.Zoho; zc.AuthToken != "" {
		if zc.BaseURL != "" {
			deps.CRM = zoho.NewCRMClientWithBaseURL(zc.APIKey, zc.AuthToken, zc.BaseURL)
		} else {
			deps.CRM = zoho.NewCRMClient(zc.APIKey, zc.AuthToken)
		}
	}

	// --- Zeebe ---
	var zeebe *camunda.Client
	if cfg.Camunda.Configured() {
		zeebe, err = connectZeebe(cfg.Camunda.BrokerAddress, zeebeRetry, zapLog)
		if err != nil {
			zapLog.Warn("zeebe unreachable, workflow runs in demo mode", zap.Error(err))
		} else {
			deps.Workflow = zeebe
			zapLog.Info("Zeebe client connected successfully")
		}
	}

	svc, err := backoffice.New(deps)
	if err != nil {
		zapLog.Fatal("back-office init failed", zap.Error(err))
	}
	if err := svc.Start(ctx); err != nil {
		zapLog.Fatal("back-office start failed", zap.Error(err))
	}
	zapLog.Info("Back-office ready", zap.Any("modes", svc.Modes()))

	// --- Workers ---
	var workers *camunda.WorkerGroup
	if zeebe != nil {
		workers = camunda.NewWorkerGroup(zeebe.GetClient(), log)

		if handler, err := cl.NewHandler(cl.ConfigFromApp(cfg), svc, log); err != nil {
			zapLog.Fatal("failed to create capture-lead handler", zap.Error(err))
		} else {
			workers.Start(cl.TaskType, config.GetWorkerConfig(cfg, cl.TaskType), handler.Handle)
		}

		classify := ci.NewHandler(ci.LoadConfig(), svc.Classifier, log)
		workers.Start(ci.TaskType, config.GetWorkerConfig(cfg, ci.TaskType), classify.Handle)

		if handler, err := al.NewHandler(al.ConfigFromApp(cfg), svc.Board, log); err != nil {
			zapLog.Fatal("failed to create advance-lead handler", zap.Error(err))
		} else {
			workers.Start(al.TaskType, config.GetWorkerConfig(cfg, al.TaskType), handler.Handle)
		}

		notifier := sn.NewHandler(sn.ConfigFromApp(cfg), svc.Queue, sesOrNil(sesClient), snsOrNil(snsClient), log)
		workers.Start(sn.TaskType, config.GetWorkerConfig(cfg, sn.TaskType), notifier.Handle)

		search := srl.NewHandler(srl.LoadConfig(), svc, log)
		workers.Start(srl.TaskType, config.GetWorkerConfig(cfg, srl.TaskType), search.Handle)

		if svc.HasCRM() {
			handler, err := sl.NewHandler(sl.HandlerOptions{AppConfig: cfg, Syncer: svc, Logger: log})
			if err != nil {
				zapLog.Fatal("failed to create sync-leads handler", zap.Error(err))
			}
			workers.Start(sl.TaskType, config.GetWorkerConfig(cfg, sl.TaskType), handler.Handle)
		}

		zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.TaskTypes()))
	} else {
		zapLog.Warn("Zeebe not configured, no workers started")
	}

	// --- HTTP API, health and metrics ---
	address := cfg.Server.Address
	if address == "" {
		address = ":8080"
	}
	server := &http.Server{
		Addr:         address,
		Handler:      api.New(svc, log).Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownTimeout := config.GetDuration(cfg.Server.ShutdownTimeout)
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if workers != nil {
		workers.Close()
	}
	if err := svc.Close(shutdownCtx); err != nil {
		zapLog.Error("Error flushing board", zap.Error(err))
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Broker back-office stopped gracefully")
}

// A nil *SESClient stored in the interface would not compare equal to nil.
func sesOrNil(c *awsclient.SESClient) sn.SESService {
	if c == nil {
		return nil
	}
	return c
}

func snsOrNil(c *awsclient.SNSClient) sn.SNSService {
	if c == nil {
		return nil
	}
	return c
}
