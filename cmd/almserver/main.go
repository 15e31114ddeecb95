/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command almserver runs the ALM/PLM work-management core: the REST
// surface over the versioned work-item store, sprint coordinator,
// scheduler, resource/milestone matcher, signature service, and the
// email ingestion pipeline's background poller.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/almforge/coreforge/internal/api"
	"github.com/almforge/coreforge/internal/config"
	"github.com/almforge/coreforge/internal/database"
	"github.com/almforge/coreforge/pkg/alerting"
	"github.com/almforge/coreforge/pkg/audit"
	"github.com/almforge/coreforge/pkg/authz"
	"github.com/almforge/coreforge/pkg/email"
	"github.com/almforge/coreforge/pkg/graph"
	"github.com/almforge/coreforge/pkg/llmclient"
	"github.com/almforge/coreforge/pkg/lock"
	"github.com/almforge/coreforge/pkg/metrics"
	"github.com/almforge/coreforge/pkg/otelx"
	"github.com/almforge/coreforge/pkg/resource"
	"github.com/almforge/coreforge/pkg/scheduler"
	"github.com/almforge/coreforge/pkg/shared/logging"
	"github.com/almforge/coreforge/pkg/signature"
	"github.com/almforge/coreforge/pkg/sprint"
	"github.com/almforge/coreforge/pkg/workerpool"
	"github.com/almforge/coreforge/pkg/workitem"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting almserver", zap.Any("config", cfg.Redacted()))

	providers, err := otelx.Setup(ctx, "almserver", "1.0.0")
	if err != nil {
		logger.Fatal("setup otel providers", zap.Error(err))
	}
	defer providers.Shutdown(context.Background())

	dbCfg := database.DefaultConfig()
	dbCfg.LoadFromEnv()
	sqlDB, err := database.Connect(dbCfg, logger)
	if err != nil {
		logger.Fatal("connect relational store", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := database.Migrate(unwrapStdDB(sqlDB)); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	auditLog := audit.NewBufferedStore(audit.NewPostgresStore(sqlDB), audit.DefaultBufferedStoreConfig(), logger)
	defer auditLog.Close()

	locker := buildLocker(cfg.Redis.URL, logger)

	g := graph.NewMemoryExecutor(logger)

	signatureRepo := signature.NewPostgresRepository(sqlDB)
	signatureSvc := signature.NewService(signatureRepo, auditLog)

	items := workitem.NewStore(g, signatureSvc, auditLog)
	sprints := sprint.NewCoordinator(g, items, locker, auditLog)
	resources := resource.NewCoordinator(g)
	schedulerSvc := scheduler.NewService(4)
	cpuPool := workerpool.New()

	var llm llmclient.Extractor
	if cfg.LLM.Enabled {
		llm = llmclient.New(llmclient.Config{ModelName: cfg.LLM.ModelName, BaseURL: cfg.LLM.StudioURL})
	}

	var alertNotifier alerting.Notifier = alerting.NoopNotifier{}
	if cfg.Slack.Token != "" {
		alertNotifier = alerting.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.ChannelID)
	}

	emailSvc := email.NewService(
		email.Config{
			From:         cfg.Email.From,
			ReplyTo:      cfg.Email.ReplyTo,
			PollInterval: cfg.Email.PollInterval,
			LLMEnabled:   cfg.LLM.Enabled,
		},
		email.NewSMTPTransport(email.SMTPConfig{
			Host: cfg.SMTP.Host, Port: cfg.SMTP.Port, Username: cfg.SMTP.User, Password: cfg.SMTP.Password, UseTLS: cfg.SMTP.TLS,
		}),
		email.NewIMAPPoller(email.IMAPConfig{
			Host: cfg.IMAP.Host, Port: cfg.IMAP.Port, Username: cfg.IMAP.User, Password: cfg.IMAP.Password,
			Mailbox: cfg.IMAP.Mailbox, UseTLS: cfg.IMAP.TLS, Timeout: 30 * time.Second,
		}),
		workItemAdapter{store: items},
		email.NewThreadStore(),
		llm,
		alertNotifier,
		logger,
	)

	if err := emailSvc.StartPolling(ctx); err != nil {
		logger.Error("start email poller", zap.Error(err))
	}
	defer emailSvc.StopPolling()

	authzEval, err := authz.NewEvaluator(ctx, authz.DefaultRolesByAction())
	if err != nil {
		logger.Fatal("compile authorization policy", zap.Error(err))
	}

	router := api.NewRouter(api.Deps{
		Items:      items,
		Sprints:    sprints,
		Scheduler:  schedulerSvc,
		Resources:  resources,
		Signatures: signatureSvc,
		Email:      emailSvc,
		Authz:      authzEval,
		CPUPool:    cpuPool,
		JWTSecret:  cfg.Auth.JWTSecret,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, logger)
	metricsServer.StartAsync()

	go func() {
		logger.Info("http server listening", zap.String("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", zap.Error(err))
	}
}

func buildLocker(redisURL string, logger *zap.Logger) lock.Locker {
	if redisURL == "" {
		return lock.NewMemoryLocker()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, falling back to in-process lock", zap.Error(err))
		return lock.NewMemoryLocker()
	}
	return lock.NewRedisLocker(redis.NewClient(opts))
}

func unwrapStdDB(db *sqlx.DB) *sql.DB {
	return db.DB
}
