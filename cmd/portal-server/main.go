// cmd/portal-server/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"creative-funding/internal/api"
	"creative-funding/internal/applications"
	"creative-funding/internal/common/auth"
	awsclient "creative-funding/internal/common/aws"
	"creative-funding/internal/common/camunda"
	"creative-funding/internal/common/config"
	"creative-funding/internal/common/database"
	httpclient "creative-funding/internal/common/http"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/common/observability"
	"creative-funding/internal/guard"
	"creative-funding/internal/repository"
	"creative-funding/internal/roles"
	"creative-funding/internal/scoring"
	"creative-funding/internal/search"

	aar "creative-funding/internal/workers/application/assess-application-risk"
	sdn "creative-funding/internal/workers/application/send-decision-notification"
	vas "creative-funding/internal/workers/application/validate-application-submission"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting portal server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	migrator, err := database.NewMigrator(pg.DB)
	if err != nil {
		zapLog.Fatal("migrator init failed", zap.Error(err))
	}
	if err := migrator.Up(); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) ---
	var index applications.SearchIndex
	if cfg.Database.Elasticsearch.Enabled() {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		searchIndex := search.New(es.Client, cfg.Search.Index, log)
		if err := searchIndex.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("search index setup failed", zap.Error(err))
		}
		index = searchIndex
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Search.Index))
	} else {
		zapLog.Info("Elasticsearch not configured, admin search disabled")
	}

	// --- Init Zeebe (optional) ---
	var (
		publisher camunda.MessagePublisher = camunda.NoopPublisher{}
		zeebe     *camunda.Client
		workers   *camunda.Workers
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientFromConfig(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		publisher = camunda.NewPublisher(zeebe, config.GetDuration(cfg.Camunda.MessageTTL), log)
		workers = camunda.NewWorkers(zeebe.GetClient(), log)
		zapLog.Info("Zeebe client connected successfully")
	}

	// --- Identity and Access ---
	provider, err := auth.NewProvider(cfg.Auth, httpclient.NewClient(10*time.Second))
	if err != nil {
		zapLog.Fatal("identity provider init failed", zap.Error(err))
	}
	sessions := auth.NewSessionManager(provider, nil)
	sessions.OnSessionChange(func(event auth.SessionEvent) {
		log.Info("Session changed", map[string]interface{}{
			"event":  string(event.Type),
			"userId": event.Session.User.ID,
		})
	})

	db := pg.DB
	profiles := repository.NewProfiles(db)
	audit := repository.NewAuditLog(db)
	resolver := roles.NewResolver(profiles, rdb.Client, cfg.Auth, audit, log)
	accessGuard := guard.New(sessions, resolver, cfg.Auth, log)

	service := applications.NewService(applications.Deps{
		Applications:  repository.NewApplications(db),
		Comments:      repository.NewComments(db),
		Audit:         audit,
		Publisher:     publisher,
		Index:         index,
		Observability: obs,
	}, log)

	// --- Workers ---
	if workers != nil {
		var (
			email sdn.EmailSender
			sms   sdn.SMSSender
		)
		awsCfg := cfg.Integrations.AWS
		if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
			sdkCfg, err := awsclient.LoadConfig(ctx, awsCfg.Region)
			if err != nil {
				zapLog.Fatal("aws config load failed", zap.Error(err))
			}
			if awsCfg.SES.Enabled {
				email = awsclient.NewEmailSender(awsclient.NewSESClient(sdkCfg), awsCfg.SES.FromEmail)
			}
			if awsCfg.SNS.Enabled {
				sms = awsclient.NewSMSSender(awsclient.NewSNSClient(sdkCfg), awsCfg.SNS.DefaultSMSSenderID)
			}
		}

		workers.Start(vas.TaskType, config.GetWorkerConfig(cfg, vas.TaskType), vas.NewHandler(vas.LoadConfig(), log))
		workers.Start(aar.TaskType, config.GetWorkerConfig(cfg, aar.TaskType), aar.NewHandler(aar.LoadConfig(cfg), db, rdb.Client, log))
		workers.Start(sdn.TaskType, config.GetWorkerConfig(cfg, sdn.TaskType), sdn.NewHandler(sdn.LoadConfig(cfg), db, email, sms, log))

		zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.Running()))
	}

	// --- HTTP Server ---
	checks := map[string]api.ReadinessCheck{
		"postgres": pg.Ping,
		"redis":    rdb.Ping,
	}
	if zeebe != nil {
		checks["zeebe"] = zeebe.HealthCheck
	}

	server := api.NewServer(api.Options{
		Applications:  service,
		Sessions:      sessions,
		Guard:         accessGuard,
		Profiles:      profiles,
		Chats:         repository.NewChatMessages(db),
		Scoring:       scoring.NewMockScoringProvider(),
		Assistant:     scoring.NewKeywordAssistant(),
		Observability: obs,
		Checks:        checks,
		SessionCookie: cfg.Auth.SessionCookie,
		SecureCookies: cfg.App.Environment == "production",
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown incomplete", zap.Error(err))
	}

	if workers != nil {
		workers.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Portal server stopped gracefully")
}
