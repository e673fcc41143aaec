// Command rating-processor boots the marathon rating core: it
// connects to Postgres, applies migrations, wires the two Kafka
// consumers and the round-rated/dead-letter producer, and serves
// liveness/readiness over HTTP.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/topcoder-platform/marathon-rating-processor/config"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/challengeapi"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/database"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/health"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/httpclient"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/kafka"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/legacyhandoff"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/loader"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/orchestrator"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/persistor"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/reconciler"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/repositories"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/router"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/startup"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.ReadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, database.ConnectConfig{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	}, logger)
	if err != nil {
		logger.WithError(err).Errorf("failed to connect to database")
		os.Exit(1)
	}

	if err := runMigrations(cfg, logger); err != nil {
		logger.WithError(err).Errorf("failed to apply database migrations")
		os.Exit(1)
	}

	rounds := repositories.NewRoundRepository(db, logger)
	longCompResults := repositories.NewLongCompResultRepository(db, logger)
	algoRatings := repositories.NewAlgoRatingRepository(db, logger)

	httpClient := httpclient.New(10*time.Second, logger)
	tokens := challengeapi.NewTokenSource(challengeapi.TokenConfig{
		URL:          cfg.Auth0URL,
		Audience:     cfg.Auth0Audience,
		ClientID:     cfg.Auth0ClientID,
		ClientSecret: cfg.Auth0ClientSecret,
		CacheTime:    cfg.TokenCacheTTL(),
	}, httpClient, logger)
	challenges := challengeapi.New(cfg.V5APIURL, httpClient, tokens, cfg.ChallengeCacheTTL(), logger)

	recon := reconciler.New(challenges, longCompResults, logger)
	ld := loader.New(longCompResults, algoRatings, logger)
	pst := persistor.New(db, rounds, longCompResults, algoRatings, logger)

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:         cfg.KafkaBrokers(),
		RoundRatedTopic: cfg.KafkaRoundRatedTopic,
		DeadLetterTopic: cfg.KafkaDeadLetterTopic,
		ClientCertPEM:   cfg.KafkaClientCert,
		ClientKeyPEM:    cfg.KafkaClientCertKey,
	}, logger)
	if err != nil {
		logger.WithError(err).Errorf("failed to build kafka producer")
		os.Exit(1)
	}

	orch := orchestrator.New(rounds, recon, ld, pst, producer, logger)
	legacy := legacyhandoff.New(logger)
	rtr := router.New(challenges, orch, legacy, logger)

	autopilotConsumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       cfg.KafkaBrokers(),
		Topic:         cfg.KafkaAutopilotNotificationsTopic,
		GroupID:       cfg.KafkaGroupID,
		ClientCertPEM: cfg.KafkaClientCert,
		ClientKeyPEM:  cfg.KafkaClientCertKey,
	}, dropOnDeadLetter(rtr.RouteAutopilotNotification, producer, cfg.KafkaAutopilotNotificationsTopic, logger), logger)
	if err != nil {
		logger.WithError(err).Errorf("failed to build autopilot notifications consumer")
		os.Exit(1)
	}

	ratingServiceConsumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       cfg.KafkaBrokers(),
		Topic:         cfg.KafkaRatingServiceTopic,
		GroupID:       cfg.KafkaGroupID,
		ClientCertPEM: cfg.KafkaClientCert,
		ClientKeyPEM:  cfg.KafkaClientCertKey,
	}, dropOnDeadLetter(rtr.RouteRatingServiceEvent, producer, cfg.KafkaRatingServiceTopic, logger), logger)
	if err != nil {
		logger.WithError(err).Errorf("failed to build rating service events consumer")
		os.Exit(1)
	}

	checker := health.NewChecker(db)

	e := echo.New()
	e.HideBanner = true
	checker.RegisterRoutes(e)

	startupSvc := startup.NewStartup[any](logger, cfg.StartupMaxAttempts)
	startupSvc.AddDependency(serviceDependency{
		name: "autopilot-consumer",
		start: func(ctx context.Context) error {
			autopilotConsumer.Start(ctx)
			return nil
		},
		stop: func(ctx context.Context) error { return autopilotConsumer.Stop() },
	})
	startupSvc.AddDependency(serviceDependency{
		name: "rating-service-consumer",
		start: func(ctx context.Context) error {
			ratingServiceConsumer.Start(ctx)
			return nil
		},
		stop: func(ctx context.Context) error { return ratingServiceConsumer.Stop() },
	})
	startupSvc.AddDependency(serviceDependency{
		name: "health-server",
		start: func(ctx context.Context) error {
			go func() {
				addr := fmt.Sprintf(":%d", cfg.HealthcheckPort)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Errorf("health server exited unexpectedly")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error { return e.Shutdown(ctx) },
	})

	if err := startupSvc.Start(ctx); err != nil {
		logger.WithError(err).Errorf("failed to start service")
		os.Exit(1)
	}
	checker.SetReady(true)
	logger.Infof("%s started", cfg.AppName)

	<-ctx.Done()
	logger.Infof("shutdown signal received, draining in-flight work")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := startupSvc.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Errorf("error during shutdown")
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Errorf("failed to close kafka producer")
	}
	if err := db.Close(); err != nil {
		logger.WithError(err).Errorf("failed to close database connection")
	}
}

func newLogger(level string) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if level == "debug" {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func runMigrations(cfg config.Config, logger ectologger.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to build postgres migration driver: %w", err)
	}

	svc := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationPath,
		AutoRollback:        true,
	})
	return svc.Migrate("rating_processor", driver)
}

// dropOnDeadLetter adapts a router handler into a kafka.MessageHandler:
// a handler error is dead-lettered on a best-effort basis and then
// returned for the consumer to log. The consumer commits the offset
// either way, so the dead-letter topic is the only place an unhandled
// payload is preserved.
func dropOnDeadLetter(handle func(ctx context.Context, payload []byte) error, producer *kafka.Producer, topic string, logger ectologger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, value []byte) error {
		if err := handle(ctx, value); err != nil {
			producer.PublishDeadLetter(ctx, kafka.DeadLetterEnvelope{
				SourceTopic: topic,
				Reason:      err.Error(),
				Payload:     value,
			})
			return err
		}
		return nil
	}
}

// serviceDependency adapts a start/stop closure pair to
// startup.StartupDependency. The core has few enough dependencies that
// a dedicated type per dependency would just be ceremony.
type serviceDependency struct {
	name  string
	deps  []string
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

func (s serviceDependency) GetName() string     { return s.name }
func (s serviceDependency) DependsOn() []string { return s.deps }
func (s serviceDependency) Start(ctx context.Context) error { return s.start(ctx) }
func (s serviceDependency) Stop(ctx context.Context) error  { return s.stop(ctx) }
